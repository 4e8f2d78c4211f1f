package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the meeting pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// Audio
	FramesSent    prometheus.Counter
	FramesDropped prometheus.Counter

	// Transcription
	FragmentsReceived prometheus.Counter
	ChannelErrors     prometheus.Counter

	// Sessions
	ActiveSessions   prometheus.Gauge
	SessionsFinished *prometheus.CounterVec
	SessionDuration  prometheus.Histogram

	// Reports
	ReportDuration prometheus.Histogram
	ReportFailures prometheus.Counter

	// HTTP API
	HTTPRequests *prometheus.CounterVec
}

// New registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "agendei_audio_frames_sent_total",
			Help: "Audio frames handed to the transcription channel",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "agendei_audio_frames_dropped_total",
			Help: "Audio frames dropped because the channel queue was full or closed",
		}),

		FragmentsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "agendei_transcript_fragments_total",
			Help: "Transcript fragments received from the transcription channel",
		}),
		ChannelErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "agendei_channel_errors_total",
			Help: "Transcription channel failures",
		}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agendei_active_sessions",
			Help: "1 while a capture session is open",
		}),
		SessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agendei_sessions_finished_total",
			Help: "Capture sessions by outcome",
		}, []string{"mode", "outcome"}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agendei_session_duration_seconds",
			Help:    "Recording length of finished capture sessions",
			Buckets: []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
		}),

		ReportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agendei_report_generation_seconds",
			Help:    "Latency of report generation calls",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ReportFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "agendei_report_failures_total",
			Help: "Report generation calls that failed",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agendei_http_requests_total",
			Help: "HTTP API requests by route and status",
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SessionFinished records the outcome of one capture session.
func (m *Metrics) SessionFinished(mode, outcome string, recorded time.Duration) {
	m.SessionsFinished.WithLabelValues(mode, outcome).Inc()
	if recorded > 0 {
		m.SessionDuration.Observe(recorded.Seconds())
	}
}

func (m *Metrics) ObserveReport(elapsed time.Duration, err error) {
	m.ReportDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.ReportFailures.Inc()
	}
}
