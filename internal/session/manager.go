package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
	"github.com/railtonbritomcp/App-agendei/internal/metrics"
	"github.com/railtonbritomcp/App-agendei/internal/storage"
	"github.com/railtonbritomcp/App-agendei/internal/transcribe"
)

const inboxSize = 64

type Options struct {
	Store       AppointmentStore
	Generator   ReportGenerator
	Transcriber transcribe.Transcriber
	Device      audio.Device
	Recorder    Recorder
	Exporter    Exporter
	Hub         EventBroadcaster
	Metrics     *metrics.Metrics

	Language           string
	MeetingInstruction string
	SampleRate         int
	BlockSize          int
	TickInterval       time.Duration
}

// Manager owns the session lifecycle. Every state mutation runs on a single
// loop goroutine; callbacks from capture, the channel and the clock are
// posted to it and tagged with the cycle they belong to so late arrivals from
// a finished session are ignored.
type Manager struct {
	opts    Options
	hub     EventBroadcaster
	metrics *metrics.Metrics
	clock   *Clock

	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once
	base      context.Context
	cancelAll context.CancelFunc

	// current mirrors cycle for the capture sink, which runs off the loop.
	current atomic.Uint64

	// Owned by the loop goroutine.
	state       State
	mode        Mode
	appointment storage.Appointment
	date        string
	language    string
	cycle       uint64
	sessionID   string
	elapsed     int
	acc         Accumulator
	capture     *audio.Capture
	channel     transcribe.Channel
	cancel      context.CancelFunc
	err         error
	closed      bool
}

func NewManager(opts Options) *Manager {
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = audio.DefaultBlockSize
	}

	m := &Manager{
		opts:    opts,
		hub:     opts.Hub,
		metrics: opts.Metrics,
		clock:   NewClock(opts.TickInterval),
		inbox:   make(chan func(), inboxSize),
		done:    make(chan struct{}),
		state:   StateIdle,
	}
	if m.hub == nil {
		m.hub = nopBroadcaster{}
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	m.base, m.cancelAll = context.WithCancel(context.Background())

	go m.loop()
	return m
}

func (m *Manager) loop() {
	defer close(m.done)
	for fn := range m.inbox {
		fn()
		if m.closed {
			return
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (m *Manager) do(fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case m.inbox <- wrapped:
	case <-m.done:
		return ErrManagerClosed
	}

	select {
	case <-finished:
		return nil
	case <-m.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrManagerClosed
		}
	}
}

// post queues fn without waiting. It is dropped once the manager is closed.
func (m *Manager) post(fn func()) {
	select {
	case m.inbox <- fn:
	case <-m.done:
	}
}

// StartMeeting begins recording against an appointment. language selects the
// transcription and report language; empty falls back to the configured one.
func (m *Manager) StartMeeting(ctx context.Context, appointmentID, language string) error {
	if m.opts.Transcriber == nil || m.opts.Device == nil {
		return fmt.Errorf("live transcription: %w", ErrNotConfigured)
	}

	a, err := m.opts.Store.GetAppointment(appointmentID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownAppointment, appointmentID)
	}
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}

	cfg := transcribe.Config{
		Modality:           transcribe.ModalityAudio,
		InputTranscription: true,
		SystemInstruction:  m.opts.MeetingInstruction,
		Language:           m.languageOr(language),
		SampleRate:         m.opts.SampleRate,
	}

	var result error
	if err := m.do(func() {
		if m.state != StateIdle {
			result = fmt.Errorf("%w: cannot start a meeting while %s", ErrInvalidTransition, m.state)
			return
		}
		m.begin(ctx, ModeMeeting, cfg, a, a.Date)
	}); err != nil {
		return err
	}
	return result
}

// StartCommand opens a voice scheduling session for date (YYYY-MM-DD).
func (m *Manager) StartCommand(ctx context.Context, date, language string) error {
	if _, err := time.Parse(storage.DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if m.opts.Transcriber == nil || m.opts.Device == nil {
		return fmt.Errorf("live transcription: %w", ErrNotConfigured)
	}

	cfg := transcribe.Config{
		Modality:           transcribe.ModalityAudio,
		InputTranscription: true,
		SystemInstruction:  fmt.Sprintf("Create appointments on %s.", date),
		Language:           m.languageOr(language),
		SampleRate:         m.opts.SampleRate,
		Tools:              commandTools,
	}

	var result error
	if err := m.do(func() {
		if m.state != StateIdle {
			result = fmt.Errorf("%w: cannot start a command while %s", ErrInvalidTransition, m.state)
			return
		}
		m.begin(ctx, ModeCommand, cfg, storage.Appointment{}, date)
	}); err != nil {
		return err
	}
	return result
}

func (m *Manager) begin(ctx context.Context, mode Mode, cfg transcribe.Config, a storage.Appointment, date string) {
	m.nextCycle()
	m.mode = mode
	m.appointment = a
	m.date = date
	m.language = cfg.Language
	m.sessionID = uuid.NewString()
	m.acc.Reset()
	m.elapsed = 0
	m.err = nil

	connectCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel

	if mode == ModeMeeting && m.opts.Recorder != nil {
		if err := m.opts.Recorder.StartSession(m.sessionID); err != nil {
			slog.Warn("audio archive disabled for session", "session", m.sessionID, "error", err)
		}
	}

	m.metrics.ActiveSessions.Set(1)
	m.setState(StateConnecting)
	slog.Info("session starting", "mode", mode, "appointment", a.ID, "date", date, "language", m.language, "session", m.sessionID)

	go m.connect(connectCtx, m.cycle, mode, cfg)
}

// connect opens the channel and then the microphone. It runs off the loop.
func (m *Manager) connect(ctx context.Context, cycle uint64, mode Mode, cfg transcribe.Config) {
	ch, err := m.opts.Transcriber.Connect(ctx, cfg)
	if err != nil {
		m.post(func() { m.connected(cycle, nil, nil, err) })
		return
	}

	sink := func(f audio.Frame) {
		if m.current.Load() != cycle {
			return
		}
		if err := ch.Send(f); err != nil {
			m.metrics.FramesDropped.Inc()
			return
		}
		m.metrics.FramesSent.Inc()
	}
	if mode == ModeMeeting && m.opts.Recorder != nil {
		sink = m.opts.Recorder.Tee(sink)
	}

	capture, err := audio.OpenCapture(ctx, m.opts.Device, audio.CaptureConfig{
		SampleRate: m.opts.SampleRate,
		BlockSize:  m.opts.BlockSize,
		OnError: func(err error) {
			go m.post(func() { m.deviceFailed(cycle, err) })
		},
	}, sink)
	if err != nil {
		_ = ch.Close()
		m.post(func() { m.connected(cycle, nil, nil, err) })
		return
	}

	m.post(func() { m.connected(cycle, capture, ch, nil) })
}

func (m *Manager) connected(cycle uint64, capture *audio.Capture, ch transcribe.Channel, err error) {
	if cycle != m.cycle || m.state != StateConnecting {
		if capture != nil {
			_ = capture.Close()
		}
		if ch != nil {
			_ = ch.Close()
		}
		return
	}
	if err != nil {
		m.fail(err)
		return
	}

	m.capture = capture
	m.channel = ch
	m.clock.Start(func() {
		m.post(func() { m.tick(cycle) })
	})
	go m.pump(cycle, ch)

	if m.mode == ModeCommand {
		m.setState(StateListening)
	} else {
		m.setState(StateRecording)
	}
}

func (m *Manager) pump(cycle uint64, ch transcribe.Channel) {
	for ev := range ch.Events() {
		m.post(func() { m.handleEvent(cycle, ch, ev) })
	}
}

func (m *Manager) handleEvent(cycle uint64, ch transcribe.Channel, ev transcribe.Event) {
	if cycle != m.cycle || ch != m.channel || !m.state.open() {
		return
	}

	switch ev.Kind {
	case transcribe.EventFragment:
		m.acc.Append(ev.Text)
		m.metrics.FragmentsReceived.Inc()
		m.hub.BroadcastLiveTranscript(m.appointment.ID, ev.Text, m.acc.Snapshot())
	case transcribe.EventToolCall:
		m.handleToolCall(cycle, ch, ev.ToolCall)
	case transcribe.EventError:
		m.metrics.ChannelErrors.Inc()
		m.fail(ev.Err)
	case transcribe.EventClosed:
		if m.mode == ModeCommand {
			m.finish("closed")
			return
		}
		m.metrics.ChannelErrors.Inc()
		m.fail(fmt.Errorf("%w: closed by remote", transcribe.ErrChannel))
	}
}

func (m *Manager) handleToolCall(cycle uint64, ch transcribe.Channel, call *transcribe.ToolCall) {
	if call == nil {
		return
	}
	if m.mode != ModeCommand || call.Name != createAppointmentTool {
		go func() {
			_ = ch.RespondTool(call.ID, call.Name, map[string]any{"error": "unknown function " + call.Name})
		}()
		return
	}

	a := appointmentFromArgs(call.Args, m.date)
	go func() {
		created, err := m.opts.Store.CreateAppointment(a)
		if err != nil {
			slog.Warn("voice command could not create appointment", "title", a.Title, "error", err)
			_ = ch.RespondTool(call.ID, call.Name, map[string]any{"result": "Error", "error": err.Error()})
			return
		}
		if err := ch.RespondTool(call.ID, call.Name, map[string]any{"result": "Success"}); err != nil {
			slog.Debug("tool response not delivered", "error", err)
		}
		m.post(func() { m.appointmentCreated(cycle, created) })
	}()
}

func (m *Manager) appointmentCreated(cycle uint64, a storage.Appointment) {
	slog.Info("appointment created by voice", "id", a.ID, "title", a.Title, "date", a.Date, "time", a.Time)
	m.hub.BroadcastAppointmentCreated(a)
	if cycle == m.cycle && m.state == StateListening {
		m.finish("appointment")
	}
}

func (m *Manager) tick(cycle uint64) {
	if cycle != m.cycle || (m.state != StateRecording && m.state != StateListening) {
		return
	}
	m.elapsed++
	m.hub.BroadcastTimer(m.appointment.ID, m.elapsed)
}

func (m *Manager) deviceFailed(cycle uint64, err error) {
	if cycle != m.cycle || !m.state.open() {
		return
	}
	m.fail(err)
}

// Stop ends recording and hands the transcript to report generation. Stopping
// while a report is already being generated is a no-op.
func (m *Manager) Stop() error {
	var result error
	err := m.do(func() {
		switch m.state {
		case StateProcessing:
			return
		case StateListening:
			m.finish("stopped")
			return
		case StateRecording:
		default:
			result = fmt.Errorf("%w: cannot stop while %s", ErrInvalidTransition, m.state)
			return
		}

		m.teardown()
		transcript := m.acc.Snapshot()
		if transcript == "" {
			m.abortArchive()
			m.metrics.SessionFinished(string(m.mode), "empty", m.recorded())
			m.clear()
			m.setState(StateIdle)
			return
		}

		m.setState(StateProcessing)
		go m.generate(m.cycle, m.sessionID, m.language, m.appointment, transcript)
	})
	if err != nil {
		return err
	}
	return result
}

func (m *Manager) generate(cycle uint64, sessionID, language string, a storage.Appointment, transcript string) {
	if m.opts.Recorder != nil {
		path, err := m.opts.Recorder.EndSession()
		if err != nil {
			slog.Warn("audio archive failed", "session", sessionID, "error", err)
		} else if path != "" {
			slog.Info("audio archived", "session", sessionID, "path", path)
		}
	}

	saved, produced, err := m.produceReport(sessionID, language, a, transcript)
	m.post(func() { m.generated(cycle, a, saved, produced, err) })
}

func (m *Manager) produceReport(sessionID, language string, a storage.Appointment, transcript string) (storage.Report, bool, error) {
	if m.opts.Generator == nil {
		return storage.Report{}, false, fmt.Errorf("report generation: %w", ErrNotConfigured)
	}

	sum := sha256.Sum256([]byte(transcript))
	claimed, err := m.opts.Store.ClaimReportRequest(sessionID, hex.EncodeToString(sum[:]))
	if err != nil {
		return storage.Report{}, false, fmt.Errorf("claim report request: %w", err)
	}
	if !claimed {
		slog.Info("report already requested for session", "session", sessionID)
		return storage.Report{}, false, nil
	}

	start := time.Now()
	rep, err := m.opts.Generator.Generate(m.base, transcript, language)
	m.metrics.ObserveReport(time.Since(start), err)
	if err != nil {
		return storage.Report{}, false, err
	}

	saved, err := m.opts.Store.SaveReport(storage.Report{AppointmentID: a.ID, Report: rep})
	if err != nil {
		return storage.Report{}, false, fmt.Errorf("save report: %w", err)
	}
	return saved, true, nil
}

func (m *Manager) generated(cycle uint64, a storage.Appointment, saved storage.Report, produced bool, err error) {
	if cycle != m.cycle || m.state != StateProcessing {
		return
	}

	if err != nil {
		slog.Error("report generation failed", "appointment", a.ID, "error", err)
		m.metrics.SessionFinished(string(m.mode), "failed", m.recorded())
		m.err = err
		m.setState(StateError)
		return
	}

	m.metrics.SessionFinished(string(m.mode), "report", m.recorded())
	m.clear()
	m.setState(StateIdle)
	if !produced {
		return
	}

	slog.Info("report ready", "appointment", a.ID, "report", saved.ID)
	m.hub.BroadcastReportReady(saved)

	if m.opts.Exporter != nil {
		a.HasReport = true
		go func() {
			if _, err := m.opts.Exporter.Export(m.base, a, saved); err != nil {
				slog.Warn("report export incomplete", "appointment", a.ID, "error", err)
			}
		}()
	}
}

// Discard abandons an open session without producing a report.
func (m *Manager) Discard() error {
	var result error
	err := m.do(func() {
		if !m.state.open() {
			result = fmt.Errorf("%w: nothing to discard while %s", ErrInvalidTransition, m.state)
			return
		}
		mode := m.mode
		recorded := m.recorded()
		m.nextCycle()
		m.teardown()
		m.abortArchive()
		m.metrics.SessionFinished(string(mode), "discarded", recorded)
		m.clear()
		m.setState(StateIdle)
	})
	if err != nil {
		return err
	}
	return result
}

// Reset acknowledges an error and returns to idle.
func (m *Manager) Reset() error {
	var result error
	err := m.do(func() {
		if m.state != StateError {
			result = fmt.Errorf("%w: nothing to reset while %s", ErrInvalidTransition, m.state)
			return
		}
		m.clear()
		m.setState(StateIdle)
	})
	if err != nil {
		return err
	}
	return result
}

func (m *Manager) Status() Status {
	var st Status
	if err := m.do(func() { st = m.status() }); err != nil {
		return Status{State: StateIdle}
	}
	return st
}

// Close releases any live session and stops the loop. Later calls return nil.
func (m *Manager) Close(ctx context.Context) error {
	first := false
	m.closeOnce.Do(func() { first = true })
	if !first {
		return nil
	}

	err := m.do(func() {
		m.nextCycle()
		if m.state.open() {
			m.teardown()
			m.abortArchive()
		}
		m.clock.Stop()
		m.cancelAll()
		m.closed = true
	})
	if err != nil && !errors.Is(err, ErrManagerClosed) {
		return err
	}

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish ends a session without a report and returns to idle.
func (m *Manager) finish(outcome string) {
	mode := m.mode
	recorded := m.recorded()
	m.teardown()
	m.abortArchive()
	m.metrics.SessionFinished(string(mode), outcome, recorded)
	m.clear()
	m.setState(StateIdle)
}

func (m *Manager) fail(err error) {
	slog.Error("session failed", "mode", m.mode, "appointment", m.appointment.ID, "error", err)
	m.teardown()
	m.abortArchive()
	m.metrics.SessionFinished(string(m.mode), "error", m.recorded())
	m.err = err
	m.setState(StateError)
}

// teardown closes capture before the channel so no frame is sent to a closed
// channel.
func (m *Manager) teardown() {
	m.clock.Stop()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.capture != nil {
		if err := m.capture.Close(); err != nil {
			slog.Warn("close audio capture", "error", err)
		}
		m.capture = nil
	}
	if m.channel != nil {
		if err := m.channel.Close(); err != nil {
			slog.Debug("close transcription channel", "error", err)
		}
		m.channel = nil
	}
	m.metrics.ActiveSessions.Set(0)
}

func (m *Manager) abortArchive() {
	if m.mode == ModeMeeting && m.opts.Recorder != nil {
		m.opts.Recorder.Abort()
	}
}

func (m *Manager) clear() {
	m.mode = ""
	m.appointment = storage.Appointment{}
	m.date = ""
	m.language = ""
	m.sessionID = ""
	m.elapsed = 0
	m.err = nil
	m.acc.Reset()
}

func (m *Manager) nextCycle() {
	m.cycle++
	m.current.Store(m.cycle)
}

func (m *Manager) languageOr(language string) string {
	if language = strings.TrimSpace(language); language != "" {
		return language
	}
	return m.opts.Language
}

func (m *Manager) recorded() time.Duration {
	return time.Duration(m.elapsed) * time.Second
}

func (m *Manager) setState(s State) {
	if m.state != s {
		slog.Debug("session state", "from", m.state, "to", s)
	}
	m.state = s
	m.hub.BroadcastState(m.status())
}

func (m *Manager) status() Status {
	st := Status{
		State:         m.state,
		Mode:          m.mode,
		AppointmentID: m.appointment.ID,
		Date:          m.date,
		Language:      m.language,
		Elapsed:       m.elapsed,
		Transcript:    m.acc.Snapshot(),
		Err:           m.err,
	}
	if m.err != nil {
		st.Error = m.err.Error()
	}
	return st
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastState(Status)                          {}
func (nopBroadcaster) BroadcastLiveTranscript(string, string, string) {}
func (nopBroadcaster) BroadcastTimer(string, int)                     {}
func (nopBroadcaster) BroadcastReportReady(storage.Report)            {}
func (nopBroadcaster) BroadcastAppointmentCreated(storage.Appointment) {}
