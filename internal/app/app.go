// Package app wires configuration into the running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
	"github.com/railtonbritomcp/App-agendei/internal/config"
	"github.com/railtonbritomcp/App-agendei/internal/export"
	"github.com/railtonbritomcp/App-agendei/internal/llm"
	"github.com/railtonbritomcp/App-agendei/internal/metrics"
	"github.com/railtonbritomcp/App-agendei/internal/report"
	"github.com/railtonbritomcp/App-agendei/internal/server"
	"github.com/railtonbritomcp/App-agendei/internal/session"
	"github.com/railtonbritomcp/App-agendei/internal/storage"
	"github.com/railtonbritomcp/App-agendei/internal/transcribe"
)

type App struct {
	Config   config.Config
	Warnings []string

	Store   *storage.SQLiteStore
	Hub     *server.Hub
	Metrics *metrics.Metrics
	Manager *session.Manager

	closers []func() error
}

// New opens storage and builds the session pipeline. Missing credentials or
// a missing microphone degrade the service to API-only instead of failing.
func New(ctx context.Context, cfg config.Config, warnings []string) (*App, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}

	a := &App{
		Config:   cfg,
		Warnings: append([]string(nil), warnings...),
		Store:    store,
		Hub:      server.NewHub(),
		Metrics:  metrics.New(),
	}

	transcriber, err := newTranscriber(ctx, cfg)
	if err != nil {
		slog.Warn("live transcription disabled", "error", err)
		a.warn(fmt.Sprintf("live transcription disabled: %v", err))
		transcriber = nil
	}

	var device audio.Device
	mic, err := audio.NewPortAudio()
	if err != nil {
		slog.Warn("microphone unavailable, running API only", "error", err)
		a.warn(fmt.Sprintf("microphone unavailable: %v", err))
	} else {
		device = mic
		a.closers = append(a.closers, mic.Close)
	}

	var recorder session.Recorder
	if cfg.AudioDir != "" {
		recorder = audio.NewRecorder(cfg.AudioDir, cfg.MicSampleRate)
	}

	a.Manager = session.NewManager(session.Options{
		Store:              store,
		Generator:          report.New(cfg.ReportModel, clientFactory(cfg)),
		Transcriber:        transcriber,
		Device:             device,
		Recorder:           recorder,
		Exporter:           export.New(storage.NewWriter(cfg.ReportDir), a.sinks(ctx, cfg)...),
		Hub:                a.Hub,
		Metrics:            a.Metrics,
		Language:           cfg.Language,
		MeetingInstruction: cfg.MeetingInstruction,
		SampleRate:         cfg.MicSampleRate,
		BlockSize:          cfg.MicBlockSize,
	})

	return a, nil
}

func (a *App) Handler() http.Handler {
	return server.Handler(server.Options{
		Hub:      a.Hub,
		Store:    a.Store,
		Sessions: a.Manager,
		Metrics:  a.Metrics,
		Warnings: func() []string { return a.Warnings },
	})
}

func (a *App) Serve(ctx context.Context) error {
	return server.Serve(ctx, a.Config.Listen, a.Handler())
}

// Close stops any live session, then releases devices, clients and the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Manager != nil {
		if err := a.Manager.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close session manager: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) warn(msg string) {
	a.Warnings = append(a.Warnings, msg)
}

func (a *App) sinks(ctx context.Context, cfg config.Config) []export.Sink {
	var sinks []export.Sink

	if cfg.GDriveFolderID != "" {
		d, err := export.NewDrive(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if err != nil {
			slog.Warn("gdrive export disabled", "error", err)
			a.warn(fmt.Sprintf("gdrive export disabled: %v", err))
		} else {
			sinks = append(sinks, d)
		}
	}

	if cfg.GCSBucket != "" {
		g, err := export.NewGCS(ctx, cfg.GCSBucket, cfg.GoogleCredentialsFile)
		if err != nil {
			slog.Warn("gcs export disabled", "error", err)
			a.warn(fmt.Sprintf("gcs export disabled: %v", err))
		} else {
			sinks = append(sinks, g)
			a.closers = append(a.closers, g.Close)
		}
	}

	return sinks
}

func newTranscriber(ctx context.Context, cfg config.Config) (transcribe.Transcriber, error) {
	key := cfg.APIKey(cfg.Transcriber)
	if key == "" && cfg.Transcriber != "google-speech" {
		return nil, fmt.Errorf("no API key for transcriber %q", cfg.Transcriber)
	}
	return transcribe.New(ctx, cfg.Transcriber, transcribe.Options{
		APIKey:          key,
		Model:           cfg.TranscriberModel,
		CredentialsFile: cfg.GoogleCredentialsFile,
	})
}

// clientFactory builds one LLM client per report from the configured keys.
func clientFactory(cfg config.Config) report.ClientFactory {
	return func(provider, model string) (llm.Client, error) {
		key := cfg.APIKey(provider)
		if key == "" {
			return nil, fmt.Errorf("report generation: no API key for provider %q: %w", provider, session.ErrNotConfigured)
		}
		return llm.NewClient(provider, key, model)
	}
}
