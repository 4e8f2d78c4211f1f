package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/railtonbritomcp/App-agendei/internal/storage"
)

// Sink receives a rendered report file.
type Sink interface {
	Name() string
	Upload(ctx context.Context, localPath string, a storage.Appointment) error
}

// Exporter renders a report to disk and pushes the file to every sink.
type Exporter struct {
	writer *storage.Writer
	sinks  []Sink
}

func New(writer *storage.Writer, sinks ...Sink) *Exporter {
	return &Exporter{writer: writer, sinks: sinks}
}

// Export writes the markdown file and uploads it. Sink failures are logged
// and joined; the local file is kept either way.
func (e *Exporter) Export(ctx context.Context, a storage.Appointment, r storage.Report) (string, error) {
	path, err := e.writer.Write(a, r)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	var errs []error
	for _, sink := range e.sinks {
		if err := sink.Upload(ctx, path, a); err != nil {
			slog.Warn("report export failed", "sink", sink.Name(), "appointment_id", a.ID, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		slog.Debug("report exported", "sink", sink.Name(), "appointment_id", a.ID)
	}
	return path, errors.Join(errs...)
}
