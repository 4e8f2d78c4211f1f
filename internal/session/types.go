package session

import (
	"context"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
	"github.com/railtonbritomcp/App-agendei/internal/report"
	"github.com/railtonbritomcp/App-agendei/internal/storage"
)

type AppointmentStore interface {
	GetAppointment(id string) (storage.Appointment, error)
	CreateAppointment(a storage.Appointment) (storage.Appointment, error)
	SaveReport(r storage.Report) (storage.Report, error)
	ClaimReportRequest(sessionID, transcriptHash string) (bool, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, transcript, language string) (report.Report, error)
}

type Recorder interface {
	StartSession(sessionID string) error
	Tee(next func(audio.Frame)) func(audio.Frame)
	EndSession() (string, error)
	Abort()
}

type Exporter interface {
	Export(ctx context.Context, a storage.Appointment, r storage.Report) (string, error)
}

type EventBroadcaster interface {
	BroadcastState(st Status)
	BroadcastLiveTranscript(appointmentID, fragment, transcript string)
	BroadcastTimer(appointmentID string, elapsed int)
	BroadcastReportReady(r storage.Report)
	BroadcastAppointmentCreated(a storage.Appointment)
}
