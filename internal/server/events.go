package server

import (
	"time"

	"github.com/railtonbritomcp/App-agendei/internal/session"
	"github.com/railtonbritomcp/App-agendei/internal/storage"
)

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type StateChangedEvent struct {
	Event
	State         session.State `json:"state"`
	Mode          session.Mode  `json:"mode,omitempty"`
	AppointmentID string        `json:"appointment_id,omitempty"`
	Date          string        `json:"date,omitempty"`
	Elapsed       int           `json:"elapsed"`
	Error         string        `json:"error,omitempty"`
}

type LiveTranscriptEvent struct {
	Event
	AppointmentID string `json:"appointment_id,omitempty"`
	Text          string `json:"text"`
	Transcript    string `json:"transcript"`
}

type TimerEvent struct {
	Event
	AppointmentID string `json:"appointment_id,omitempty"`
	Elapsed       int    `json:"elapsed"`
}

type ReportReadyEvent struct {
	Event
	Report storage.Report `json:"report"`
}

type AppointmentCreatedEvent struct {
	Event
	Appointment storage.Appointment `json:"appointment"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

func stateChanged(st session.Status, now time.Time) StateChangedEvent {
	return StateChangedEvent{
		Event:         newEvent("state_changed", now),
		State:         st.State,
		Mode:          st.Mode,
		AppointmentID: st.AppointmentID,
		Date:          st.Date,
		Elapsed:       st.Elapsed,
		Error:         st.Error,
	}
}
