package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/railtonbritomcp/App-agendei/internal/session"
	"github.com/railtonbritomcp/App-agendei/internal/storage"
)

// Hub fans events out to websocket subscribers. Slow subscribers miss
// messages rather than blocking the session.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[chan []byte]struct{}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastState(st session.Status) {
	h.broadcastEvent(stateChanged(st, h.now()))
}

func (h *Hub) BroadcastLiveTranscript(appointmentID, fragment, transcript string) {
	h.broadcastEvent(LiveTranscriptEvent{
		Event:         newEvent("live_transcript", h.now()),
		AppointmentID: appointmentID,
		Text:          fragment,
		Transcript:    transcript,
	})
}

func (h *Hub) BroadcastTimer(appointmentID string, elapsed int) {
	h.broadcastEvent(TimerEvent{
		Event:         newEvent("timer", h.now()),
		AppointmentID: appointmentID,
		Elapsed:       elapsed,
	})
}

func (h *Hub) BroadcastReportReady(r storage.Report) {
	h.broadcastEvent(ReportReadyEvent{
		Event:  newEvent("report_ready", h.now()),
		Report: r,
	})
}

func (h *Hub) BroadcastAppointmentCreated(a storage.Appointment) {
	h.broadcastEvent(AppointmentCreatedEvent{
		Event:       newEvent("appointment_created", h.now()),
		Appointment: a,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("event marshal error", "error", err)
		return
	}
	h.Broadcast(payload)
}

var _ session.EventBroadcaster = (*Hub)(nil)
