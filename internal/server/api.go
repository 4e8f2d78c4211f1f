package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/railtonbritomcp/App-agendei/internal/report"
	"github.com/railtonbritomcp/App-agendei/internal/session"
	"github.com/railtonbritomcp/App-agendei/internal/storage"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type Store interface {
	CreateAppointment(a storage.Appointment) (storage.Appointment, error)
	UpdateAppointment(a storage.Appointment) (storage.Appointment, error)
	DeleteAppointment(id string) error
	GetAppointment(id string) (storage.Appointment, error)
	ListAppointmentsByDate(date string) ([]storage.Appointment, error)
	ListDates() ([]string, error)
	GetReport(id string) (storage.Report, error)
	GetReportByAppointment(appointmentID string) (storage.Report, error)
	UpdateReport(r storage.Report) (storage.Report, error)
}

// SessionControl is the part of the session manager exposed over HTTP.
type SessionControl interface {
	StartMeeting(ctx context.Context, appointmentID, language string) error
	StartCommand(ctx context.Context, date, language string) error
	Stop() error
	Discard() error
	Reset() error
	Status() session.Status
}

type appointmentInput struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
}

func (in appointmentInput) appointment(id string) storage.Appointment {
	return storage.Appointment{
		ID:          id,
		Title:       in.Title,
		Date:        in.Date,
		Time:        in.Time,
		Duration:    in.Duration,
		Description: in.Description,
	}
}

type reportInput struct {
	Summary        string   `json:"summary"`
	FullTranscript string   `json:"fullTranscript"`
	Decisions      []string `json:"decisions"`
	ActionItems    []string `json:"actionItems"`
}

func registerAPIRoutes(mux *http.ServeMux, opts Options) {
	store := opts.Store

	mux.HandleFunc("GET /api/appointments", func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = opts.Now().Format(storage.DateLayout)
		}
		if _, err := time.Parse(storage.DateLayout, date); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q", date))
			return
		}

		list, err := store.ListAppointmentsByDate(date)
		if err != nil {
			writeError(w, "list appointments", err)
			return
		}
		if list == nil {
			list = []storage.Appointment{}
		}
		writeJSON(w, http.StatusOK, list)
	})

	mux.HandleFunc("POST /api/appointments", func(w http.ResponseWriter, r *http.Request) {
		var in appointmentInput
		if !decodeBody(w, r, &in) {
			return
		}
		created, err := store.CreateAppointment(in.appointment(""))
		if err != nil {
			writeError(w, "create appointment", err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})

	mux.HandleFunc("GET /api/appointments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		a, err := store.GetAppointment(id)
		if err != nil {
			writeError(w, "get appointment", err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	})

	mux.HandleFunc("PUT /api/appointments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in appointmentInput
		if !decodeBody(w, r, &in) {
			return
		}
		updated, err := store.UpdateAppointment(in.appointment(id))
		if err != nil {
			writeError(w, "update appointment", err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	})

	mux.HandleFunc("DELETE /api/appointments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := store.DeleteAppointment(id); err != nil {
			writeError(w, "delete appointment", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/dates", func(w http.ResponseWriter, r *http.Request) {
		dates, err := store.ListDates()
		if err != nil {
			writeError(w, "list dates", err)
			return
		}
		if dates == nil {
			dates = []string{}
		}
		writeJSON(w, http.StatusOK, dates)
	})

	mux.HandleFunc("GET /api/appointments/{id}/report", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		rep, err := store.GetReportByAppointment(id)
		if err != nil {
			writeError(w, "get report", err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	})

	mux.HandleFunc("PUT /api/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in reportInput
		if !decodeBody(w, r, &in) {
			return
		}
		updated, err := store.UpdateReport(storage.Report{
			ID: id,
			Report: report.Report{
				Summary:        in.Summary,
				FullTranscript: in.FullTranscript,
				Decisions:      in.Decisions,
				ActionItems:    in.ActionItems,
			},
		})
		if err != nil {
			writeError(w, "update report", err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	})

	mux.HandleFunc("GET /api/reports/{id}/share", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		rep, err := store.GetReport(id)
		if err != nil {
			writeError(w, "get report", err)
			return
		}
		var title string
		if a, err := store.GetAppointment(rep.AppointmentID); err == nil {
			title = a.Title
		}
		text := report.ShareText(title, rep.Report)
		writeJSON(w, http.StatusOK, map[string]string{
			"text": text,
			"link": report.ShareLink(text),
		})
	})

	registerSessionRoutes(mux, opts)

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		var warnings []string
		if opts.Warnings != nil {
			warnings = opts.Warnings()
		}
		if warnings == nil {
			warnings = []string{}
		}
		payload := map[string]any{"warnings": warnings}
		if opts.Sessions != nil {
			payload["session"] = opts.Sessions.Status()
		}
		writeJSON(w, http.StatusOK, payload)
	})
}

func registerSessionRoutes(mux *http.ServeMux, opts Options) {
	sessions := opts.Sessions
	if sessions == nil {
		return
	}

	mux.HandleFunc("GET /api/session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessions.Status())
	})

	mux.HandleFunc("POST /api/session/start", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			AppointmentID string `json:"appointment_id"`
			Language      string `json:"language"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		if !idPattern.MatchString(in.AppointmentID) {
			writeJSONError(w, http.StatusBadRequest, "invalid appointment id")
			return
		}
		if err := sessions.StartMeeting(r.Context(), in.AppointmentID, in.Language); err != nil {
			writeError(w, "start meeting", err)
			return
		}
		writeJSON(w, http.StatusAccepted, sessions.Status())
	})

	mux.HandleFunc("POST /api/session/command", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Date     string `json:"date"`
			Language string `json:"language"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		if in.Date == "" {
			in.Date = opts.Now().Format(storage.DateLayout)
		}
		if err := sessions.StartCommand(r.Context(), in.Date, in.Language); err != nil {
			writeError(w, "start command", err)
			return
		}
		writeJSON(w, http.StatusAccepted, sessions.Status())
	})

	for action, call := range map[string]func() error{
		"stop":    sessions.Stop,
		"discard": sessions.Discard,
		"reset":   sessions.Reset,
	} {
		mux.HandleFunc("POST /api/session/"+action, func(w http.ResponseWriter, r *http.Request) {
			if err := call(); err != nil {
				writeError(w, action+" session", err)
				return
			}
			writeJSON(w, http.StatusOK, sessions.Status())
		})
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !idPattern.MatchString(id) {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownAppointment), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidAppointment), errors.Is(err, session.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotConfigured), errors.Is(err, session.ErrManagerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("api request failed", "action", action, "error", err)
	}
	writeJSONError(w, status, fmt.Sprintf("%s: %v", action, err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
