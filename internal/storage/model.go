package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/railtonbritomcp/App-agendei/internal/report"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultDuration = 30
)

type Appointment struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	HasReport   bool   `json:"hasReport"`
}

// Report is a persisted meeting memory. At most one exists per appointment.
type Report struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointmentId"`
	Timestamp     time.Time `json:"timestamp"`
	report.Report
}

// normalizeAppointment uppercases title and description and fills defaults.
func normalizeAppointment(a Appointment) (Appointment, error) {
	a.Title = strings.ToUpper(strings.TrimSpace(a.Title))
	a.Description = strings.ToUpper(strings.TrimSpace(a.Description))
	a.Date = strings.TrimSpace(a.Date)
	a.Time = strings.TrimSpace(a.Time)

	if a.Title == "" {
		return a, fmt.Errorf("%w: title is required", ErrInvalidAppointment)
	}
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return a, fmt.Errorf("%w: date %q must be yyyy-mm-dd", ErrInvalidAppointment, a.Date)
	}
	if _, err := time.Parse(TimeLayout, a.Time); err != nil {
		return a, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidAppointment, a.Time)
	}
	if a.Duration <= 0 {
		a.Duration = DefaultDuration
	}
	return a, nil
}
