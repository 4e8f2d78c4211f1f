package session

import (
	"strings"

	"github.com/railtonbritomcp/App-agendei/internal/storage"
	"github.com/railtonbritomcp/App-agendei/internal/transcribe"
)

const createAppointmentTool = "create_appointment"

var commandTools = []transcribe.Tool{{
	Name:        createAppointmentTool,
	Description: "Create an appointment in the agenda.",
	Params: []transcribe.Param{
		{Name: "title", Type: "string", Required: true},
		{Name: "date", Type: "string", Required: true},
		{Name: "time", Type: "string", Required: true},
		{Name: "duration", Type: "number"},
		{Name: "description", Type: "string"},
	},
}}

// appointmentFromArgs maps tool call arguments onto an appointment. The store
// normalizes casing and the default duration.
func appointmentFromArgs(args map[string]any, fallbackDate string) storage.Appointment {
	str := func(key string) string {
		v, _ := args[key].(string)
		return strings.TrimSpace(v)
	}

	a := storage.Appointment{
		Title:       str("title"),
		Date:        str("date"),
		Time:        str("time"),
		Description: str("description"),
	}
	if a.Date == "" {
		a.Date = fallbackDate
	}
	switch d := args["duration"].(type) {
	case float64:
		a.Duration = int(d)
	case int:
		a.Duration = d
	}
	return a
}
