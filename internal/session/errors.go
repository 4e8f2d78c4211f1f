package session

import "errors"

var (
	// ErrInvalidTransition is returned when an action is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnknownAppointment is returned by StartMeeting for a missing appointment.
	ErrUnknownAppointment = errors.New("unknown appointment")
	// ErrNotConfigured is returned when a required collaborator is missing.
	ErrNotConfigured = errors.New("not configured")
	// ErrManagerClosed is returned by every call after Close.
	ErrManagerClosed = errors.New("session manager closed")
)

// ErrInvalidDate is returned by StartCommand for a malformed date.
var ErrInvalidDate = errors.New("invalid date")
