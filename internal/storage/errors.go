package storage

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAppointment = errors.New("invalid appointment")
)
