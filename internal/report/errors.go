package report

import "errors"

var (
	ErrEmptyTranscript = errors.New("transcript is empty")
	ErrMalformedReport = errors.New("malformed report")
)
