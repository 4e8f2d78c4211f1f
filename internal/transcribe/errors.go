package transcribe

import (
	"errors"
	"fmt"
)

var (
	// ErrChannel marks failures to open the channel or unexpected drops.
	ErrChannel = errors.New("transcription channel error")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("transcription channel closed")
	// ErrQueueFull is returned by Send when the outgoing frame queue is saturated.
	ErrQueueFull = errors.New("transcription send queue full")
	// ErrToolsUnsupported is returned by providers without function calling.
	ErrToolsUnsupported = errors.New("provider does not support tool calls")
)

func wrapChannel(err error) error {
	if err == nil || errors.Is(err, ErrChannel) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrChannel, err)
}
