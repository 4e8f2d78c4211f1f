package audio

import "errors"

// ErrDeviceUnavailable is returned when the microphone is absent, denied, or fails mid-capture.
var ErrDeviceUnavailable = errors.New("audio device unavailable")
