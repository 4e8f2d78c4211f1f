package audio

import (
	"encoding/binary"
	"math"
	"strconv"
)

// DefaultSampleRate is the capture rate the transcription channels expect.
const DefaultSampleRate = 16000

// Frame is one encoded block of audio ready for the streaming channel.
type Frame struct {
	Data     []byte
	MIMEType string
}

// EncodePCM16 converts float samples in [-1, 1] to 16-bit little-endian PCM.
// Out-of-range samples are clamped and NaN encodes as silence.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sampleToInt16(s)))
	}
	return out
}

func sampleToInt16(s float32) int16 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}

// PCMMIMEType returns the encoding tag for raw PCM16 at the given rate.
func PCMMIMEType(sampleRate int) string {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return "audio/pcm;rate=" + strconv.Itoa(sampleRate)
}

// NewFrame encodes samples into a tagged frame.
func NewFrame(samples []float32, sampleRate int) Frame {
	return Frame{Data: EncodePCM16(samples), MIMEType: PCMMIMEType(sampleRate)}
}
