package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Stream yields fixed-size blocks of mono float samples. The returned slice
// is only valid until the next Read.
type Stream interface {
	Read() ([]float32, error)
	Close() error
}

// Device opens capture streams on an input device.
type Device interface {
	Open(sampleRate, blockSize int) (Stream, error)
}

// DeviceInfo describes an input device for diagnostics.
type DeviceInfo struct {
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"max_input_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate"`
	Default           bool    `json:"default"`
}

// PortAudio is the default microphone backed by the host's default input device.
type PortAudio struct {
	mu     sync.Mutex
	closed bool
}

// NewPortAudio initializes the PortAudio library. Call Close on shutdown.
func NewPortAudio() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudio{}, nil
}

func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return portaudio.Terminate()
}

func (p *PortAudio) Open(sampleRate, blockSize int) (Stream, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrDeviceUnavailable
	}

	buf := make([]float32, blockSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), blockSize, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: open default input: %v", ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: start input stream: %v", ErrDeviceUnavailable, err)
	}
	return &paStream{stream: stream, buf: buf}, nil
}

// ListDevices enumerates input-capable devices.
func (p *PortAudio) ListDevices() ([]DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []DeviceInfo
	for _, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Default:           def != nil && def.Name == d.Name,
		})
	}
	return out, nil
}

type paStream struct {
	stream *portaudio.Stream
	buf    []float32
	once   sync.Once
}

func (s *paStream) Read() ([]float32, error) {
	if err := s.stream.Read(); err != nil {
		// An overflow only means blocks were dropped upstream; the buffer is still valid.
		if errors.Is(err, portaudio.InputOverflowed) {
			return s.buf, nil
		}
		return nil, err
	}
	return s.buf, nil
}

func (s *paStream) Close() error {
	var err error
	s.once.Do(func() {
		_ = s.stream.Abort()
		err = s.stream.Close()
	})
	return err
}
