package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultBlockSize is the number of samples delivered per frame.
const DefaultBlockSize = 4096

type CaptureConfig struct {
	SampleRate int
	BlockSize  int
	// OnError is invoked once from the capture goroutine if the device fails
	// while the capture is still open.
	OnError func(error)
}

// Capture owns an open microphone stream and pumps encoded frames to a sink
// from its own goroutine, in capture order.
type Capture struct {
	stream     Stream
	sink       func(Frame)
	sampleRate int
	onError    func(error)

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// OpenCapture acquires the device and starts delivering frames to sink.
// sink must not block.
func OpenCapture(ctx context.Context, device Device, cfg CaptureConfig, sink func(Frame)) (*Capture, error) {
	if device == nil {
		return nil, ErrDeviceUnavailable
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}

	stream, err := device.Open(cfg.SampleRate, cfg.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", wrapDevice(err))
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c := &Capture{
		stream:     stream,
		sink:       sink,
		sampleRate: cfg.SampleRate,
		onError:    cfg.OnError,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go c.run(loopCtx)
	return c, nil
}

func (c *Capture) run(ctx context.Context) {
	defer close(c.done)
	for {
		if ctx.Err() != nil {
			return
		}
		samples, err := c.stream.Read()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if c.onError != nil {
				c.onError(fmt.Errorf("%w: read: %v", ErrDeviceUnavailable, err))
			}
			return
		}
		c.sink(NewFrame(samples, c.sampleRate))
	}
}

// Close stops the read loop and releases the device. Calling Close on a
// closed capture is a no-op.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	err := c.stream.Close()
	<-c.done
	if err != nil {
		return fmt.Errorf("close capture stream: %w", err)
	}
	return nil
}

func wrapDevice(err error) error {
	if errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}
