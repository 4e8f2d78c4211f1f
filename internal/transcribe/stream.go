package transcribe

import (
	"sync"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
)

const (
	frameQueueSize = 256
	eventQueueSize = 64
)

// stream is the provider-independent half of a Channel: a FIFO frame queue
// drained by a single writer goroutine, and an event channel that is closed
// exactly once.
type stream struct {
	frames chan audio.Frame
	events chan Event
	stop   chan struct{}

	send        func(audio.Frame) error
	closeRemote func() error

	stopOnce   sync.Once
	finishOnce sync.Once
	evMu       sync.Mutex
	evClosed   bool
}

func newStream(send func(audio.Frame) error, closeRemote func() error) *stream {
	return &stream{
		frames:      make(chan audio.Frame, frameQueueSize),
		events:      make(chan Event, eventQueueSize),
		stop:        make(chan struct{}),
		send:        send,
		closeRemote: closeRemote,
	}
}

func (s *stream) start() {
	go s.writeLoop()
}

func (s *stream) writeLoop() {
	for {
		select {
		case <-s.stop:
			return
		case f := <-s.frames:
			if err := s.send(f); err != nil {
				select {
				case <-s.stop:
					return
				default:
				}
				s.fail(err)
				return
			}
		}
	}
}

func (s *stream) Send(frame audio.Frame) error {
	select {
	case <-s.stop:
		return ErrClosed
	default:
	}
	select {
	case s.frames <- frame:
		return nil
	case <-s.stop:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

func (s *stream) Events() <-chan Event {
	return s.events
}

// emit delivers an event unless the channel was closed locally; after a
// local Close nobody is reading and late events are dropped.
func (s *stream) emit(ev Event) {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if s.evClosed {
		return
	}
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.stop:
	}
}

func (s *stream) fragment(text string) {
	if text == "" {
		return
	}
	s.emit(Event{Kind: EventFragment, Text: text})
}

// fail reports a remote failure and ends the exchange.
func (s *stream) fail(err error) {
	s.emit(Event{Kind: EventError, Err: wrapChannel(err)})
	s.finish()
}

// finish emits EventClosed and closes the events channel once.
func (s *stream) finish() {
	s.finishOnce.Do(func() {
		s.emit(Event{Kind: EventClosed})
		s.halt()
		s.evMu.Lock()
		s.evClosed = true
		close(s.events)
		s.evMu.Unlock()
	})
}

func (s *stream) halt() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.closeRemote != nil {
			_ = s.closeRemote()
		}
	})
}

// Close terminates the session. Closing twice is a silent no-op.
func (s *stream) Close() error {
	s.halt()
	s.finish()
	return nil
}
