// Package transcribe provides duplex streaming sessions to remote
// transcription services. A Channel accepts encoded audio frames in order and
// emits incremental transcript fragments as they arrive.
package transcribe

import (
	"context"
	"fmt"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
)

type Modality string

const (
	ModalityAudio Modality = "AUDIO"
	ModalityText  Modality = "TEXT"
)

// Param is one argument of a Tool.
type Param struct {
	Name     string
	Type     string // "string" or "number"
	Required bool
}

// Tool is a function the remote side may call during the session.
type Tool struct {
	Name        string
	Description string
	Params      []Param
}

type Config struct {
	Modality           Modality
	InputTranscription bool
	SystemInstruction  string
	Language           string
	SampleRate         int
	Tools              []Tool
}

type EventKind string

const (
	EventFragment EventKind = "fragment"
	EventToolCall EventKind = "tool_call"
	EventError    EventKind = "error"
	EventClosed   EventKind = "closed"
)

type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

type Event struct {
	Kind     EventKind
	Text     string
	ToolCall *ToolCall
	Err      error
}

// Channel is an open streaming session. Send never blocks; frames are
// delivered to the remote side in the order they were sent. The Events
// channel is closed after the terminal EventClosed.
type Channel interface {
	Send(frame audio.Frame) error
	Events() <-chan Event
	RespondTool(id, name string, result map[string]any) error
	Close() error
}

// Transcriber opens channels. Connect returns only once the remote side has
// signalled that it is ready to receive audio.
type Transcriber interface {
	Connect(ctx context.Context, cfg Config) (Channel, error)
}

type Options struct {
	APIKey          string
	Model           string
	BaseURL         string
	CredentialsFile string
}

// New selects a provider implementation by name.
func New(ctx context.Context, provider string, opts Options) (Transcriber, error) {
	switch provider {
	case "", "gemini":
		return NewGemini(ctx, opts)
	case "deepgram":
		return NewDeepgram(opts), nil
	case "google-speech":
		return NewGoogleSpeech(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown transcription provider %q: supported providers are gemini, deepgram, google-speech", provider)
	}
}
