package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
)

var deepgramInit sync.Once

// deepgramConn is the subset of the SDK websocket client the channel drives.
type deepgramConn interface {
	Connect() bool
	Write(p []byte) (int, error)
	Stop()
}

type Deepgram struct {
	apiKey string
	model  string
	dial   func(ctx context.Context, cfg Config, cb api.LiveMessageCallback) (deepgramConn, error)
}

func NewDeepgram(opts Options) *Deepgram {
	deepgramInit.Do(func() {
		client.Init(client.InitLib{LogLevel: client.LogLevelDefault})
	})

	d := &Deepgram{apiKey: opts.APIKey, model: opts.Model}
	if d.model == "" {
		d.model = "nova-2"
	}
	d.dial = d.defaultDial
	return d
}

func (d *Deepgram) defaultDial(ctx context.Context, cfg Config, cb api.LiveMessageCallback) (deepgramConn, error) {
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}

	cOptions := &interfaces.ClientOptions{EnableKeepAlive: true}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:       d.model,
		Language:    language,
		Punctuate:   true,
		SmartFormat: true,
		Encoding:    "linear16",
		SampleRate:  sampleRate,
		Channels:    1,
	}
	return client.NewWSUsingCallback(ctx, d.apiKey, cOptions, tOptions, cb)
}

// Connect opens a live transcription socket. Deepgram always transcribes its
// input and takes no instruction, so cfg.SystemInstruction, cfg.Modality and
// cfg.InputTranscription are not used; only Language and SampleRate apply.
func (d *Deepgram) Connect(ctx context.Context, cfg Config) (Channel, error) {
	ch := &deepgramChannel{}
	conn, err := d.dial(ctx, cfg, deepgramCallback{ch: ch})
	if err != nil {
		return nil, fmt.Errorf("%w: deepgram client: %v", ErrChannel, err)
	}
	if ok := conn.Connect(); !ok {
		conn.Stop()
		return nil, fmt.Errorf("%w: deepgram connect failed", ErrChannel)
	}

	ch.conn = conn
	ch.stream = newStream(ch.sendFrame, func() error {
		conn.Stop()
		return nil
	})
	ch.live.Store(ch.stream)
	ch.start()
	return ch, nil
}

type deepgramChannel struct {
	*stream
	conn deepgramConn
	live atomic.Pointer[stream]
}

func (c *deepgramChannel) sendFrame(f audio.Frame) error {
	_, err := c.conn.Write(f.Data)
	return err
}

func (c *deepgramChannel) RespondTool(string, string, map[string]any) error {
	return ErrToolsUnsupported
}

// deepgramCallback adapts SDK callbacks onto the channel's event stream.
// Callbacks that arrive before Connect has returned are dropped.
type deepgramCallback struct {
	ch *deepgramChannel
}

func (c deepgramCallback) live() *stream {
	if c.ch == nil {
		return nil
	}
	return c.ch.live.Load()
}

func (c deepgramCallback) Open(*api.OpenResponse) error {
	slog.Info("connected to Deepgram")
	return nil
}

func (c deepgramCallback) Message(mr *api.MessageResponse) error {
	s := c.live()
	if s == nil || !mr.IsFinal || len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	s.fragment(strings.TrimSpace(mr.Channel.Alternatives[0].Transcript))
	return nil
}

func (c deepgramCallback) Metadata(*api.MetadataResponse) error { return nil }

func (c deepgramCallback) SpeechStarted(*api.SpeechStartedResponse) error { return nil }

func (c deepgramCallback) UtteranceEnd(*api.UtteranceEndResponse) error { return nil }

func (c deepgramCallback) Close(*api.CloseResponse) error {
	slog.Info("disconnected from Deepgram")
	// The SDK may invoke Close from inside Stop, so finish off the callback goroutine.
	if s := c.live(); s != nil {
		go s.finish()
	}
	return nil
}

func (c deepgramCallback) Error(er *api.ErrorResponse) error {
	slog.Warn("deepgram error", "code", er.ErrCode, "description", er.Description)
	if s := c.live(); s != nil {
		err := fmt.Errorf("deepgram %s: %s", er.ErrCode, er.Description)
		go s.fail(err)
	}
	return nil
}

func (c deepgramCallback) UnhandledEvent([]byte) error { return nil }
