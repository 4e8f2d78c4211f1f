package transcribe

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
)

const defaultGeminiLiveModel = "gemini-2.5-flash-native-audio-preview-12-2025"

// liveSession is the subset of *genai.Session the channel drives.
type liveSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	SendToolResponse(input genai.LiveToolResponseInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

type Gemini struct {
	model   string
	connect func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveSession, error)
}

func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	config := &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI}
	if opts.BaseURL != "" {
		config.HTTPOptions.BaseURL = opts.BaseURL
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultGeminiLiveModel
	}

	return &Gemini{
		model: model,
		connect: func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveSession, error) {
			return client.Live.Connect(ctx, model, cfg)
		},
	}, nil
}

func liveConfig(cfg Config) *genai.LiveConnectConfig {
	modality := cfg.Modality
	if modality == "" {
		modality = ModalityAudio
	}

	lc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.Modality(modality)},
	}
	if cfg.SystemInstruction != "" {
		lc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}
	if cfg.InputTranscription {
		lc.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if len(cfg.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(cfg.Tools))
		for _, tool := range cfg.Tools {
			decls = append(decls, functionDeclaration(tool))
		}
		lc.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return lc
}

func functionDeclaration(tool Tool) *genai.FunctionDeclaration {
	schema := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	for _, p := range tool.Params {
		typ := genai.TypeString
		if p.Type == "number" {
			typ = genai.TypeNumber
		}
		schema.Properties[p.Name] = &genai.Schema{Type: typ}
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{Name: tool.Name, Description: tool.Description, Parameters: schema}
}

// Connect dials the Live API and waits for setup to complete before returning.
func (g *Gemini) Connect(ctx context.Context, cfg Config) (Channel, error) {
	session, err := g.connect(ctx, g.model, liveConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini live connect: %v", ErrChannel, err)
	}

	ready := make(chan error, 1)
	go func() {
		for {
			msg, err := session.Receive()
			if err != nil {
				ready <- err
				return
			}
			if msg.SetupComplete != nil {
				ready <- nil
				return
			}
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("%w: gemini live setup: %v", ErrChannel, err)
		}
	case <-ctx.Done():
		_ = session.Close()
		return nil, fmt.Errorf("%w: gemini live setup: %v", ErrChannel, ctx.Err())
	}

	ch := &geminiChannel{session: session}
	ch.stream = newStream(ch.sendFrame, session.Close)
	ch.start()
	go ch.receiveLoop()
	return ch, nil
}

type geminiChannel struct {
	*stream
	session liveSession
}

func (c *geminiChannel) sendFrame(f audio.Frame) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: f.Data, MIMEType: f.MIMEType},
	})
}

func (c *geminiChannel) RespondTool(id, name string, result map[string]any) error {
	select {
	case <-c.stop:
		return ErrClosed
	default:
	}
	err := c.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{{ID: id, Name: name, Response: result}},
	})
	if err != nil {
		return fmt.Errorf("send tool response: %w", err)
	}
	return nil
}

func (c *geminiChannel) receiveLoop() {
	for {
		msg, err := c.session.Receive()
		if err != nil {
			select {
			case <-c.stop:
				c.finish()
			default:
				c.fail(err)
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *geminiChannel) dispatch(msg *genai.LiveServerMessage) {
	if msg.ToolCall != nil {
		for _, fc := range msg.ToolCall.FunctionCalls {
			if fc == nil {
				continue
			}
			c.emit(Event{Kind: EventToolCall, ToolCall: &ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args}})
		}
	}
	if msg.ServerContent != nil && msg.ServerContent.InputTranscription != nil {
		c.fragment(msg.ServerContent.InputTranscription.Text)
	}
}
