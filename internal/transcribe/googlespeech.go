package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
)

// recognizeStream is the subset of the gRPC streaming client the channel drives.
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
}

type GoogleSpeech struct {
	open func(ctx context.Context) (recognizeStream, error)
}

func NewGoogleSpeech(ctx context.Context, opts Options) (*GoogleSpeech, error) {
	var clientOpts []option.ClientOption
	switch {
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}

	c, err := speech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	return &GoogleSpeech{
		open: func(ctx context.Context) (recognizeStream, error) {
			return c.StreamingRecognize(ctx)
		},
	}, nil
}

func recognitionConfig(cfg Config) *speechpb.StreamingRecognitionConfig {
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(sampleRate),
			AudioChannelCount:          1,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
	}
}

func (g *GoogleSpeech) Connect(ctx context.Context, cfg Config) (Channel, error) {
	if len(cfg.Tools) > 0 {
		return nil, ErrToolsUnsupported
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rs, err := g.open(streamCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: open streaming recognize: %v", ErrChannel, err)
	}

	err = rs.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{StreamingConfig: recognitionConfig(cfg)},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: send streaming config: %v", ErrChannel, err)
	}

	ch := &speechChannel{rs: rs}
	ch.stream = newStream(ch.sendFrame, func() error {
		cancel()
		return nil
	})
	ch.start()
	go ch.receiveLoop()
	return ch, nil
}

type speechChannel struct {
	*stream
	rs recognizeStream
}

func (c *speechChannel) sendFrame(f audio.Frame) error {
	return c.rs.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: f.Data},
	})
}

func (c *speechChannel) RespondTool(string, string, map[string]any) error {
	return ErrToolsUnsupported
}

func (c *speechChannel) receiveLoop() {
	for {
		resp, err := c.rs.Recv()
		if err != nil {
			select {
			case <-c.stop:
				c.finish()
			default:
				if errors.Is(err, io.EOF) {
					c.finish()
				} else {
					c.fail(err)
				}
			}
			return
		}
		if resp.Error != nil && resp.Error.Code != 0 {
			c.fail(fmt.Errorf("speech status %d: %s", resp.Error.Code, resp.Error.Message))
			return
		}
		for _, result := range resp.Results {
			if !result.IsFinal || len(result.Alternatives) == 0 {
				continue
			}
			c.fragment(result.Alternatives[0].Transcript)
		}
	}
}
