package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/railtonbritomcp/App-agendei/internal/llm"
)

const systemPrompt = `You turn raw meeting transcripts into a formal meeting memory.
Correct grammar and punctuation without changing meaning. Write everything in the requested language.
Return summary as natural prose, fullTranscript as the corrected transcript, decisions as the agreed decisions in order,
and actionItems as concrete next steps in order.`

var Schema = llm.Schema{
	Name: "meeting_report",
	Properties: []llm.Property{
		{Name: "summary", Type: llm.TypeString, Description: "narrative summary of the meeting"},
		{Name: "fullTranscript", Type: llm.TypeString, Description: "full corrected transcript"},
		{Name: "decisions", Type: llm.TypeStringArray, Description: "decisions made, in order"},
		{Name: "actionItems", Type: llm.TypeStringArray, Description: "action items, in order"},
	},
}

type ClientFactory func(provider, model string) (llm.Client, error)

// Generator produces reports with a single structured completion call.
// Failures are returned as-is; retrying is left to the user.
type Generator struct {
	model   string
	factory ClientFactory
}

// New returns a Generator for a provider/model_name string.
func New(model string, factory ClientFactory) *Generator {
	return &Generator{model: model, factory: factory}
}

func (g *Generator) Generate(ctx context.Context, transcript, language string) (Report, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Report{}, ErrEmptyTranscript
	}

	provider, model, err := llm.ParseModel(g.model)
	if err != nil {
		return Report{}, err
	}
	client, err := g.factory(provider, model)
	if err != nil {
		return Report{}, fmt.Errorf("create llm client: %w", err)
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Process transcript for language %s: \"%s\"", language, transcript)},
	}

	raw, err := client.CompleteJSON(ctx, messages, Schema)
	if err != nil {
		return Report{}, fmt.Errorf("generate report: %w", err)
	}
	return Parse(raw)
}
