package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/railtonbritomcp/App-agendei/internal/llm"
)

type mockLLMClient struct {
	calls        int
	response     string
	err          error
	lastMessages []llm.Message
	lastSchema   llm.Schema
}

func (m *mockLLMClient) CompleteJSON(_ context.Context, messages []llm.Message, schema llm.Schema) (string, error) {
	m.calls++
	m.lastMessages = append([]llm.Message(nil), messages...)
	m.lastSchema = schema
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func newTestGenerator(t *testing.T, client llm.Client) *Generator {
	t.Helper()
	return New("gemini/gemini-3-pro-preview", func(provider, model string) (llm.Client, error) {
		if provider != "gemini" || model != "gemini-3-pro-preview" {
			t.Fatalf("unexpected provider/model %q/%q", provider, model)
		}
		return client, nil
	})
}

func TestGenerateNormalizesCasing(t *testing.T) {
	client := &mockLLMClient{response: `{
		"summary": "  The team agreed on the Q3 roadmap.  ",
		"fullTranscript": "We agreed on the roadmap.",
		"decisions": ["ship beta in june", "  "],
		"actionItems": [" send deck to board ", "book venue"]
	}`}

	r, err := newTestGenerator(t, client).Generate(context.Background(), "  we agreed on the roadmap ", "pt-BR")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if r.Summary != "The team agreed on the Q3 roadmap." {
		t.Fatalf("expected summary casing preserved, got %q", r.Summary)
	}
	if len(r.Decisions) != 1 || r.Decisions[0] != "SHIP BETA IN JUNE" {
		t.Fatalf("unexpected decisions %#v", r.Decisions)
	}
	if len(r.ActionItems) != 2 || r.ActionItems[0] != "SEND DECK TO BOARD" || r.ActionItems[1] != "BOOK VENUE" {
		t.Fatalf("unexpected action items %#v", r.ActionItems)
	}

	if client.calls != 1 {
		t.Fatalf("expected one call, got %d", client.calls)
	}
	if client.lastSchema.Name != "meeting_report" || len(client.lastSchema.Required()) != 4 {
		t.Fatalf("unexpected schema %#v", client.lastSchema)
	}
	user := client.lastMessages[len(client.lastMessages)-1]
	if user.Role != "user" || user.Content != `Process transcript for language pt-BR: "we agreed on the roadmap"` {
		t.Fatalf("unexpected user message %#v", user)
	}
}

func TestGenerateRejectsEmptyTranscript(t *testing.T) {
	client := &mockLLMClient{}
	_, err := newTestGenerator(t, client).Generate(context.Background(), " \n\t", "en-US")
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("expected no remote call, got %d", client.calls)
	}
}

func TestGenerateDoesNotRetry(t *testing.T) {
	client := &mockLLMClient{err: errors.New("503 overloaded")}
	_, err := newTestGenerator(t, client).Generate(context.Background(), "hello", "en-US")
	if err == nil || !strings.Contains(err.Error(), "503 overloaded") {
		t.Fatalf("expected transport error, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", client.calls)
	}
}

func TestGenerateMalformedResponse(t *testing.T) {
	client := &mockLLMClient{response: `{"summary": "ok", "decisions": []}`}
	_, err := newTestGenerator(t, client).Generate(context.Background(), "hello", "en-US")
	if !errors.Is(err, ErrMalformedReport) {
		t.Fatalf("expected ErrMalformedReport, got %v", err)
	}
}

func TestGenerateInvalidModel(t *testing.T) {
	g := New("gemini", func(string, string) (llm.Client, error) {
		t.Fatal("factory should not be called")
		return nil, nil
	})
	if _, err := g.Generate(context.Background(), "hello", "en-US"); err == nil {
		t.Fatal("expected error for invalid model string")
	}
}

func TestGenerateFactoryError(t *testing.T) {
	g := New("openai/gpt-4o", func(string, string) (llm.Client, error) {
		return nil, errors.New("no key")
	})
	_, err := g.Generate(context.Background(), "hello", "en-US")
	if err == nil || !strings.Contains(err.Error(), "create llm client") {
		t.Fatalf("expected factory error, got %v", err)
	}
}
