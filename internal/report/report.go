package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Report is the structured meeting memory produced from one transcript.
type Report struct {
	Summary        string   `json:"summary"`
	FullTranscript string   `json:"fullTranscript"`
	Decisions      []string `json:"decisions"`
	ActionItems    []string `json:"actionItems"`
}

var requiredKeys = []string{"summary", "fullTranscript", "decisions", "actionItems"}

// Parse decodes a raw model response. Every key must be present with the
// right JSON type; anything else is ErrMalformedReport.
func Parse(raw string) (Report, error) {
	body := stripFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	for _, key := range requiredKeys {
		v, ok := fields[key]
		if !ok || string(v) == "null" {
			return Report{}, fmt.Errorf("%w: missing %q", ErrMalformedReport, key)
		}
	}

	var r Report
	if err := json.Unmarshal(fields["summary"], &r.Summary); err != nil {
		return Report{}, fmt.Errorf("%w: summary: %v", ErrMalformedReport, err)
	}
	if err := json.Unmarshal(fields["fullTranscript"], &r.FullTranscript); err != nil {
		return Report{}, fmt.Errorf("%w: fullTranscript: %v", ErrMalformedReport, err)
	}
	if err := json.Unmarshal(fields["decisions"], &r.Decisions); err != nil {
		return Report{}, fmt.Errorf("%w: decisions: %v", ErrMalformedReport, err)
	}
	if err := json.Unmarshal(fields["actionItems"], &r.ActionItems); err != nil {
		return Report{}, fmt.Errorf("%w: actionItems: %v", ErrMalformedReport, err)
	}

	r.Summary = strings.TrimSpace(r.Summary)
	r.FullTranscript = strings.TrimSpace(r.FullTranscript)
	r.Decisions = normalizeItems(r.Decisions)
	r.ActionItems = normalizeItems(r.ActionItems)
	return r, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// normalizeItems trims and uppercases list entries, dropping empty ones.
func normalizeItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// NormalizeEdit applies the casing policy to a user-edited report.
func NormalizeEdit(r Report) Report {
	r.Summary = strings.TrimSpace(r.Summary)
	r.Decisions = normalizeItems(r.Decisions)
	r.ActionItems = normalizeItems(r.ActionItems)
	return r
}
