package llm

import "encoding/json"

type PropertyType string

const (
	TypeString      PropertyType = "string"
	TypeStringArray PropertyType = "string_array"
)

type Property struct {
	Name        string
	Type        PropertyType
	Description string
}

// Schema describes a flat JSON object response. Every property is required.
type Schema struct {
	Name       string
	Properties []Property
}

func (s Schema) Required() []string {
	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	return names
}

// JSONSchema renders s as a JSON Schema document.
func (s Schema) JSONSchema() json.RawMessage {
	props := make(map[string]any, len(s.Properties))
	for _, p := range s.Properties {
		prop := map[string]any{"type": "string"}
		if p.Type == TypeStringArray {
			prop = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
	}

	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             s.Required(),
		"additionalProperties": false,
	}
	raw, _ := json.Marshal(doc)
	return raw
}
