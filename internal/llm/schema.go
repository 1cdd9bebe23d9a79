package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

// FieldType is the JSON type a schema field must have
type FieldType string

const (
	TypeString     FieldType = "string"
	TypeStringList FieldType = "string_list"
)

// Field describes one property of a structured output
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	NonEmpty    bool // Strings must contain non-whitespace text
}

// Schema is an explicit descriptor of a structured output. It renders the
// JSON Schema sent to providers and validates what comes back.
type Schema struct {
	Name   string
	Fields []Field
}

// AnswerSchema is the shape of a chat answer
var AnswerSchema = &Schema{
	Name: "chat_response",
	Fields: []Field{
		{Name: "answer", Type: TypeString, Required: true, NonEmpty: true, Description: "The answer to the user's question"},
		{Name: "sources", Type: TypeStringList, Required: true, Description: "Context URLs supporting the answer, most relevant first"},
	},
}

// JSONSchema renders the descriptor as a strict JSON Schema object
func (s *Schema) JSONSchema() jsonschema.Definition {
	def := jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           make(map[string]jsonschema.Definition, len(s.Fields)),
		AdditionalProperties: false,
	}

	for _, f := range s.Fields {
		prop := jsonschema.Definition{Description: f.Description}
		switch f.Type {
		case TypeStringList:
			prop.Type = jsonschema.Array
			prop.Items = &jsonschema.Definition{Type: jsonschema.String}
		default:
			prop.Type = jsonschema.String
		}
		def.Properties[f.Name] = prop
		if f.Required {
			def.Required = append(def.Required, f.Name)
		}
	}

	return def
}

// Validate checks raw against the descriptor. Every failure wraps
// model.ErrSchemaViolation.
func (s *Schema) Validate(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", model.ErrSchemaViolation, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: null document", model.ErrSchemaViolation)
	}

	known := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = true

		value, present := fields[f.Name]
		if !present {
			if f.Required {
				return fmt.Errorf("%w: missing field %q", model.ErrSchemaViolation, f.Name)
			}
			continue
		}
		if err := f.check(value); err != nil {
			return fmt.Errorf("%w: field %q: %v", model.ErrSchemaViolation, f.Name, err)
		}
	}

	var extra []string
	for name := range fields {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("%w: unexpected fields %s", model.ErrSchemaViolation, strings.Join(extra, ", "))
	}

	return nil
}

func (f Field) check(value json.RawMessage) error {
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return fmt.Errorf("must not be null")
	}

	switch f.Type {
	case TypeStringList:
		var list []string
		if err := json.Unmarshal(value, &list); err != nil {
			return fmt.Errorf("expected array of strings")
		}
	default:
		var str string
		if err := json.Unmarshal(value, &str); err != nil {
			return fmt.Errorf("expected string")
		}
		if f.NonEmpty && strings.TrimSpace(str) == "" {
			return fmt.Errorf("must not be empty")
		}
	}
	return nil
}

// Decode validates raw and then unmarshals it into out
func (s *Schema) Decode(raw []byte, out any) error {
	if err := s.Validate(raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", model.ErrSchemaViolation, err)
	}
	return nil
}
