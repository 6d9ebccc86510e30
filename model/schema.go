package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tmc/langchaingo/llms"
	"github.com/xeipuuv/gojsonschema"

	"github.com/smallnest/ragrouter/message"
)

// ErrSchemaCoercion is returned when model output cannot be coerced into
// the requested schema.
var ErrSchemaCoercion = errors.New("model output does not match schema")

// Schema is a JSON schema used to validate structured model output.
type Schema struct {
	raw []byte
}

// SchemaFor reflects the JSON schema of T. Fields without omitempty are
// required; `jsonschema` struct tags add enums and descriptions.
func SchemaFor[T any]() (*Schema, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}

	var zero T
	s := reflector.Reflect(&zero)
	s.Version = ""

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return &Schema{raw: raw}, nil
}

// MustSchemaFor is like SchemaFor but panics on error. It is meant for
// package level variables.
func MustSchemaFor[T any]() *Schema {
	s, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the schema as JSON.
func (s *Schema) String() string {
	return string(s.raw)
}

// Validate checks document against the schema. Validation failures wrap
// ErrSchemaCoercion and list every violation.
func (s *Schema) Validate(document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(s.raw),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaCoercion, err)
	}
	if result.Valid() {
		return nil
	}

	descriptions := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		descriptions = append(descriptions, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaCoercion, strings.Join(descriptions, "; "))
}

// InvokeStructured asks m for JSON output matching schema and decodes it
// into T. The model runs in JSON mode; a reply wrapped in a Markdown code
// fence is accepted. Model errors are returned unchanged, anything wrong
// with the reply itself wraps ErrSchemaCoercion. There is no retry.
func InvokeStructured[T any](ctx context.Context, m ChatModel, turns []message.Turn, schema *Schema, opts ...llms.CallOption) (T, error) {
	var out T

	opts = append(opts, llms.WithJSONMode())
	reply, err := m.Invoke(ctx, turns, opts...)
	if err != nil {
		return out, err
	}

	document := ExtractJSON(reply.Content)
	if document == "" {
		return out, fmt.Errorf("%w: empty reply", ErrSchemaCoercion)
	}
	if schema != nil {
		if err := schema.Validate(document); err != nil {
			return out, err
		}
	}
	if err := json.Unmarshal([]byte(document), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrSchemaCoercion, err)
	}
	return out, nil
}

// ExtractJSON pulls the JSON document out of a model reply. A fenced code
// block wins over everything around it; otherwise prose before the first
// brace and after the last one is dropped.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	if open := strings.Index(content, "```"); open >= 0 {
		inner := content[open+3:]
		if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
			// drop the language tag, e.g. ```json
			inner = inner[nl+1:]
		} else {
			inner = strings.TrimPrefix(inner, "json")
		}
		if end := strings.Index(inner, "```"); end >= 0 {
			inner = inner[:end]
		}
		content = strings.TrimSpace(inner)
	}

	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return content
	}
	first, last := strings.IndexByte(content, '{'), strings.LastIndexByte(content, '}')
	if first >= 0 && last > first {
		return content[first : last+1]
	}
	return content
}
