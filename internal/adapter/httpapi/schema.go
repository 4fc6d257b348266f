package httpapi

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

const searchRequestSchema = `{
	"type": "object",
	"properties": {
		"query":  {"type": "string", "minLength": 1, "maxLength": 2048},
		"layout": {"type": "string", "maxLength": 128}
	},
	"required": ["query"]
}`

type requestSchema struct {
	schema *jsonschema.Schema
}

func compileRequestSchema() (*requestSchema, error) {
	schema, err := jsonschema.NewCompiler().Compile([]byte(searchRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("compile search request schema: %w", err)
	}
	return &requestSchema{schema: schema}, nil
}

// validate checks a decoded JSON document against the search request schema.
func (s *requestSchema) validate(doc any) error {
	result := s.schema.Validate(doc)
	if !result.IsValid() {
		return fmt.Errorf("%s", result.Error())
	}
	return nil
}
