// Package jsonschema validates JSON documents against compiled schemas.
// Schemas are compiled once and reused across iterations, since check
// predicates run on every request.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON Schema ready for repeated validation.
type Schema struct {
	compiled *jsonschema.Schema
}

// Compile parses and compiles a JSON Schema document.
func Compile(schemaJSON string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. For schemas defined
// as package-level constants.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a JSON document against the schema. It returns nil when
// the document conforms, and an error describing the first problem
// otherwise (including malformed JSON).
func (s *Schema) Validate(doc []byte) error {
	var data any
	if err := json.Unmarshal(doc, &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := s.compiled.Validate(data); err != nil {
		return err
	}
	return nil
}

// Valid reports whether the document conforms to the schema.
func (s *Schema) Valid(doc []byte) bool {
	return s.Validate(doc) == nil
}
