package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	_ "github.com/santhosh-tekuri/jsonschema/v5/httploader" // http(s) schema URLs
)

//go:embed metadata.schema.json
var embeddedSchemaData []byte

const embeddedSchemaName = "metadata.schema.json"

// Validator validates presence metadata against a JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
	source string
}

// NewValidator creates a validator from the embedded metadata schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(embeddedSchemaName, bytes.NewReader(embeddedSchemaData)); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema resource: %w", err)
	}

	schema, err := compiler.Compile(embeddedSchemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema: %w", err)
	}

	return &Validator{schema: schema, source: embeddedSchemaName}, nil
}

// NewValidatorFromURL compiles a schema fetched from url. An empty url
// selects the embedded schema.
func NewValidatorFromURL(url string) (*Validator, error) {
	if url == "" {
		return NewValidator()
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata schema from %s: %w", url, err)
	}
	return &Validator{schema: schema, source: url}, nil
}

// Source names the schema the validator was built from.
func (v *Validator) Source() string {
	return v.source
}

// Validate validates any value that marshals to a JSON object.
func (v *Validator) Validate(data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal document to JSON for validation: %w", err)
	}
	return v.ValidateJSON(jsonData)
}

// ValidateJSON validates raw JSON bytes.
func (v *Validator) ValidateJSON(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			return &ValidationError{Messages: messages}
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed:\n%s", strings.Join(e.Messages, "\n"))
}

// collectErrors recursively collects the leaf validation errors.
func collectErrors(err *jsonschema.ValidationError, messages *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*messages = append(*messages, fmt.Sprintf("- %s: %s", location, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
