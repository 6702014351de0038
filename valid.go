package valid

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Validator encapsulates a checked, compiled JSON Schema. It is immutable and
// safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
	source []byte
	draft  Draft
}

// New creates a new validator from a schema file. Files ending in .yaml or
// .yml are read as YAML, everything else as JSON.
func New(schemaPath string, opts ...SchemaOption) (*Validator, error) {
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file '%s': %w", schemaPath, err)
	}

	switch strings.ToLower(filepath.Ext(schemaPath)) {
	case ".yaml", ".yml":
		var document any
		if err := yaml.Unmarshal(schemaBytes, &document); err != nil {
			return nil, &SchemaDefinitionError{Err: fmt.Errorf("schema '%s' is not valid YAML: %w", schemaPath, err)}
		}
		validator, err := NewFromDocument(document, opts...)
		if err != nil {
			return nil, fmt.Errorf("schema '%s': %w", schemaPath, err)
		}
		return validator, nil
	}

	validator, err := NewFromBytes(schemaBytes, opts...)
	if err != nil {
		return nil, fmt.Errorf("schema '%s': %w", schemaPath, err)
	}
	return validator, nil
}

// NewFromString creates a validator from a JSON Schema string.
func NewFromString(schemaJSON string, opts ...SchemaOption) (*Validator, error) {
	return NewFromDocument(schemaJSON, opts...)
}

// NewFromBytes creates a validator from the bytes of a JSON Schema.
func NewFromBytes(schemaBytes []byte, opts ...SchemaOption) (*Validator, error) {
	return NewFromDocument(schemaBytes, opts...)
}

// NewFromDocument creates a validator from any schema form CheckSchema accepts.
// The schema is checked before the validator is returned, so a malformed
// schema fails here with *SchemaDefinitionError.
func NewFromDocument(schema any, opts ...SchemaOption) (*Validator, error) {
	compiled, err := compileSchema(schema, opts...)
	if err != nil {
		return nil, err
	}

	return &Validator{
		schema: compiled.schema,
		source: compiled.source,
		draft:  compiled.draft,
	}, nil
}

// Source returns the schema as canonical JSON.
func (v *Validator) Source() []byte {
	return bytes.Clone(v.source)
}

// Draft returns the draft the schema was checked under.
func (v *Validator) Draft() Draft {
	return v.draft
}

// Validate evaluates document against the schema and returns the violations
// sorted by path. An empty result means the document conforms. The error is
// non-nil only when the document cannot be represented as JSON.
func (v *Validator) Validate(document any) (Violations, error) {
	generic, err := normalize(document)
	if err != nil {
		return nil, fmt.Errorf("document is not representable as JSON: %w", err)
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return nil, fmt.Errorf("schema evaluation failed: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	return buildViolations(generic, result.Errors()), nil
}

// Enforce returns document unchanged when it conforms, or a *ValidationError
// carrying the ordered violations when it does not.
func (v *Validator) Enforce(document any) (any, error) {
	violations, err := v.Validate(document)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return document, nil
}

// ValidateRequest validates the JSON body of an HTTP request and returns the
// parsed document. The body is restored so it can be read again.
func (v *Validator) ValidateRequest(r *http.Request) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	if r.Body == nil {
		return nil, &PayloadParseError{Err: errEmptyPayload}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	// Allows to reuse the request body
	r.Body = io.NopCloser(bytes.NewReader(body))

	return v.ValidateBytes(body)
}

// ValidateBytes parses JSON bytes and validates the result against the schema.
func (v *Validator) ValidateBytes(jsonData []byte) (any, error) {
	document, err := ParsePayload(jsonData)
	if err != nil {
		return nil, err
	}
	return v.Enforce(document)
}

// ValidateString validates a JSON string against the schema.
func (v *Validator) ValidateString(jsonString string) (any, error) {
	return v.ValidateBytes([]byte(jsonString))
}

// ValidateInterface validates any Go value against the schema, using its JSON
// encoding. The value itself is returned on success.
func (v *Validator) ValidateInterface(data any) (any, error) {
	if _, err := json.Marshal(data); err != nil {
		return nil, fmt.Errorf("failed to serialize data to JSON: %w", err)
	}
	return v.Enforce(data)
}

// CheckData checks schema and then validates document against it, for one-off
// checks that are not tied to a request.
func CheckData(schema, document any, opts ...SchemaOption) error {
	validator, err := NewFromDocument(schema, opts...)
	if err != nil {
		return err
	}
	_, err = validator.Enforce(document)
	return err
}
