package valid

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// Draft selects the JSON Schema draft a schema is checked and evaluated under.
type Draft int

const (
	// Draft4 is JSON Schema draft-04, the default.
	Draft4 Draft = iota
	// Draft6 is JSON Schema draft-06.
	Draft6
	// Draft7 is JSON Schema draft-07.
	Draft7
	// DraftHybrid accepts keywords from every supported draft.
	DraftHybrid
)

func (d Draft) String() string {
	switch d {
	case Draft4:
		return "draft-04"
	case Draft6:
		return "draft-06"
	case Draft7:
		return "draft-07"
	case DraftHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("draft(%d)", int(d))
	}
}

// ParseDraft parses names like "draft-04", "draft4" or "hybrid".
func ParseDraft(name string) (Draft, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "draft-04", "draft4", "4":
		return Draft4, nil
	case "draft-06", "draft6", "6":
		return Draft6, nil
	case "draft-07", "draft7", "7":
		return Draft7, nil
	case "hybrid":
		return DraftHybrid, nil
	default:
		return Draft4, fmt.Errorf("unsupported schema draft %q", name)
	}
}

func (d Draft) engine() gojsonschema.Draft {
	switch d {
	case Draft6:
		return gojsonschema.Draft6
	case Draft7:
		return gojsonschema.Draft7
	case DraftHybrid:
		return gojsonschema.Hybrid
	default:
		return gojsonschema.Draft4
	}
}

type schemaOptions struct {
	draft Draft
}

// SchemaOption configures how a schema is checked and compiled.
type SchemaOption func(*schemaOptions)

// WithDraft sets the draft used when the schema has no "$schema" keyword.
func WithDraft(d Draft) SchemaOption {
	return func(o *schemaOptions) {
		o.draft = d
	}
}

// CheckSchema reports whether schema is a well-formed JSON Schema: valid
// against its draft's meta-schema with every "$ref" resolvable. Failures are
// returned as *SchemaDefinitionError.
//
// The schema may be raw JSON ([]byte, string, json.RawMessage), a
// gojsonschema.JSONLoader or an already parsed document such as a
// map[string]any.
func CheckSchema(schema any, opts ...SchemaOption) error {
	_, err := compileSchema(schema, opts...)
	return err
}

// compiledSchema is a checked schema together with its canonical JSON form.
type compiledSchema struct {
	schema *gojsonschema.Schema
	source []byte
	draft  Draft
}

func compileSchema(schema any, opts ...SchemaOption) (*compiledSchema, error) {
	o := schemaOptions{draft: Draft4}
	for _, opt := range opts {
		opt(&o)
	}

	document, err := schemaDocument(schema)
	if err != nil {
		return nil, &SchemaDefinitionError{Err: err}
	}

	// Only objects (and, from draft-06 on, booleans) are schemas. The engine
	// would accept other values silently.
	switch document.(type) {
	case map[string]any:
	case bool:
		if o.draft == Draft4 {
			return nil, &SchemaDefinitionError{Err: errors.New("boolean schemas require draft-06 or later")}
		}
	default:
		return nil, &SchemaDefinitionError{Err: fmt.Errorf("schema must be a JSON object, got %T", document)}
	}

	loader := gojsonschema.NewSchemaLoader()
	loader.Draft = o.draft.engine()
	loader.AutoDetect = true
	loader.Validate = true

	compiled, err := loader.Compile(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, &SchemaDefinitionError{Err: err}
	}

	source, err := json.Marshal(document)
	if err != nil {
		return nil, &SchemaDefinitionError{Err: err}
	}

	return &compiledSchema{schema: compiled, source: source, draft: o.draft}, nil
}

// schemaDocument turns any accepted schema form into a generic document.
func schemaDocument(schema any) (any, error) {
	switch s := schema.(type) {
	case nil:
		return nil, errors.New("schema cannot be nil")
	case []byte:
		return decodeSchemaText(s)
	case json.RawMessage:
		return decodeSchemaText(s)
	case string:
		return decodeSchemaText([]byte(s))
	case gojsonschema.JSONLoader:
		doc, err := s.LoadJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}
		return normalize(doc)
	default:
		doc, err := normalize(s)
		if err != nil {
			return nil, fmt.Errorf("schema is not representable as JSON: %w", err)
		}
		return doc, nil
	}
}

func decodeSchemaText(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("schema cannot be empty")
	}
	doc, err := ParsePayload(data)
	if err != nil {
		var pe *PayloadParseError
		if errors.As(err, &pe) {
			err = pe.Err
		}
		return nil, fmt.Errorf("schema is not valid JSON: %w", err)
	}
	return doc, nil
}
