package valid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoValidatedDocument is returned when the request-scoped store is read
// before a gate has stored a validated document for the current request.
var ErrNoValidatedDocument = errors.New("no validated document in request context")

// SchemaDefinitionError reports a schema that is not itself a well-formed
// JSON Schema. It is raised when a schema is registered, never per request.
type SchemaDefinitionError struct {
	Err error
}

func (e *SchemaDefinitionError) Error() string {
	return fmt.Sprintf("invalid schema definition: %v", e.Err)
}

func (e *SchemaDefinitionError) Unwrap() error { return e.Err }

// PayloadParseError reports a payload that could not be parsed into a JSON
// document, so no schema check could run.
type PayloadParseError struct {
	Err error
}

func (e *PayloadParseError) Error() string {
	return fmt.Sprintf("malformed payload: %v", e.Err)
}

func (e *PayloadParseError) Unwrap() error { return e.Err }

// ValidationError is returned when a document fails its schema. Violations is
// never empty and is sorted by path.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		messages = append(messages, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPayloadParseError reports whether err is, or wraps, a *PayloadParseError.
func IsPayloadParseError(err error) bool {
	var pe *PayloadParseError
	return errors.As(err, &pe)
}

// IsSchemaDefinitionError reports whether err is, or wraps, a *SchemaDefinitionError.
func IsSchemaDefinitionError(err error) bool {
	var se *SchemaDefinitionError
	return errors.As(err, &se)
}
