/*
Package valid provides a JSON Schema validation gate for HTTP handlers.

A gate checks its schema once, when the route is wired up, validates the JSON
payload of every request before the handler runs and hands the validated
document to the handler through the request's context.Context.

# Main Features

- Schema well-formedness check at registration time (meta-schema + $ref resolution)
- Deterministic, path-ordered violation lists
- Typed errors: SchemaDefinitionError, PayloadParseError, ValidationError, ErrNoValidatedDocument
- net/http middleware compatible with routers such as chi
- Request-scoped access to the validated document, isolated per request
- Named schema registry loaded from JSON or YAML files
- Prometheus metrics and zerolog logging

# Registering a Gate

A malformed schema fails when the gate is built, never at request time:

	gate, err := valid.NewGate(`{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "object",
		"required": ["a"]
	}`)
	if err != nil {
		log.Fatal(err) // *valid.SchemaDefinitionError
	}

	http.HandleFunc("/", gate.Wrap(helloHandler))

With chi, Gate.Handler is a regular middleware:

	r.With(gate.Handler).Post("/signup", signupHandler)

# Reading the Validated Document

	func signupHandler(w http.ResponseWriter, r *http.Request) {
		doc, err := valid.Validated(r.Context())
		if err != nil {
			// valid.ErrNoValidatedDocument: the handler is not behind a gate
		}
		...
	}

ValidatedAs decodes it into a struct:

	type Signup struct {
		Email string `json:"email"`
	}

	signup, err := valid.ValidatedAs[Signup](r.Context())

The document is the payload exactly as sent; numbers are json.Number and no
defaults are applied.

# Errors

Rejected requests never reach the handler. The gate passes the error to its
ErrorHandlerFunc; DefaultErrorHandler responds with:

	400 {"error": "invalid request payload", "details": [violations...]}   *ValidationError
	400 {"error": "malformed payload: ..."}                                *PayloadParseError
	413 {"error": "request body too large"}                                *http.MaxBytesError

Violations are sorted by path (a JSON Pointer in text form), then by failed
constraint, then by message, so the same document always yields the same list.

Outside of HTTP, Guard runs the same pipeline and returns the typed errors:

	err := gate.Guard(ctx, payload, func(ctx context.Context) error {
		doc := valid.MustValidated(ctx)
		...
	})

and CheckData validates an arbitrary document:

	if err := valid.CheckData(schema, document); err != nil {
		var ve *valid.ValidationError
		if errors.As(err, &ve) { ... }
	}

# Multiple Schemas

	reg := valid.NewRegistry()
	if _, err := reg.LoadDir("schemas"); err != nil {
		log.Fatal(err)
	}
	userGate, err := reg.Gate("user")

# Compatibility

Schemas are checked against JSON Schema draft-04 unless they declare another
draft with "$schema" or WithDraft selects one. Keyword semantics are those of
github.com/xeipuuv/gojsonschema.
*/
package valid
