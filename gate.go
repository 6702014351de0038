package valid

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes limits how much of a request body a gate reads.
const DefaultMaxBodyBytes int64 = 1 << 20

// ErrorHandlerFunc renders an error raised by a gate. err is one of
// *PayloadParseError, *ValidationError, *http.MaxBytesError or an
// operational error.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse represents the standard http error response
type ErrorResponse struct {
	Error   string     `json:"error"`
	Details Violations `json:"details,omitempty"`
}

// Gate validates a request payload against a checked schema before handing
// the request to the wrapped handler. A Gate is safe for concurrent use.
type Gate struct {
	validator    *Validator
	name         string
	skipMethods  map[string]struct{}
	errorHandler ErrorHandlerFunc
	maxBodyBytes int64
	log          zerolog.Logger
	metrics      *Metrics
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithName sets the gate name used in logs and metric labels.
func WithName(name string) GateOption {
	return func(g *Gate) {
		if name != "" {
			g.name = name
		}
	}
}

// WithSkipMethods lists HTTP methods that bypass validation. The handler of a
// skipped request has no validated document.
func WithSkipMethods(methods ...string) GateOption {
	return func(g *Gate) {
		for _, m := range methods {
			g.skipMethods[strings.ToUpper(m)] = struct{}{}
		}
	}
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(h ErrorHandlerFunc) GateOption {
	return func(g *Gate) {
		if h != nil {
			g.errorHandler = h
		}
	}
}

// WithMaxBodyBytes sets the request body limit; n <= 0 keeps the default.
func WithMaxBodyBytes(n int64) GateOption {
	return func(g *Gate) {
		if n > 0 {
			g.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(l zerolog.Logger) GateOption {
	return func(g *Gate) {
		g.log = l
	}
}

// WithMetrics records gate outcomes in m.
func WithMetrics(m *Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = m
	}
}

// NewGate checks schema and returns a gate for it. A malformed schema fails
// here with *SchemaDefinitionError, before any request can reach the route.
func NewGate(schema any, opts ...GateOption) (*Gate, error) {
	validator, err := NewFromDocument(schema)
	if err != nil {
		return nil, err
	}
	return validator.Gate(opts...), nil
}

// Gate returns a gate enforcing the validator's schema.
func (v *Validator) Gate(opts ...GateOption) *Gate {
	g := &Gate{
		validator:    v,
		name:         "default",
		skipMethods:  make(map[string]struct{}),
		errorHandler: DefaultErrorHandler,
		maxBodyBytes: DefaultMaxBodyBytes,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the gate name.
func (g *Gate) Name() string { return g.name }

// Validator returns the validator the gate enforces.
func (g *Gate) Validator() *Validator { return g.validator }

// Guard runs the gate for one request: it parses payload, validates it, stores
// the document in a fresh RequestContext on ctx and only then calls next with
// that context. Parse and validation failures are returned as
// *PayloadParseError and *ValidationError and next is not called. Otherwise
// Guard returns whatever next returns. The stored document is released when
// Guard returns, including when next panics.
func (g *Gate) Guard(ctx context.Context, payload []byte, next func(context.Context) error) error {
	rc := newRequestContext()
	ctx = withRequestContext(ctx, rc)
	defer rc.finish(StateDone)

	if err := rc.advance(StateValidating); err != nil {
		return err
	}

	start := time.Now()
	document, err := ParsePayload(payload)
	if err == nil {
		document, err = g.validator.Enforce(document)
	}
	elapsed := time.Since(start)

	if err != nil {
		rc.finish(StateRejected)
		g.reject(ctx, err, elapsed)
		return err
	}

	if err := rc.store(document); err != nil {
		return err
	}
	g.metrics.observe(g.name, OutcomeAccepted, elapsed, nil)
	g.logger(ctx).Debug().
		Str("gate", g.name).
		Dur("elapsed", elapsed).
		Msg("payload accepted")

	if err := rc.advance(StateHandlerRunning); err != nil {
		return err
	}
	return next(ctx)
}

func (g *Gate) reject(ctx context.Context, err error, elapsed time.Duration) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		g.metrics.observe(g.name, OutcomeRejected, elapsed, ve.Violations)
		g.logger(ctx).Info().
			Str("gate", g.name).
			Int("violations", len(ve.Violations)).
			Str("first_path", ve.Violations[0].Path.String()).
			Str("first_constraint", ve.Violations[0].Constraint).
			Msg("payload rejected")
		return
	}

	outcome := OutcomeRejected
	if IsPayloadParseError(err) {
		outcome = OutcomeMalformed
	}
	g.metrics.observe(g.name, outcome, elapsed, nil)
	g.logger(ctx).Info().Str("gate", g.name).Err(err).Msg("payload rejected")
}

// logger prefers a request logger installed with zerolog's WithContext.
func (g *Gate) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &g.log
}

// Wrap returns a handler with the same signature as next that validates the
// request body first. Rejections go to the gate's error handler and next is
// not called.
func (g *Gate) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, skip := g.skipMethods[r.Method]; skip {
			g.metrics.observe(g.name, OutcomeSkipped, 0, nil)
			next(w, r)
			return
		}

		payload, err := g.readBody(w, r)
		if err != nil {
			g.metrics.observe(g.name, OutcomeMalformed, 0, nil)
			g.logger(r.Context()).Info().Str("gate", g.name).Err(err).Msg("failed to read request body")
			g.errorHandler(w, r, err)
			return
		}

		err = g.Guard(r.Context(), payload, func(ctx context.Context) error {
			next(w, r.WithContext(ctx))
			return nil
		})
		if err != nil {
			g.errorHandler(w, r, err)
		}
	}
}

// Handler is Wrap for http.Handler. Its signature matches router middleware
// such as chi's Use and With.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return g.Wrap(next.ServeHTTP)
}

func (g *Gate) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.maxBodyBytes))
	if err != nil {
		return nil, err
	}

	// Allows to reuse the request body
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// MiddlewareConfig settings for the middleware
type MiddlewareConfig struct {
	// SkipMethods HTTP methods that should skip validation (default: none)
	SkipMethods []string
	// ErrorHandler custom function to handle validation errors
	ErrorHandler ErrorHandlerFunc
	// MaxBodyBytes request body limit (default: DefaultMaxBodyBytes)
	MaxBodyBytes int64
}

// Middleware returns an HTTP middleware for automatic validation
func (v *Validator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return v.MiddlewareWithConfig(MiddlewareConfig{}, next)
}

// MiddlewareWithConfig returns an HTTP middleware with custom settings
func (v *Validator) MiddlewareWithConfig(config MiddlewareConfig, next http.HandlerFunc) http.HandlerFunc {
	return v.Gate(
		WithSkipMethods(config.SkipMethods...),
		WithErrorHandler(config.ErrorHandler),
		WithMaxBodyBytes(config.MaxBodyBytes),
	).Wrap(next)
}

// DefaultErrorHandler renders gate errors as JSON: 400 for malformed or
// invalid payloads, 413 for oversized bodies and 500 for anything else.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	response := ErrorResponse{Error: "internal validation error"}

	var (
		ve     *ValidationError
		pe     *PayloadParseError
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		response = ErrorResponse{Error: "invalid request payload", Details: ve.Violations}
	case errors.As(err, &pe):
		status = http.StatusBadRequest
		response = ErrorResponse{Error: pe.Error()}
	case errors.As(err, &tooBig):
		status = http.StatusRequestEntityTooLarge
		response = ErrorResponse{Error: "request body too large"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
