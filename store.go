package valid

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
)

// State is the lifecycle position of one gated request.
type State int

const (
	StatePending State = iota
	StateValidating
	StateValidated
	StateHandlerRunning
	StateDone
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateValidating:
		return "validating"
	case StateValidated:
		return "validated"
	case StateHandlerRunning:
		return "handler_running"
	case StateDone:
		return "done"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateRejected
}

var transitions = map[State][]State{
	StatePending:        {StateValidating},
	StateValidating:     {StateValidated, StateRejected},
	StateValidated:      {StateHandlerRunning, StateDone},
	StateHandlerRunning: {StateDone},
}

// RequestContext holds the validated-document slot of a single request. A gate
// creates one per invocation and writes it once; the handler and anything it
// calls read it through the request's context.Context.
type RequestContext struct {
	mu       sync.RWMutex
	state    State
	document any
	written  bool
}

func newRequestContext() *RequestContext {
	return &RequestContext{state: StatePending}
}

// State returns the current lifecycle state.
func (rc *RequestContext) State() State {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.state
}

// Document returns the validated document. It fails with
// ErrNoValidatedDocument before the gate has written the slot and after the
// request has finished.
func (rc *RequestContext) Document() (any, error) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if !rc.written || rc.state.Terminal() {
		return nil, ErrNoValidatedDocument
	}
	return rc.document, nil
}

func (rc *RequestContext) advance(to State) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.advanceLocked(to)
}

func (rc *RequestContext) advanceLocked(to State) error {
	for _, next := range transitions[rc.state] {
		if next == to {
			rc.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid request state transition %s -> %s", rc.state, to)
}

// store writes the slot and moves to StateValidated. It succeeds once.
func (rc *RequestContext) store(document any) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.written {
		return fmt.Errorf("validated document already stored")
	}
	if err := rc.advanceLocked(StateValidated); err != nil {
		return err
	}
	rc.document = document
	rc.written = true
	return nil
}

// finish moves to a terminal state and releases the document. Finishing an
// already finished context is a no-op.
func (rc *RequestContext) finish(terminal State) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.state.Terminal() {
		return
	}
	if rc.advanceLocked(terminal) != nil {
		// Torn down mid-flight, e.g. a panic before validation completed.
		rc.state = StateRejected
	}
	rc.document = nil
}

type requestContextKey struct{}

func withRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the request context installed by a gate.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}

// Validated returns the document the gate validated for the current request.
func Validated(ctx context.Context) (any, error) {
	rc, ok := RequestContextFrom(ctx)
	if !ok {
		return nil, ErrNoValidatedDocument
	}
	return rc.Document()
}

// ValidatedAs decodes the validated document of the current request into T.
func ValidatedAs[T any](ctx context.Context) (T, error) {
	var out T
	document, err := Validated(ctx)
	if err != nil {
		return out, err
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return out, fmt.Errorf("failed to encode validated document: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode validated document into %T: %w", out, err)
	}
	return out, nil
}

// MustValidated is like Validated but panics when no document is available.
// Use it only in handlers that are always mounted behind a gate.
func MustValidated(ctx context.Context) any {
	document, err := Validated(ctx)
	if err != nil {
		panic(err)
	}
	return document
}
