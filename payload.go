package valid

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-json"
)

var errEmptyPayload = errors.New("payload is empty")

// ParsePayload decodes exactly one JSON value. Numbers are kept as json.Number
// so the validated document is the input as sent, without float rounding.
func ParsePayload(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &PayloadParseError{Err: errEmptyPayload}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var document any
	if err := dec.Decode(&document); err != nil {
		return nil, &PayloadParseError{Err: err}
	}

	// Anything after the first value makes the payload ambiguous.
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, &PayloadParseError{Err: err}
	}

	return document, nil
}

// normalize converts an arbitrary Go value into the generic JSON form
// (map[string]any, []any, json.Number, string, bool, nil) the engine sees.
func normalize(document any) (any, error) {
	if isGeneric(document) {
		return document, nil
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// isGeneric reports whether v already consists only of generic JSON values.
func isGeneric(v any) bool {
	switch n := v.(type) {
	case nil, string, bool, json.Number:
		return true
	case map[string]any:
		for _, child := range n {
			if !isGeneric(child) {
				return false
			}
		}
		return true
	case []any:
		for _, child := range n {
			if !isGeneric(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
