package valid

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// contextDelimiter separates segments when flattening a gojsonschema context.
// Object keys containing it would be split wrongly, so it is a control character.
const contextDelimiter = "\x1f"

// rootContext is the head gojsonschema uses for the document root.
const rootContext = "(root)"

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// PathElement is one step into a document: an object key or an array index.
type PathElement struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a path element addressing an object member.
func Key(name string) PathElement {
	return PathElement{key: name}
}

// Index returns a path element addressing an array item.
func Index(i int) PathElement {
	return PathElement{index: i, isIndex: true}
}

// IsIndex reports whether the element addresses an array item.
func (e PathElement) IsIndex() bool { return e.isIndex }

// Key returns the object key; empty for index elements.
func (e PathElement) Key() string { return e.key }

// Index returns the array index; zero for key elements.
func (e PathElement) Index() int { return e.index }

func (e PathElement) String() string {
	if e.isIndex {
		return strconv.Itoa(e.index)
	}
	return e.key
}

// MarshalJSON renders keys as strings and indices as numbers.
func (e PathElement) MarshalJSON() ([]byte, error) {
	if e.isIndex {
		return []byte(strconv.Itoa(e.index)), nil
	}
	return json.Marshal(e.key)
}

// UnmarshalJSON accepts either a string key or a numeric index.
func (e *PathElement) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err == nil {
		*e = Key(key)
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	*e = Index(i)
	return nil
}

// compare orders indices before keys, indices numerically and keys bytewise.
func (e PathElement) compare(o PathElement) int {
	switch {
	case e.isIndex && o.isIndex:
		return cmp.Compare(e.index, o.index)
	case e.isIndex:
		return -1
	case o.isIndex:
		return 1
	default:
		return strings.Compare(e.key, o.key)
	}
}

// Path locates a node inside a document. The empty path is the root.
type Path []PathElement

// String renders the path as a JSON Pointer (RFC 6901).
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range p {
		b.WriteByte('/')
		if e.isIndex {
			b.WriteString(strconv.Itoa(e.index))
			continue
		}
		b.WriteString(pointerEscaper.Replace(e.key))
	}
	return b.String()
}

// Compare orders paths lexicographically; a proper prefix sorts first.
func (p Path) Compare(o Path) int {
	for i := 0; i < len(p) && i < len(o); i++ {
		if c := p[i].compare(o[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(p), len(o))
}

// Violation represents one failed constraint in a validated document.
type Violation struct {
	Path       Path   `json:"path"`
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
	Value      any    `json:"value,omitempty"`
}

// Violations is the ordered outcome of one validation run.
type Violations []Violation

// Sort orders violations by path, then constraint, then message. Equal
// entries keep the order the engine emitted them in.
func (vs Violations) Sort() {
	slices.SortStableFunc(vs, func(a, b Violation) int {
		if c := a.Path.Compare(b.Path); c != 0 {
			return c
		}
		if c := strings.Compare(a.Constraint, b.Constraint); c != 0 {
			return c
		}
		return strings.Compare(a.Message, b.Message)
	})
}

// Paths returns the JSON Pointer of every violation, in order.
func (vs Violations) Paths() []string {
	paths := make([]string, len(vs))
	for i, v := range vs {
		paths[i] = v.Path.String()
	}
	return paths
}

// buildViolations converts engine results into sorted violations. The document
// is the value that was validated; it types each path segment.
func buildViolations(document any, errs []gojsonschema.ResultError) Violations {
	if len(errs) == 0 {
		return nil
	}

	vs := make(Violations, 0, len(errs))
	for _, err := range errs {
		v := Violation{
			Path:       contextPath(document, err.Context()),
			Field:      err.Field(),
			Constraint: err.Type(),
			Message:    err.Description(),
		}
		if err.Value() != nil {
			v.Value = err.Value()
		}
		vs = append(vs, v)
	}
	vs.Sort()
	return vs
}

// contextPath walks the document alongside the engine context so numeric
// segments become indices only where the node really is an array.
func contextPath(document any, ctx *gojsonschema.JsonContext) Path {
	if ctx == nil {
		return Path{}
	}

	segments := strings.Split(ctx.String(contextDelimiter), contextDelimiter)
	if len(segments) > 0 && segments[0] == rootContext {
		segments = segments[1:]
	}

	path := make(Path, 0, len(segments))
	node := document
	for _, seg := range segments {
		switch n := node.(type) {
		case []any:
			if i, err := strconv.Atoi(seg); err == nil && i >= 0 && i < len(n) {
				path = append(path, Index(i))
				node = n[i]
				continue
			}
			node = nil
		case map[string]any:
			node = n[seg]
		default:
			node = nil
		}
		path = append(path, Key(seg))
	}
	return path
}
