package valid

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// schemaExtensions are the file extensions LoadDir picks up.
var schemaExtensions = []string{".json", ".yaml", ".yml"}

// Registry manages named, checked validators. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]*Validator
	options    []SchemaOption
}

// NewRegistry creates an empty registry. opts apply to every schema added
// from a file or string.
func NewRegistry(opts ...SchemaOption) *Registry {
	return &Registry{
		validators: make(map[string]*Validator),
		options:    opts,
	}
}

// Add adds a validator with a specific key, replacing any previous one.
func (reg *Registry) Add(key string, validator *Validator) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.validators[key] = validator
}

// AddFromFile checks the schema file and adds it under key.
func (reg *Registry) AddFromFile(key, schemaPath string) error {
	validator, err := New(schemaPath, reg.options...)
	if err != nil {
		return err
	}
	reg.Add(key, validator)
	return nil
}

// AddFromString checks the schema string and adds it under key.
func (reg *Registry) AddFromString(key, schemaJSON string) error {
	validator, err := NewFromString(schemaJSON, reg.options...)
	if err != nil {
		return err
	}
	reg.Add(key, validator)
	return nil
}

// LoadDir adds every .json, .yaml and .yml schema in dir, keyed by file name
// without extension. It stops at the first schema that fails its check, so a
// broken file keeps the whole set from loading. Subdirectories are ignored.
func (reg *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema directory '%s': %w", dir, err)
	}

	loaded := make(map[string]*Validator)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !slices.Contains(schemaExtensions, ext) {
			continue
		}

		key := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if _, dup := loaded[key]; dup {
			return 0, fmt.Errorf("duplicate schema name '%s' in '%s'", key, dir)
		}

		validator, err := New(filepath.Join(dir, entry.Name()), reg.options...)
		if err != nil {
			return 0, err
		}
		loaded[key] = validator
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	for key, validator := range loaded {
		reg.validators[key] = validator
	}
	return len(loaded), nil
}

// Get returns a validator by key
func (reg *Registry) Get(key string) (*Validator, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	validator, exists := reg.validators[key]
	return validator, exists
}

// Gate returns a gate for the schema registered under key.
func (reg *Registry) Gate(key string, opts ...GateOption) (*Gate, error) {
	validator, ok := reg.Get(key)
	if !ok {
		return nil, fmt.Errorf("schema '%s' is not registered", key)
	}
	return validator.Gate(append([]GateOption{WithName(key)}, opts...)...), nil
}

// Remove removes a validator
func (reg *Registry) Remove(key string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.validators, key)
}

// Keys returns all validator keys in sorted order.
func (reg *Registry) Keys() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	keys := make([]string, 0, len(reg.validators))
	for key := range reg.validators {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Count returns the number of registered validators
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.validators)
}
