// Package elements implements the Element Store (C3): a name → ordered
// fallback-value registry with ${name} substitution, grounded on the
// teacher's config-registry idiom (map + sync.RWMutex, defensive-copy
// reads) as seen in its MCP server registry.
package elements

import (
	"regexp"
	"sync"

	"github.com/optics-run/optics/pkg/opticserr"
)

// Store is a thread-safe name → ordered-value-list registry.
type Store struct {
	mu     sync.RWMutex
	values map[string][]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{values: make(map[string][]string)}
}

// Add appends value to the fallback list for name, creating the list if
// name is not yet known.
func (s *Store) Add(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = append(s.values[name], value)
}

// Remove deletes name entirely. Invariant §3.2(4): removal is explicit and
// total — there is no way to end up with a present-but-empty key other
// than through Remove itself.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
}

// Get returns a copy of the fallback list for name, or (nil, false) if
// name is unknown.
func (s *Store) Get(name string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals, ok := s.values[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out, true
}

// GetFirst returns the highest-priority (first-inserted) value for name.
func (s *Store) GetFirst(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals, ok := s.values[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Resolver is invoked with each candidate value by ResolveWithFallback.
type Resolver func(value string) (any, error)

// OnError is invoked after a failed resolver attempt, before continuing
// to the next candidate.
type OnError func(err error, value string)

// ResolveWithFallback iterates the stored values for name in priority
// order, invoking resolver on each, returning the first success. If every
// attempt fails, it returns an exhausted error (X0201), per spec §4.3.
func (s *Store) ResolveWithFallback(name string, resolver Resolver, onError OnError) (any, error) {
	vals, ok := s.Get(name)
	if !ok || len(vals) == 0 {
		return nil, opticserr.New(opticserr.CodeElementExhausted).
			WithDetails("name", name)
	}
	var lastErr error
	for _, v := range vals {
		result, err := resolver(v)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if onError != nil {
			onError(err, v)
		}
	}
	return nil, opticserr.Wrap(opticserr.CodeElementExhausted, lastErr).
		WithDetails("name", name).WithDetails("attempts", len(vals))
}

var varPattern = regexp.MustCompile(`^\$\{([^}]+)\}$`)

// IsVariable reports whether s is exactly a ${name} reference, and
// returns the extracted name.
func IsVariable(s string) (name string, ok bool) {
	m := varPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ResolveScalar expands a ${name} reference to its first (highest
// priority) value. Non-variable strings pass through unchanged. An
// undefined variable raises E0702 (spec §8, boundary behaviors).
func (s *Store) ResolveScalar(token string) (string, error) {
	name, ok := IsVariable(token)
	if !ok {
		return token, nil
	}
	val, ok := s.GetFirst(name)
	if !ok {
		return "", opticserr.Newf(opticserr.CodeTestParamResolution,
			"undefined variable: %s", name).WithDetails("name", name)
	}
	return val, nil
}

// ResolveCandidates expands a ${name} reference to its full fallback
// list. Non-variable strings yield a singleton list. An undefined or
// empty list is an error: spec §4.7.2 step 2 requires that an empty
// expansion fails the keyword with E0201.
func (s *Store) ResolveCandidates(token string) ([]string, error) {
	name, ok := IsVariable(token)
	if !ok {
		return []string{token}, nil
	}
	vals, ok := s.Get(name)
	if !ok || len(vals) == 0 {
		return nil, opticserr.Newf(opticserr.CodeElementNotFound,
			"no values for variable: %s", name).WithDetails("name", name)
	}
	return vals, nil
}

// Names returns all currently-registered element names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	return out
}
