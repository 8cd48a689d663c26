// Package keywords implements the global, read-only-after-start registry
// mapping normalized keyword names to their callable implementations.
package keywords

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/optics-run/optics/pkg/opticserr"
)

// nameRegex mirrors the "word characters and hyphens/underscores, no
// leading digit" shape used for dotted tool names in the corpus, relaxed
// to a single segment since keywords have no server-qualification.
var nameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Normalize converts a keyword's surface form (as written in a test
// case, e.g. "Click Element" or "click-element") into its canonical
// registry key: lowercase, words joined by a single underscore.
func Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	trimmed = strings.ReplaceAll(trimmed, "-", "_")
	fields := strings.Fields(trimmed)
	return strings.ToLower(strings.Join(fields, "_"))
}

// Callable is the shape every registered keyword implementation takes:
// Scheduler-resolved, already-substituted arguments in, a result or an
// error out. A keyword implementation closes over whatever session state
// it needs (element store, strategy manager, registry) at registration
// time, so Callable itself only needs the call's context and arguments.
type Callable func(ctx context.Context, args []string) (any, error)

// Keyword is one registered entry: its canonical name, implementation,
// declared arity, and which parameter positions are "raw" (spec §4.7.3:
// raw parameters bypass `${var}` substitution and AOI/element-kind
// classification, passed through exactly as written).
type Keyword struct {
	Name      string
	Func      Callable
	Arity     int    // -1 means variadic (any number of trailing args accepted)
	RawParams uint64 // bit i set => parameter at position i is raw
}

// IsRaw reports whether the parameter at position i is raw.
func (k Keyword) IsRaw(i int) bool {
	if i < 0 || i >= 64 {
		return false
	}
	return k.RawParams&(1<<uint(i)) != 0
}

// Registry is the process-wide keyword table. It is built once at
// startup and treated as read-only thereafter (spec §5: "the global
// Keyword Registry is read-only after the process starts").
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Keyword
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Keyword)}
}

// Register adds kw under its normalized name. Re-registering the same
// normalized name logs a warning and keeps the new registration, last
// write wins (spec §4.10): a name collision is not fatal to startup.
func (r *Registry) Register(kw Keyword) error {
	key := Normalize(kw.Name)
	if key == "" || !nameRegex.MatchString(key) {
		return opticserr.Newf(opticserr.CodeGeneralUnexpected, "invalid keyword name: %q", kw.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[key]; exists {
		slog.Warn("duplicate keyword registration, keeping latest", "keyword", key)
	}
	kw.Name = key
	r.byName[key] = kw
	return nil
}

// Lookup resolves a keyword's surface-form name to its registered entry.
// Returns E0402 (keyword not found) on miss, per spec §4.7.2 step 1.
func (r *Registry) Lookup(name string) (Keyword, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kw, ok := r.byName[Normalize(name)]
	if !ok {
		return Keyword{}, opticserr.Newf(opticserr.CodeKeywordNotFound, "keyword not found: %s", name).
			WithDetails("name", name)
	}
	return kw, nil
}

// Names returns every registered keyword's canonical name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns every registered keyword, sorted by name, for endpoints
// that need parameter metadata (arity, raw-parameter positions)
// alongside the name itself.
func (r *Registry) All() []Keyword {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Keyword, 0, len(r.byName))
	for _, kw := range r.byName {
		out = append(out, kw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
