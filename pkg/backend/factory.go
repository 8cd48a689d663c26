package backend

import (
	"fmt"
	"log/slog"
	"sync"
)

// Factory constructs a capability implementation from its declared
// instance config. Concrete drivers, element sources, OCR engines and
// image matchers are external collaborators (spec's out-of-scope list);
// Factory is the pluggable seam a harness registers its real
// implementations through, grounded on the teacher's ClientFactory
// (pkg/mcp/client_factory.go: registry-driven, per-name construction).
type Factory func(cfg InstanceConfig) (any, error)

// FactoryRegistry maps a backend source's declared name to the Factory
// that constructs it, independent of which capability list it was
// declared under (spec §3.1: "which list an entry appears in implies
// its capability").
type FactoryRegistry struct {
	mu     sync.RWMutex
	byName map[string]Factory
}

// NewFactoryRegistry creates an empty FactoryRegistry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{byName: make(map[string]Factory)}
}

// Register associates name with f, overwriting any previous factory
// registered under that name.
func (r *FactoryRegistry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = f
}

// Build constructs a session-scoped Registry from sources, a map of
// capability to the resolved InstanceConfig list for that capability
// (typically SessionConfig.DriverSources/ElementSources/... after
// GlobalConfig.Resolve). A source with no registered factory is logged
// and skipped rather than treated as fatal, since a harness may declare
// sources for capabilities it has not wired a factory for.
func (r *FactoryRegistry) Build(sources map[Capability][]InstanceConfig) (*Registry, error) {
	reg := NewRegistry()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for cap, cfgs := range sources {
		for _, cfg := range cfgs {
			if !cfg.Enabled {
				continue
			}
			factory, ok := r.byName[cfg.Name]
			if !ok {
				slog.Warn("backend: no factory registered for source, skipping", "name", cfg.Name, "capability", cap)
				continue
			}
			impl, err := factory(cfg)
			if err != nil {
				return nil, fmt.Errorf("backend %q: %w", cfg.Name, err)
			}
			if err := reg.Register(cap, cfg, impl); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}
