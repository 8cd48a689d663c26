package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/optics-run/optics/pkg/backend"
)

// ErrNotFound is returned (wrapped) by Get/Terminate/Remove when the
// requested session id is unknown, so API handlers can map it to a 404
// with errors.Is rather than string-matching the error text.
var ErrNotFound = errors.New("session not found")

// Manager owns the set of live sessions, keyed by ID (spec C9 Session
// Manager). No two sessions ever share a *backend.Registry or
// *backend.Bridge: Create always builds a session a fresh pair.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new Session bound to registry and bridge, keyed by
// a freshly generated ID.
func (m *Manager) Create(registry *backend.Registry, bridge *backend.Bridge) *Session {
	s := New(uuid.New().String(), registry, bridge)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// List returns a snapshot of every known session, including terminated
// ones that have not yet been Remove'd.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Terminate stops the named session's drivers, bridge and event bus.
func (m *Manager) Terminate(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Terminate(ctx)
}

// Remove deletes a session's bookkeeping entry. Sessions are kept around
// after termination so callers can still read their final status and
// report output; Remove is a separate, explicit step (driven by the
// cleanup/retention sweep, not by Terminate itself).
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}
