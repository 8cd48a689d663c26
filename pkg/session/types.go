// Package session owns the per-session execution state: the backend
// registry, the synchronous-call bridge, the element store, the event
// bus, and the strategy manager built on top of them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/optics-run/optics/pkg/backend"
	"github.com/optics-run/optics/pkg/elements"
	"github.com/optics-run/optics/pkg/events"
	"github.com/optics-run/optics/pkg/strategy"
)

// Status is a session's lifecycle state. Transitions are monotonic: once
// a session reaches a terminal status it never leaves it.
type Status string

const (
	StatusNotRun     Status = "NOT_RUN"
	StatusRunning    Status = "RUNNING"
	StatusPass       Status = "PASS"
	StatusFail       Status = "FAIL"
	StatusError      Status = "ERROR"
	StatusTerminated Status = "TERMINATED"
)

// Terminal reports whether status is a final state a session cannot
// leave (invariant §3: "state transitions are monotonic").
func (s Status) Terminal() bool {
	switch s {
	case StatusPass, StatusFail, StatusError, StatusTerminated:
		return true
	default:
		return false
	}
}

// Session is one test-execution context: its own driver/backend
// registry, element store, event bus and strategy manager. A driver is
// never shared between sessions (invariant §3.2(3)).
type Session struct {
	id        string
	createdAt time.Time

	mu        sync.RWMutex
	status    Status
	updatedAt time.Time
	dryRun    bool
	cancel    context.CancelFunc

	Registry   *backend.Registry
	Bridge     *backend.Bridge
	Store      *elements.Store
	Bus        *events.Bus
	Strategies *strategy.Manager
}

// New constructs a Session bound to its own registry and bridge. Callers
// should not construct Session directly outside of Manager.Create, since
// the Manager is responsible for keying sessions by ID.
func New(id string, registry *backend.Registry, bridge *backend.Bridge) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		createdAt:  now,
		status:     StatusNotRun,
		updatedAt:  now,
		Registry:   registry,
		Bridge:     bridge,
		Store:      elements.New(),
		Bus:        events.New(),
		Strategies: strategy.NewManager(registry, bridge),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus moves the session to status, rejecting any attempt to leave
// a terminal status once reached.
func (s *Session) SetStatus(status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() && status != s.status {
		return fmt.Errorf("session %s: cannot transition out of terminal status %s to %s", s.id, s.status, status)
	}
	s.status = status
	s.updatedAt = time.Now()
	return nil
}

func (s *Session) DryRun() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dryRun
}

func (s *Session) SetDryRun(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dryRun = v
}

// SetCancel stores the cancellation function for the session's running
// scheduler invocation, if any, so Terminate can interrupt it.
func (s *Session) SetCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// Terminate stops every driver held by the session's registry, stops its
// bridge worker, and shuts down its event bus. Idempotent: calling it on
// an already-terminal session is a no-op.
func (s *Session) Terminate(ctx context.Context) error {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.status = StatusTerminated
	s.updatedAt = time.Now()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var errs []error
	for _, d := range s.Registry.Drivers() {
		if err := d.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Bridge != nil {
		s.Bridge.Stop()
	}
	s.Bus.Shutdown()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Snapshot is a read-only copy of a session's bookkeeping fields, safe to
// hand to callers outside the session's own lock.
type Snapshot struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	DryRun    bool      `json:"dry_run"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:        s.id,
		Status:    s.status,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		DryRun:    s.dryRun,
	}
}
