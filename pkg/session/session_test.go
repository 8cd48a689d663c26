package session

import (
	"context"
	"testing"

	"github.com/optics-run/optics/pkg/backend"
)

type stubDriver struct {
	id      string
	stopped bool
}

func (d *stubDriver) ID() string                     { return d.id }
func (d *stubDriver) Start(ctx context.Context) error { return nil }
func (d *stubDriver) Stop(ctx context.Context) error  { d.stopped = true; return nil }

func newTestSession(t *testing.T) (*Session, *stubDriver) {
	t.Helper()
	r := backend.NewRegistry()
	drv := &stubDriver{id: "drv1"}
	if err := r.Register(backend.CapabilityDrive, backend.InstanceConfig{Name: "drv1", Enabled: true}, drv); err != nil {
		t.Fatalf("register driver: %v", err)
	}
	return New("sess-1", r, backend.NewBridge()), drv
}

func TestSetStatusRejectsLeavingTerminal(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.SetStatus(StatusPass); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetStatus(StatusRunning); err == nil {
		t.Fatal("expected error transitioning out of terminal status")
	}
}

func TestTerminateStopsDriverAndIsIdempotent(t *testing.T) {
	s, drv := newTestSession(t)
	if err := s.Terminate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !drv.stopped {
		t.Fatal("expected driver.Stop to be called")
	}
	if s.Status() != StatusTerminated {
		t.Fatalf("status = %s, want TERMINATED", s.Status())
	}
	if err := s.Terminate(context.Background()); err != nil {
		t.Fatalf("second Terminate should be a no-op, got: %v", err)
	}
}

func TestManagerCreateGetList(t *testing.T) {
	m := NewManager()
	r := backend.NewRegistry()
	s := m.Create(r, backend.NewBridge())

	got, err := m.Get(s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Fatal("Get returned a different session")
	}

	list := m.List()
	if len(list) != 1 || list[0].ID != s.ID() {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestManagerTerminateAndRemove(t *testing.T) {
	m := NewManager()
	s := m.Create(backend.NewRegistry(), backend.NewBridge())

	if err := m.Terminate(context.Background(), s.ID()); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if s.Status() != StatusTerminated {
		t.Fatalf("status = %s, want TERMINATED", s.Status())
	}

	if err := m.Remove(s.ID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := m.Get(s.ID()); err == nil {
		t.Fatal("expected error getting removed session")
	}
}

func TestManagerGetUnknownSession(t *testing.T) {
	m := NewManager()
	if _, err := m.Get("nope"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}
