package events

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu  sync.Mutex
	evs []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.evs))
	copy(out, r.evs)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := New()
	defer b.Shutdown()
	r := &recorder{}
	b.Subscribe("r1", r)

	for i := 0; i < 5; i++ {
		b.Publish(Event{EntityID: "k1", Status: StatusRunning, Name: string(rune('a' + i))})
	}
	waitFor(t, func() bool { return len(r.snapshot()) == 5 })
	evs := r.snapshot()
	for i, e := range evs {
		if e.Name != string(rune('a'+i)) {
			t.Fatalf("event %d out of order: %+v", i, e)
		}
	}
}

func TestDropOldestOnOverflow(t *testing.T) {
	b := NewWithCapacity(2)
	defer b.Shutdown()
	// Publish faster than a slow subscriber can drain by never subscribing
	// anyone, forcing the queue itself to hold events until Shutdown.
	b.Publish(Event{EntityID: "e1"})
	b.Publish(Event{EntityID: "e2"})
	b.Publish(Event{EntityID: "e3"})

	r := &recorder{}
	b.Subscribe("r1", r)
	b.Publish(Event{EntityID: "trigger"})
	waitFor(t, func() bool { return len(r.snapshot()) > 0 })

	evs := r.snapshot()
	for _, e := range evs {
		if e.EntityID == "e1" {
			t.Fatalf("oldest event e1 should have been dropped, got: %+v", evs)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	defer b.Shutdown()
	r := &recorder{}
	b.Subscribe("r1", r)
	b.Unsubscribe("r1")
	b.Publish(Event{EntityID: "e1"})
	time.Sleep(20 * time.Millisecond)
	if len(r.snapshot()) != 0 {
		t.Fatalf("expected no events after unsubscribe, got %v", r.snapshot())
	}
}

func TestPanickingSubscriberIsolated(t *testing.T) {
	b := New()
	defer b.Shutdown()
	b.Subscribe("bad", SubscriberFunc(func(Event) { panic("boom") }))
	r := &recorder{}
	b.Subscribe("good", r)
	b.Publish(Event{EntityID: "e1"})
	waitFor(t, func() bool { return len(r.snapshot()) == 1 })
}

func TestCommandPublishAndGetIsNonBlockingPoll(t *testing.T) {
	b := New()
	defer b.Shutdown()
	if _, ok := b.GetCommand("k1"); ok {
		t.Fatal("expected no command pending")
	}
	b.PublishCommand(Command{Kind: CommandRetry, EntityID: "k1"})
	b.PublishCommand(Command{Kind: CommandSkip, EntityID: "k2"})

	cmd, ok := b.GetCommand("k1")
	if !ok || cmd.Kind != CommandRetry {
		t.Fatalf("expected Retry command for k1, got %+v ok=%v", cmd, ok)
	}
	if _, ok := b.GetCommand("k1"); ok {
		t.Fatal("command should be consumed after first Get")
	}
	cmd2, ok := b.GetCommand("k2")
	if !ok || cmd2.Kind != CommandSkip {
		t.Fatalf("expected Skip command for k2, got %+v ok=%v", cmd2, ok)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	b := New()
	b.Shutdown()
	b.Shutdown()
}

func TestNilBusPublishIsNoOp(t *testing.T) {
	var b *Bus
	b.Publish(Event{EntityID: "e1"})
}

func TestSubscriberCount(t *testing.T) {
	b := New()
	defer b.Shutdown()
	if b.SubscriberCount() != 0 {
		t.Fatal("expected zero subscribers")
	}
	b.Subscribe("a", &recorder{})
	b.Subscribe("b", &recorder{})
	if b.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.SubscriberCount())
	}
}
