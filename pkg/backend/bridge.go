package backend

import (
	"context"
	"time"

	"github.com/optics-run/optics/pkg/opticserr"
)

// DefaultTimeout is the wall-clock bound spec §5 mandates for bridging a
// call to an async-native backend: "awaited with a 120-second wall-clock
// bound. Timeout or cancellation yields E0102."
const DefaultTimeout = 120 * time.Second

// Job is the unit of work a Bridge executes: an async-native backend
// call adapted to return a single (value, error) pair.
type Job func(ctx context.Context) (any, error)

type job struct {
	fn     Job
	ctx    context.Context
	result chan result
}

type result struct {
	value any
	err   error
}

// Bridge is the shared single-threaded background worker that owns any
// async-only backend, grounded on the teacher's sub-agent dispatch
// runner (reserve-then-register concurrency slot, timeout derived from a
// parent context, result delivered on a buffered channel) but collapsed
// to exactly one worker goroutine since spec §5 calls for "a persistent
// event loop" shared across calls, not a concurrent pool.
type Bridge struct {
	timeout time.Duration
	jobs    chan job
	stop    chan struct{}
}

// NewBridge starts the bridge's single worker goroutine with the
// default 120s per-call timeout.
func NewBridge() *Bridge { return NewBridgeWithTimeout(DefaultTimeout) }

// NewBridgeWithTimeout is like NewBridge but with an explicit per-call
// timeout, primarily for tests.
func NewBridgeWithTimeout(timeout time.Duration) *Bridge {
	b := &Bridge{
		timeout: timeout,
		jobs:    make(chan job, 64),
		stop:    make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bridge) run() {
	for {
		select {
		case <-b.stop:
			return
		case j := <-b.jobs:
			v, err := j.fn(j.ctx)
			select {
			case j.result <- result{v, err}:
			default:
				// Caller already gave up (timeout/cancel); the
				// return value is discarded per spec §5.
			}
		}
	}
}

// Call dispatches fn to the bridge worker and awaits its result under
// the bridge's wall-clock timeout, derived from parent. If the deadline
// passes first, Call returns immediately with E0102 and abandons fn —
// its eventual result, if any, is discarded.
func (b *Bridge) Call(parent context.Context, fn Job) (any, error) {
	ctx, cancel := context.WithTimeout(parent, b.timeout)
	defer cancel()

	resultCh := make(chan result, 1)
	j := job{fn: fn, ctx: ctx, result: resultCh}

	select {
	case b.jobs <- j:
	case <-ctx.Done():
		return nil, opticserr.Wrap(opticserr.CodeDriverStartFailed, ctx.Err()).
			WithDetails("reason", "bridge queue full or context cancelled before dispatch")
	}

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-ctx.Done():
		return nil, opticserr.Newf(opticserr.CodeDriverStartFailed,
			"async backend call timed out after %s", b.timeout).
			WithDetails("timeout", b.timeout.String())
	}
}

// Stop shuts down the worker goroutine. Idempotent-safe to call once.
func (b *Bridge) Stop() { close(b.stop) }
