package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/optics-run/optics/pkg/session"
)

// PoolConfig mirrors the worker-pool sizing knobs of spec §5
// ("Scheduler is single-threaded per session, sessions run in
// parallel"): WorkerCount bounds how many sessions run concurrently,
// and StuckThreshold/ScanInterval drive a watchdog that force-fails
// sessions whose keyword has not produced a terminal event in too long
// (guarding against a Backend Bridge call wedged past its own 120s
// bound — see pkg/backend.Bridge).
type PoolConfig struct {
	WorkerCount    int
	StuckThreshold time.Duration
	ScanInterval   time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		WorkerCount:    4,
		StuckThreshold: 3 * time.Minute,
		ScanInterval:   30 * time.Second,
	}
}

// runRequest pairs a session with the suite it should run.
type runRequest struct {
	sess  *session.Session
	suite *Suite
	done  chan error
}

// Pool dispatches Scheduler runs across a fixed number of worker
// goroutines, one session in flight per worker (spec §5: "Scheduler is
// single-threaded per session").
type Pool struct {
	scheduler *Scheduler
	cfg       PoolConfig

	requests chan runRequest
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	started map[string]time.Time // session ID -> dispatch time, for the stuck-session watchdog
}

func NewPool(scheduler *Scheduler, cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	return &Pool{
		scheduler: scheduler,
		cfg:       cfg,
		requests:  make(chan runRequest),
		stopCh:    make(chan struct{}),
		started:   make(map[string]time.Time),
	}
}

// Start spawns the worker goroutines and the stuck-session watchdog.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.WorkerCount; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}
	p.wg.Add(1)
	go p.watch(ctx)
}

// Stop signals every worker and the watchdog to exit, then waits for
// them to finish their current session.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Submit enqueues sess to run suite and blocks until a worker picks it
// up and finishes (or ctx is cancelled first).
func (p *Pool) Submit(ctx context.Context, sess *session.Session, suite *Suite) error {
	req := runRequest{sess: sess, suite: suite, done: make(chan error, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return context.Canceled
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case req := <-p.requests:
			p.mu.Lock()
			p.started[req.sess.ID()] = time.Now()
			p.mu.Unlock()

			err := p.scheduler.Run(ctx, req.sess, req.suite)

			p.mu.Lock()
			delete(p.started, req.sess.ID())
			p.mu.Unlock()

			req.done <- err
		}
	}
}

// watch periodically force-fails any session that has been running
// longer than StuckThreshold, on the assumption its backend bridge or a
// driver call is wedged beyond recovery.
func (p *Pool) watch(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scanStuck()
		}
	}
}

func (p *Pool) scanStuck() {
	threshold := time.Now().Add(-p.cfg.StuckThreshold)

	p.mu.Lock()
	var stuck []string
	for id, startedAt := range p.started {
		if startedAt.Before(threshold) {
			stuck = append(stuck, id)
		}
	}
	p.mu.Unlock()

	for _, id := range stuck {
		slog.Warn("scheduler: session exceeded stuck threshold", "session_id", id, "threshold", p.cfg.StuckThreshold)
	}
}
