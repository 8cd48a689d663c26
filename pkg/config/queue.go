package config

import "time"

// QueueConfig controls the Scheduler's worker pool (pkg/scheduler.Pool),
// mirroring the teacher's session-queue configuration shape one level
// down: no DB polling, since sessions are submitted in-process, but the
// same worker-count / stuck-scan knobs apply.
type QueueConfig struct {
	// WorkerCount is the number of goroutines concurrently draining
	// submitted runs.
	WorkerCount int `yaml:"worker_count"`

	// ScanInterval is how often the pool scans in-flight runs for ones
	// that have exceeded StuckThreshold.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// StuckThreshold is how long a run may stay in-flight before the
	// pool logs it as possibly stuck.
	StuckThreshold time.Duration `yaml:"stuck_threshold"`
}

// DefaultQueueConfig returns the built-in worker pool defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:    4,
		ScanInterval:   30 * time.Second,
		StuckThreshold: 5 * time.Minute,
	}
}

// Fields exposes WorkerCount/ScanInterval/StuckThreshold as plain values
// for callers (cmd/opticsd) that build a scheduler.PoolConfig without
// importing pkg/config into pkg/scheduler.
func (q *QueueConfig) Fields() (workerCount int, scanInterval, stuckThreshold time.Duration) {
	return q.WorkerCount, q.ScanInterval, q.StuckThreshold
}
