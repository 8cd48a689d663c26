// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/optics-run/optics/pkg/auditstore"
	"github.com/optics-run/optics/pkg/config"
)

// Service periodically enforces retention policy (spec C15): once a
// session's audit-store row is older than its retention window, its
// execution_output/<id>/ directory is removed and the audit-store rows
// (sessions, events, test_nodes, cascading) are deleted.
//
// All operations are idempotent and safe to run from multiple processes
// sharing the same audit-store database.
type Service struct {
	config    *config.RetentionConfig
	store     *auditstore.Store
	outputDir string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service. outputDir is the root
// directory under which each session writes its
// execution_output/<session_id>/ tree.
func NewService(cfg *config.RetentionConfig, store *auditstore.Store, outputDir string) *Service {
	return &Service{config: cfg, store: store, outputDir: outputDir}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup service started",
		"session_retention_days", s.config.SessionRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.SessionRetentionDays)

	ids, err := s.store.SessionsOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention: listing expired sessions failed", "error", err)
		return
	}
	for _, id := range ids {
		s.removeOutputDir(id)
	}

	count, err := s.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention: pruning audit-store rows failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: pruned expired sessions", "count", count)
	}
}

func (s *Service) removeOutputDir(sessionID string) {
	if s.outputDir == "" {
		return
	}
	dir := filepath.Join(s.outputDir, sessionID)
	if err := os.RemoveAll(dir); err != nil {
		slog.Error("retention: failed to remove session output dir", "session_id", sessionID, "dir", dir, "error", err)
	}
}
