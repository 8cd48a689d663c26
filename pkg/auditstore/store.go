package auditstore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/optics-run/optics/pkg/events"
)

// Store is a write-behind mirror of session/event/test-node state. It
// implements events.Subscriber so it can be attached directly to a
// Session's Bus as a second, optional subscriber (spec's C2 design:
// "a second, optional subscriber feeds C12"). Write failures are logged,
// never returned or retried — an audit store outage must never affect
// a running session.
type Store struct {
	db        *sql.DB
	sessionID string
}

// NewStore returns a Store writing to c's database.
func NewStore(c *Client) *Store {
	return &Store{db: c.db}
}

// ForSession returns a Store bound to sessionID, suitable for
// Bus.Subscribe. Every OnEvent call is attributed to that session.
func (s *Store) ForSession(sessionID string) *Store {
	return &Store{db: s.db, sessionID: sessionID}
}

// RecordSession upserts a session's top-level bookkeeping row.
func (s *Store) RecordSession(ctx context.Context, id, status string, dryRun bool, createdAt, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, dry_run, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			dry_run = EXCLUDED.dry_run,
			updated_at = EXCLUDED.updated_at`,
		id, status, dryRun, createdAt, updatedAt)
	return err
}

// OnEvent appends ev to the events log and upserts the corresponding
// test_nodes snapshot row. Satisfies events.Subscriber.
func (s *Store) OnEvent(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.recordEvent(ctx, ev); err != nil {
		slog.Error("auditstore: failed to record event", "session_id", s.sessionID, "entity_id", ev.EntityID, "error", err)
	}
	if err := s.upsertTestNode(ctx, ev); err != nil {
		slog.Error("auditstore: failed to upsert test node", "session_id", s.sessionID, "entity_id", ev.EntityID, "error", err)
	}
}

func (s *Store) recordEvent(ctx context.Context, ev events.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (session_id, entity_type, entity_id, name, status, message, parent_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.sessionID, string(ev.EntityType), ev.EntityID, ev.Name, string(ev.Status), ev.Message, ev.ParentID, ev.Timestamp)
	return err
}

func (s *Store) upsertTestNode(ctx context.Context, ev events.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_nodes (session_id, entity_id, entity_type, name, parent_id, status, start_time, end_time, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, entity_id) DO UPDATE SET
			status = EXCLUDED.status,
			start_time = COALESCE(test_nodes.start_time, EXCLUDED.start_time),
			end_time = COALESCE(EXCLUDED.end_time, test_nodes.end_time),
			elapsed_ms = COALESCE(EXCLUDED.elapsed_ms, test_nodes.elapsed_ms)`,
		s.sessionID, ev.EntityID, string(ev.EntityType), ev.Name, ev.ParentID, string(ev.Status), ev.StartTime, ev.EndTime, ev.ElapsedMS)
	return err
}

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID        string
	Status    string
	DryRun    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetSession returns the recorded bookkeeping row for id, or
// sql.ErrNoRows if the audit store never saw that session.
func (s *Store) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, dry_run, created_at, updated_at FROM sessions WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Status, &rec.DryRun, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// EventRecord is one row of the events table.
type EventRecord struct {
	EntityType string
	EntityID   string
	Name       string
	Status     string
	Message    string
	ParentID   string
	RecordedAt time.Time
}

// ListEvents returns every recorded event for sessionID in insertion
// order, the durable history a harness can replay after the live SSE
// stream for that session has ended.
func (s *Store) ListEvents(ctx context.Context, sessionID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, entity_id, name, status, coalesce(message, ''), coalesce(parent_id, ''), recorded_at
		FROM events WHERE session_id = $1 ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		if err := rows.Scan(&rec.EntityType, &rec.EntityID, &rec.Name, &rec.Status, &rec.Message, &rec.ParentID, &rec.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SessionsOlderThan returns the IDs of every session whose updated_at is
// older than cutoff, so a caller can remove per-session side effects
// (e.g. an execution_output/<id>/ directory) before the row itself is
// pruned.
func (s *Store) SessionsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PruneOlderThan deletes every session (and, by cascade, its events and
// test_nodes rows) whose updated_at is older than cutoff, implementing
// C15's retention sweep. It returns the number of sessions removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
