package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docketpulse/docketpulse/internal/pipeline"
)

// metadataChunk is the fixed sub-key under which the per-document pipeline
// record is stored. The (document_id, chunk_id) layout mirrors the schema
// the rest of the comment-processing tooling expects.
const metadataChunk = "metadata"

// StateStore is the durable per-document record of pipeline progress.
//
// Writes replace the record wholesale. Every write bumps the version column;
// CheckAndPut uses it as a guard so duplicate arrival events for the same
// document resolve to exactly one winner.
type StateStore struct {
	pool *pgxpool.Pool
}

func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool}
}

// StateRecord is a stored state plus its concurrency and expiry metadata.
type StateRecord struct {
	DocumentID string
	State      pipeline.State
	ExpiresAt  time.Time
	Version    int64
}

// Create inserts the initial record for a document with its expiry window.
// An existing record is overwritten, resetting the expiry: re-submitting a
// document restarts its lifecycle.
func (s *StateStore) Create(ctx context.Context, documentID string, st pipeline.State, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_states
			(document_id, chunk_id, status, stage, progress, error, start_time, last_updated, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		ON CONFLICT (document_id, chunk_id) DO UPDATE SET
			status = EXCLUDED.status, stage = EXCLUDED.stage, progress = EXCLUDED.progress,
			error = EXCLUDED.error, start_time = EXCLUDED.start_time,
			last_updated = EXCLUDED.last_updated, expires_at = EXCLUDED.expires_at,
			version = document_states.version + 1`,
		documentID, metadataChunk, st.Status, st.Stage, st.Progress,
		nullIfEmpty(st.Error), nullIfZero(st.StartTime), st.LastUpdated, expiresAt)
	if err != nil {
		return fmt.Errorf("create state %s: %w", documentID, err)
	}
	return nil
}

// Put overwrites a document's state, keeping the expiry set at submission.
// A Put against an unknown document is a no-op: stage handlers must never
// resurrect an expired or never-submitted record.
func (s *StateStore) Put(ctx context.Context, documentID string, st pipeline.State) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE document_states SET
			status = $3, stage = $4, progress = $5, error = $6, last_updated = $7,
			version = version + 1
		WHERE document_id = $1 AND chunk_id = $2`,
		documentID, metadataChunk, st.Status, st.Stage, st.Progress,
		nullIfEmpty(st.Error), st.LastUpdated)
	if err != nil {
		return fmt.Errorf("put state %s: %w", documentID, err)
	}
	return nil
}

// CheckAndPut overwrites the state only if the stored version still matches
// expectedVersion. Returns false when another writer got there first.
func (s *StateStore) CheckAndPut(ctx context.Context, documentID string, st pipeline.State, expectedVersion int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE document_states SET
			status = $3, stage = $4, progress = $5, error = $6, last_updated = $7,
			version = version + 1
		WHERE document_id = $1 AND chunk_id = $2 AND version = $8`,
		documentID, metadataChunk, st.Status, st.Stage, st.Progress,
		nullIfEmpty(st.Error), st.LastUpdated, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("conditional put state %s: %w", documentID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get returns the current record for a document. Expired records are
// invisible even before the sweeper removes them; callers see pgx.ErrNoRows
// either way.
func (s *StateStore) Get(ctx context.Context, documentID string) (StateRecord, error) {
	var (
		rec       StateRecord
		errText   *string
		startTime *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT document_id, status, stage, progress, error, start_time, last_updated, expires_at, version
		FROM document_states
		WHERE document_id = $1 AND chunk_id = $2 AND expires_at > now()`,
		documentID, metadataChunk).Scan(
		&rec.DocumentID, &rec.State.Status, &rec.State.Stage, &rec.State.Progress,
		&errText, &startTime, &rec.State.LastUpdated, &rec.ExpiresAt, &rec.Version)
	if err != nil {
		return StateRecord{}, err
	}
	if errText != nil {
		rec.State.Error = *errText
	}
	if startTime != nil {
		rec.State.StartTime = *startTime
	}
	return rec, nil
}

// DeleteExpired removes records whose expiry has passed and returns the count.
func (s *StateStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM document_states WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired states: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullIfZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
