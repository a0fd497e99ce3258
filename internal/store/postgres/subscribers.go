package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriberStore is the registry of live broadcast connections. Entries are
// ephemeral: subscribers may vanish without a disconnect, so every row
// carries an expiry and the hub prunes rows that turn out to be stale.
type SubscriberStore struct {
	pool *pgxpool.Pool
}

func NewSubscriberStore(pool *pgxpool.Pool) *SubscriberStore {
	return &SubscriberStore{pool: pool}
}

func (s *SubscriberStore) Register(ctx context.Context, connectionID string, now, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscribers (connection_id, connected_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (connection_id) DO UPDATE SET
			connected_at = EXCLUDED.connected_at, expires_at = EXCLUDED.expires_at`,
		connectionID, now, expiresAt)
	if err != nil {
		return fmt.Errorf("register subscriber %s: %w", connectionID, err)
	}
	return nil
}

func (s *SubscriberStore) Remove(ctx context.Context, connectionID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM subscribers WHERE connection_id = $1`, connectionID)
	if err != nil {
		return fmt.Errorf("remove subscriber %s: %w", connectionID, err)
	}
	return nil
}

// List returns the connection IDs that have not expired.
func (s *SubscriberStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT connection_id FROM subscribers WHERE expires_at > now()`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
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

func (s *SubscriberStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM subscribers WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired subscribers: %w", err)
	}
	return tag.RowsAffected(), nil
}
