package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"binsim/internal/state"
)

// SnapshotStore persists structural store snapshots to Postgres. Each
// save inserts a new row under the instance's persistence key; loads
// take the newest row for the key.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (ss *SnapshotStore) EnsureSchema(ctx context.Context) error {
	_, err := ss.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS binsim_snapshots (
			id          BIGSERIAL PRIMARY KEY,
			key         TEXT NOT NULL,
			taken_at    TIMESTAMPTZ NOT NULL,
			size_bytes  INTEGER NOT NULL,
			data        JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	_, err = ss.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS binsim_snapshots_key_taken_at
			ON binsim_snapshots (key, taken_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("create snapshot index: %w", err)
	}
	return nil
}

// Save writes one snapshot row. Returns the encoded size in bytes.
func (ss *SnapshotStore) Save(ctx context.Context, key string, snap *state.Snapshot) (int, error) {
	if key == "" {
		return 0, fmt.Errorf("persistence key is empty")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = ss.db.ExecContext(ctx, `
		INSERT INTO binsim_snapshots (key, taken_at, size_bytes, data)
		VALUES ($1, $2, $3, $4)
	`, key, snap.TakenAt, len(data), data)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return len(data), nil
}

// Load returns the newest snapshot for the key, or (nil, nil) when the
// key has never been saved.
func (ss *SnapshotStore) Load(ctx context.Context, key string) (*state.Snapshot, error) {
	row := ss.db.QueryRowContext(ctx, `
		SELECT data FROM binsim_snapshots
		WHERE key = $1
		ORDER BY taken_at DESC, id DESC
		LIMIT 1
	`, key)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Prune deletes rows for the key beyond the newest keep generations.
func (ss *SnapshotStore) Prune(ctx context.Context, key string, keep int) error {
	if keep <= 0 {
		return fmt.Errorf("keep must be positive")
	}
	_, err := ss.db.ExecContext(ctx, `
		DELETE FROM binsim_snapshots
		WHERE key = $1 AND id NOT IN (
			SELECT id FROM binsim_snapshots
			WHERE key = $1
			ORDER BY taken_at DESC, id DESC
			LIMIT $2
		)
	`, key, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// LatestInfo reports when the newest snapshot for the key was taken.
func (ss *SnapshotStore) LatestInfo(ctx context.Context, key string) (time.Time, bool, error) {
	row := ss.db.QueryRowContext(ctx, `
		SELECT taken_at FROM binsim_snapshots
		WHERE key = $1
		ORDER BY taken_at DESC, id DESC
		LIMIT 1
	`, key)
	var takenAt time.Time
	if err := row.Scan(&takenAt); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return takenAt, true, nil
}
