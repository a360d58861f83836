package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	xerrors "SongForge/internal/errors"
	"SongForge/pkg/plugin"
)

// Snapshot is one recorded registry state.
type Snapshot struct {
	ID         int64                            `json:"id"`
	Total      int                              `json:"total"`
	Active     map[plugin.CapabilityType]string `json:"active"`
	RecordedAt int64                            `json:"recordedAt"`
}

// SnapshotStore appends registry summaries to plugin_events.
type SnapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotStore wraps db.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db, now: time.Now}
}

// Record inserts s.
func (s *SnapshotStore) Record(ctx context.Context, summary plugin.Summary) error {
	active, err := json.Marshal(summary.Active)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "encode active plugins")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO plugin_events (total, active, recorded_at) VALUES (?, ?, ?)`,
		summary.Total, string(active), s.now().Unix(),
	); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "record registry snapshot")
	}
	return nil
}

// Latest returns up to limit snapshots, newest first.
func (s *SnapshotStore) Latest(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, total, active, recorded_at FROM plugin_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "query registry snapshots")
	}
	defer rows.Close()

	out := make([]Snapshot, 0, limit)
	for rows.Next() {
		var (
			snap   Snapshot
			active string
		)
		if err := rows.Scan(&snap.ID, &snap.Total, &active, &snap.RecordedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan registry snapshot")
		}
		if err := json.Unmarshal([]byte(active), &snap.Active); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "decode active plugins")
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "iterate registry snapshots")
	}
	return out, nil
}
