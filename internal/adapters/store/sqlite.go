package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the pure-Go "sqlite" driver

	"github.com/telestra/telestra/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	video_id   TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	end_time   INTEGER NOT NULL DEFAULT 0,
	events     INTEGER NOT NULL DEFAULT 0,
	has_audio  INTEGER NOT NULL DEFAULT 0,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time DESC);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates when missing) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save persists a session payload, replacing any previous version.
func (s *SQLiteStore) Save(ctx context.Context, info Info, payload []byte) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("save", float64(time.Since(start).Milliseconds()))
	}()

	hasAudio := 0
	if info.HasAudio {
		hasAudio = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, video_id, start_time, end_time, events, has_audio, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			video_id = excluded.video_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			events = excluded.events,
			has_audio = excluded.has_audio,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		info.ID, info.VideoID, info.StartTime, info.EndTime, info.Events, hasAudio, payload, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save session %s: %w", info.ID, err)
	}
	return nil
}

// Load returns the payload for a session id.
func (s *SQLiteStore) Load(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("load", float64(time.Since(start).Milliseconds()))
	}()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return payload, nil
}

// List returns metadata for all persisted sessions, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("list", float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_id, start_time, end_time, events, has_audio
		FROM sessions ORDER BY start_time DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var hasAudio int
		if err := rows.Scan(&info.ID, &info.VideoID, &info.StartTime, &info.EndTime, &info.Events, &hasAudio); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		info.HasAudio = hasAudio != 0
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

// Delete removes a persisted session.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("delete", float64(time.Since(start).Milliseconds()))
	}()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
