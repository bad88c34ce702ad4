// Package store defines the session persistence interface and its
// implementations. The persistence collaborator is optional: the in-memory
// store keeps the core fully functional when no durable backend is
// configured.
package store

import "context"

// Info is the listing metadata kept alongside a persisted session payload.
type Info struct {
	ID        string `json:"id"`
	VideoID   string `json:"videoId"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime,omitempty"`
	Events    int    `json:"events"`
	HasAudio  bool   `json:"hasAudio"`
}

// Store provides read/write access to persisted sessions. Payloads are the
// codec's JSON-safe form and are opaque to the store.
type Store interface {
	// Save persists a session payload, replacing any previous version.
	Save(ctx context.Context, info Info, payload []byte) error

	// Load returns the payload for a session id.
	// Returns ErrNotFound if the session is unknown.
	Load(ctx context.Context, id string) ([]byte, error)

	// List returns metadata for all persisted sessions, newest first.
	List(ctx context.Context) ([]Info, error)

	// Delete removes a persisted session.
	// Returns ErrNotFound if the session is unknown.
	Delete(ctx context.Context, id string) error

	// Close releases the backend.
	Close() error
}
