// Package session converts between the live in-memory feedback session and
// its durable JSON-safe form.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/pkg/logger"
	"github.com/telestra/telestra/pkg/metrics"
)

// Uploader pushes finalized audio bytes to remote storage and returns a
// reference URL. The codec works without one; audio then embeds as a base64
// data URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Codec persists and restores feedback sessions.
type Codec struct {
	uploader Uploader
	logger   logger.Logger
}

// Option applies a configuration option to the Codec.
type Option func(*Codec)

// WithUploader sets the remote upload collaborator.
func WithUploader(u Uploader) Option {
	return func(c *Codec) {
		c.uploader = u
	}
}

// WithLogger sets a custom logger for the codec.
func WithLogger(l logger.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCodec creates a codec with configuration options.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		logger: logger.Get().Named("session-codec"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Persist serializes a session to its durable JSON form. Raw audio bytes
// become a base64 data URL, or a remote URL reference when an uploader is
// configured; exactly one representation is authoritative per chunk at save
// time. Zero-valued category ratings are stripped: zero and absent both
// mean unrated.
func (c *Codec) Persist(ctx context.Context, s *model.FeedbackSession) ([]byte, error) {
	out := s.Clone()
	out.Categories = out.Categories.Normalize()
	if len(out.Categories) == 0 {
		out.Categories = nil
	}

	if out.AudioTrack != nil {
		for i := range out.AudioTrack.Chunks {
			if err := c.persistChunk(ctx, &out.AudioTrack.Chunks[i]); err != nil {
				metrics.RecordSessionSaveError()
				return nil, fmt.Errorf("chunk %d: %w", i, err)
			}
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		metrics.RecordSessionSaveError()
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	metrics.RecordSessionSaved()
	return data, nil
}

// persistChunk converts a chunk to its single durable representation.
func (c *Codec) persistChunk(ctx context.Context, chunk *model.AudioChunk) error {
	// Already remote: the URL stays authoritative.
	if chunk.RemoteURL != "" {
		chunk.Data = nil
		chunk.DataURL = ""
		return nil
	}

	if len(chunk.Data) == 0 {
		// Persisted data URL from an earlier save round-trips untouched.
		return nil
	}

	if c.uploader != nil {
		url, err := c.uploader.Upload(ctx, chunk.Data, chunk.MimeType)
		if err == nil {
			chunk.RemoteURL = url
			chunk.Data = nil
			chunk.DataURL = ""
			return nil
		}
		// Upload failure degrades to embedding rather than losing audio.
		c.logger.Warn(ctx, "audio upload failed; embedding as data URL", logger.Error(err))
	}

	chunk.DataURL = EncodeDataURL(chunk.MimeType, chunk.Data)
	chunk.Data = nil
	return nil
}

// Restore parses a persisted session. Embedded data URLs are decoded back
// to raw bytes so a save/load round-trip preserves binary content. A
// malformed audio payload drops that chunk, degrading to an audio-less
// session rather than failing the load; replay then falls back to the
// simulated clock. Legacy flat-action sessions are translated on the fly.
func (c *Codec) Restore(ctx context.Context, data []byte) (*model.FeedbackSession, error) {
	if len(data) == 0 {
		metrics.RecordSessionLoadError()
		return nil, ErrEmptySession
	}

	if isLegacyShape(data) {
		s, err := restoreLegacy(data)
		if err != nil {
			metrics.RecordSessionLoadError()
			return nil, err
		}
		metrics.RecordLegacyTranslation()
		metrics.RecordSessionLoaded()
		return s, nil
	}

	var s model.FeedbackSession
	if err := json.Unmarshal(data, &s); err != nil {
		metrics.RecordSessionLoadError()
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	c.restoreAudio(ctx, &s)

	if s.Categories == nil {
		s.Categories = model.Categories{}
	}
	metrics.RecordSessionLoaded()
	return &s, nil
}

// restoreAudio decodes embedded chunks and drops the malformed ones.
func (c *Codec) restoreAudio(ctx context.Context, s *model.FeedbackSession) {
	if s.AudioTrack.Empty() {
		s.AudioTrack = nil
		return
	}

	kept := s.AudioTrack.Chunks[:0]
	for _, chunk := range s.AudioTrack.Chunks {
		if chunk.DataURL != "" {
			mimeType, raw, err := DecodeDataURL(chunk.DataURL)
			if err != nil {
				c.logger.Warn(ctx, "dropping malformed audio chunk", logger.Error(err))
				continue
			}
			chunk.Data = raw
			chunk.DataURL = ""
			if chunk.MimeType == "" {
				chunk.MimeType = mimeType
			}
		} else if chunk.RemoteURL == "" {
			// No representation at all; nothing to play.
			c.logger.Warn(ctx, "dropping audio chunk with no payload")
			continue
		}
		kept = append(kept, chunk)
	}
	s.AudioTrack.Chunks = kept

	if len(kept) == 0 {
		s.AudioTrack = nil
	}
}

// isLegacyShape detects the pre-timeline session format: a flat "actions"
// list instead of typed "events".
func isLegacyShape(data []byte) bool {
	var probe struct {
		Events  json.RawMessage `json:"events"`
		Actions json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Events == nil && probe.Actions != nil && !bytes.Equal(probe.Actions, []byte("null"))
}
