package recorder

import (
	"context"
	"time"
)

// Segment is one span of captured audio delivered by the stream.
type Segment struct {
	Data     []byte
	Duration time.Duration
}

// CaptureStream is an open microphone stream. Close releases the device and
// must always be called, even when finalization fails.
type CaptureStream interface {
	// Segments delivers captured audio segments. The channel is closed when
	// the stream is closed or the device stops.
	Segments() <-chan Segment

	// MimeType reports the negotiated recording format.
	MimeType() string

	Close() error
}

// CaptureDevice abstracts the microphone. Open fails with a
// PermissionDenied kind when the user declines access; recording then
// proceeds without audio.
type CaptureDevice interface {
	// Supported reports whether the device can record the given mime type.
	Supported(mimeType string) bool

	// Open acquires the microphone and starts capturing in the given
	// format. An empty mime type requests the platform default.
	Open(ctx context.Context, mimeType string) (CaptureStream, error)
}

// defaultCodecPreferences is the ordered codec negotiation list;
// opus-in-webm preferred.
var defaultCodecPreferences = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
	"audio/mp4",
}

// negotiateCodec picks the first supported mime type from the preference
// list. An empty result falls back to the platform default format.
func negotiateCodec(device CaptureDevice, preferences []string) string {
	for _, mimeType := range preferences {
		if device.Supported(mimeType) {
			return mimeType
		}
	}
	return ""
}
