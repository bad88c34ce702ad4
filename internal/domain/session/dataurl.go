package session

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const dataURLScheme = "data:"

// EncodeDataURL packs raw audio bytes into a base64 data URL suitable for
// JSON embedding. The mime type travels inside the URL so the conversion is
// lossless.
func EncodeDataURL(mimeType string, data []byte) string {
	return dataURLScheme + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL unpacks a base64 data URL into its mime type and raw bytes.
func DecodeDataURL(url string) (string, []byte, error) {
	if !strings.HasPrefix(url, dataURLScheme) {
		return "", nil, fmt.Errorf("missing data: scheme: %w", ErrMalformedAudio)
	}
	rest := strings.TrimPrefix(url, dataURLScheme)

	sep := strings.Index(rest, ",")
	if sep < 0 {
		return "", nil, fmt.Errorf("missing payload separator: %w", ErrMalformedAudio)
	}
	meta, payload := rest[:sep], rest[sep+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("unsupported encoding %q: %w", meta, ErrMalformedAudio)
	}
	mimeType := strings.TrimSuffix(meta, ";base64")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64: %w", ErrMalformedAudio)
	}
	return mimeType, data, nil
}
