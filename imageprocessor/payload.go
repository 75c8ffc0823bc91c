package imageprocessor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrEmptyPayload is returned when the payload carries no data at all
	ErrEmptyPayload = errors.New("empty image payload")
	// ErrInvalidBase64 is returned when no base64 alphabet decodes the payload
	ErrInvalidBase64 = errors.New("payload is not valid base64")
)

var payloadEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodePayload decodes a base64 transport payload into raw image bytes.
// A leading data URL header ("data:image/png;base64,") and embedded
// whitespace are tolerated, as are unpadded and URL-safe encodings.
func DecodePayload(payload string) ([]byte, error) {
	s := strings.TrimSpace(payload)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if s == "" {
		return nil, ErrEmptyPayload
	}

	var lastErr error
	for _, enc := range payloadEncodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			if len(data) == 0 {
				return nil, ErrEmptyPayload
			}
			return data, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, lastErr)
}
