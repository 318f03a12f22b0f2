package response

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxPayloadSize is 16KB, ample for a handful of typed fields.
	DefaultMaxPayloadSize = 16 * 1024
	// EnvMaxPayloadSize is the environment variable to override the default
	EnvMaxPayloadSize = "PLUGD_MAX_RESPONSE_SIZE"
)

var (
	ErrPayloadTooLarge = errors.New("response payload exceeds maximum allowed size")
	ErrInvalidUTF8     = errors.New("response payload contains invalid UTF-8 sequences")
)

// Sanitize enforces the payload size limit, validates UTF-8 and strips
// control characters other than newline, tab and carriage return.
// Responders call it before handing a payload to the coordinator.
func Sanitize(raw string) (string, error) {
	limit := MaxPayloadSize()
	if len(raw) > limit {
		// Reject rather than truncate: a truncated JSON payload is never what was meant.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrPayloadTooLarge, len(raw), limit)
	}

	if !utf8.ValidString(raw) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range raw {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return raw, nil
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// MaxPayloadSize returns the active payload limit.
func MaxPayloadSize() int {
	if val := os.Getenv(EnvMaxPayloadSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxPayloadSize
}
