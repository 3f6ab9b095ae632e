package gridfetch

import (
	"fmt"
	"strings"
)

// DecodeKey percent-decodes the request key taken from the URL path after the
// route prefix. Every %XY triplet becomes the byte 0xXY; all other bytes,
// including '+', control and non-ASCII bytes, pass through unchanged.
//
// It returns ErrMalformedInput when a '%' is followed by fewer than two bytes
// or by a non-hex digit.
func DecodeKey(raw string) (string, error) {
	if strings.IndexByte(raw, '%') < 0 {
		return raw, nil
	}

	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '%' {
			out = append(out, c)
			continue
		}

		if i+2 >= len(raw) {
			return "", fmt.Errorf("decode key: %w: truncated escape at offset %d", ErrMalformedInput, i)
		}

		hi, okHi := unhex(raw[i+1])
		lo, okLo := unhex(raw[i+2])
		if !okHi || !okLo {
			return "", fmt.Errorf("decode key: %w: invalid escape %q at offset %d", ErrMalformedInput, raw[i:i+3], i)
		}

		out = append(out, hi<<4|lo)
		i += 2
	}

	return string(out), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
