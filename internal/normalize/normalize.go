package normalize

import (
	"errors"
	"strconv"
	"strings"
)

// MAC normalizes a hardware address to lowercase colon-separated hex octets.
// Accepts colon, dash, or dot separated forms and bare 12-digit hex.
func MAC(value string) (string, error) {
	hex := hexDigits(value)
	if len(hex) != 12 {
		return "", errors.New("hardware address must contain 12 hex digits")
	}
	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(hex[i : i+2])
	}
	return b.String(), nil
}

// Octets parses a hardware address into its byte values. The scoring engine
// uses these for the locally-administered bit and the uniqueness fraction.
func Octets(value string) ([]byte, error) {
	hex := hexDigits(value)
	if len(hex) != 12 {
		return nil, errors.New("hardware address must contain 12 hex digits")
	}
	out := make([]byte, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

func hexDigits(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	b.Grow(12)
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'f':
			b.WriteRune(r)
		case r >= 'A' && r <= 'F':
			b.WriteRune(r - 'A' + 'a')
		case r == ':' || r == '-' || r == '.':
		default:
			return ""
		}
	}
	return b.String()
}
