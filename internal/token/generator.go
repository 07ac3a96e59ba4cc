package token

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Wire formats. These are bit-exact contracts shared with the scan parser on
// the client side.
//
//	QR token:   qr_<unixMillis>_<base36 random, 7 chars>
//	Short code: [A-Z]{3}-[0-9]{3}
const (
	qrPrefix        = "qr_"
	randomSuffixLen = 7
)

const (
	base36Alphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	shortCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	shortCodeDigits  = "0123456789"
)

// Generator produces QR tokens and short codes stamped by the injected clock.
type Generator struct {
	clock Clock
}

// NewGenerator constructs a Generator. A nil clock falls back to the system
// clock.
func NewGenerator(clock Clock) *Generator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Generator{clock: clock}
}

// SessionToken returns a fresh QR token embedding the current epoch millis.
// Uniqueness within a course's active sessions holds with overwhelming
// probability via the 7-char random suffix.
func (g *Generator) SessionToken() string {
	millis := g.clock.Now().UnixMilli()
	return fmt.Sprintf("%s%d_%s", qrPrefix, millis, randomString(base36Alphabet, randomSuffixLen))
}

// ShortCode returns a human-enterable fallback code for online sessions.
func (g *Generator) ShortCode() string {
	return randomString(shortCodeLetters, 3) + "-" + randomString(shortCodeDigits, 3)
}

// Timestamp extracts the embedded generation instant from a QR token. The
// second return is false when the value does not match the token shape.
func Timestamp(code string) (int64, bool) {
	if !strings.HasPrefix(code, qrPrefix) {
		return 0, false
	}
	parts := strings.SplitN(code[len(qrPrefix):], "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return 0, false
	}
	millis, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return millis, true
}

// Expired reports whether a QR-shaped code has outlived the validity window
// at the given instant. Non-QR-shaped input is never expired; it simply will
// not match any session. Validity is measured from the embedded timestamp,
// independent of whether the token has been superseded.
func Expired(code string, nowMillis int64, validityMillis int64) bool {
	millis, ok := Timestamp(code)
	if !ok {
		return false
	}
	return nowMillis-millis >= validityMillis
}

// Normalize uppercases the input and strips whitespace and hyphens so short
// codes can be entered with or without separators.
func Normalize(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func randomString(alphabet string, n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform entropy source is broken;
		// fall back to a constant rather than panic in the scan path.
		for i := range buf {
			buf[i] = 0
		}
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
