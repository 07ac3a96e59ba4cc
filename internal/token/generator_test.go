package token

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	qrTokenPattern   = regexp.MustCompile(`^qr_\d+_[0-9a-z]{7}$`)
	shortCodePattern = regexp.MustCompile(`^[A-Z]{3}-[0-9]{3}$`)
)

func TestSessionTokenFormat(t *testing.T) {
	clock := &FakeClock{Current: time.UnixMilli(1700000000000)}
	gen := NewGenerator(clock)

	tok := gen.SessionToken()
	require.Regexp(t, qrTokenPattern, tok)

	millis, ok := Timestamp(tok)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), millis)
}

func TestSessionTokenUniqueSuffix(t *testing.T) {
	gen := NewGenerator(nil)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		tok := gen.SessionToken()
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token %s", tok)
		seen[tok] = struct{}{}
	}
}

func TestShortCodeFormat(t *testing.T) {
	gen := NewGenerator(nil)
	for i := 0; i < 50; i++ {
		require.Regexp(t, shortCodePattern, gen.ShortCode())
	}
}

func TestTimestampRejectsMalformedCodes(t *testing.T) {
	for _, code := range []string{"", "qr_", "qr_abc_x", "qr_123", "ABC-123", "qr__abcdefg", "xr_123_abcdefg"} {
		_, ok := Timestamp(code)
		assert.False(t, ok, "code %q should not parse", code)
	}
}

func TestExpiredBoundary(t *testing.T) {
	clock := &FakeClock{Current: time.UnixMilli(1700000000000)}
	gen := NewGenerator(clock)
	tok := gen.SessionToken()

	validity := int64(60_000)
	base := clock.Current.UnixMilli()

	assert.False(t, Expired(tok, base, validity))
	assert.False(t, Expired(tok, base+59_999, validity))
	assert.True(t, Expired(tok, base+60_000, validity))
	assert.True(t, Expired(tok, base+120_000, validity))

	// Non-QR-shaped input never expires; it just won't match a session.
	assert.False(t, Expired("ABC-123", base+120_000, validity))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ABC123", Normalize("abc-123"))
	assert.Equal(t, "ABC123", Normalize(" AbC 123 "))
	assert.Equal(t, "ABC123", Normalize("ABC123"))
	assert.Equal(t, "QR_1_X", Normalize("qr_1_x"))
}
