package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenCodec_IssueVerify(t *testing.T) {
	c := NewTokenCodec("a-test-secret-that-is-long-enough-123")
	token := c.Issue()

	parts := strings.Split(token, ".")
	require.Len(t, parts, 2)

	payload, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "admin:"))

	assert.True(t, c.Verify(token))
}

func TestTokenCodec_Expiry(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewTokenCodec("secret").WithClock(fixedClock(start))
	token := c.Issue()

	sixDays := c.WithClock(fixedClock(start.Add(6 * 24 * time.Hour)))
	assert.True(t, sixDays.Verify(token), "token should be valid after 6 days")

	exactly := c.WithClock(fixedClock(start.Add(MaxAge)))
	assert.True(t, exactly.Verify(token), "token should be valid at exactly 7 days")

	eightDays := c.WithClock(fixedClock(start.Add(8 * 24 * time.Hour)))
	assert.False(t, eightDays.Verify(token), "token should be expired after 8 days")
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	token := NewTokenCodec("secret-one").Issue()
	assert.False(t, NewTokenCodec("secret-two").Verify(token))
}

func TestTokenCodec_DefaultSecret(t *testing.T) {
	token := NewTokenCodec("").Issue()
	assert.True(t, NewTokenCodec(DefaultSecret).Verify(token))
}

func TestTokenCodec_Malformed(t *testing.T) {
	c := NewTokenCodec("secret")
	valid := c.Issue()
	encSig := strings.Split(valid, ".")[1]
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no dot", "abc"},
		{"empty payload", "." + encSig},
		{"empty signature", enc("admin:1") + "."},
		{"three parts", valid + ".x"},
		{"bad base64 payload", "!!!." + encSig},
		{"wrong role", enc("user:" + strings.TrimPrefix(mustDecode(t, valid), "admin:")) + "." + encSig},
		{"non numeric timestamp", enc("admin:abc") + "." + encSig},
		{"zero timestamp", enc("admin:0") + "." + encSig},
		{"negative timestamp", enc("admin:-5") + "." + encSig},
		{"bad base64 signature", strings.Split(valid, ".")[0] + ".***"},
		{"tampered signature", strings.Split(valid, ".")[0] + "." + enc("not-a-mac")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, c.Verify(tt.token))
		})
	}
}

func TestTokenCodec_SignatureByteFlip(t *testing.T) {
	c := NewTokenCodec("secret")
	token := c.Issue()
	dot := strings.IndexByte(token, '.')
	require.Positive(t, dot)

	for i := dot + 1; i < len(token); i++ {
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		assert.False(t, c.Verify(string(b)), "altered byte %d still verifies", i)
	}
}

func TestTokenCodec_IssuedAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewTokenCodec("secret").WithClock(fixedClock(start))

	issued, ok := c.IssuedAt(c.Issue())
	require.True(t, ok)
	assert.True(t, issued.Equal(start))

	_, ok = c.IssuedAt("garbage")
	assert.False(t, ok)
}

func mustDecode(t *testing.T, token string) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(strings.Split(token, ".")[0])
	require.NoError(t, err)
	return string(raw)
}
