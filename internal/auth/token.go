// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// DefaultSecret signs tokens when no session secret is configured.
// Production configuration rejects it.
const DefaultSecret = "default-secret-change-in-production"

// MaxAge is the lifetime of a session token and of its cookie.
const MaxAge = 7 * 24 * time.Hour

const tokenRole = "admin"

// Strict decoding rejects non-zero padding bits, so no two encodings of a
// signature are accepted.
var tokenEncoding = base64.StdEncoding.Strict()

// TokenCodec issues and verifies stateless admin session tokens of the form
// base64("admin:<unix millis>") + "." + base64(HMAC-SHA256(secret, payload)).
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec creates a codec signing with secret.
func NewTokenCodec(secret string) *TokenCodec {
	if secret == "" {
		secret = DefaultSecret
	}
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the codec that reads the time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	return &TokenCodec{secret: c.secret, now: now}
}

// Issue creates a token stamped with the current time.
func (c *TokenCodec) Issue() string {
	payload := tokenRole + ":" + strconv.FormatInt(c.now().UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(payload)) + "." +
		base64.StdEncoding.EncodeToString(c.sign(payload))
}

// Verify reports whether token is well formed, unexpired and correctly signed.
func (c *TokenCodec) Verify(token string) bool {
	_, ok := c.parse(token)
	return ok
}

// IssuedAt returns the issue time of a valid token.
func (c *TokenCodec) IssuedAt(token string) (time.Time, bool) {
	return c.parse(token)
}

func (c *TokenCodec) parse(token string) (time.Time, bool) {
	encPayload, encSig, found := strings.Cut(token, ".")
	if !found || encPayload == "" || encSig == "" || strings.Contains(encSig, ".") {
		return time.Time{}, false
	}

	raw, err := tokenEncoding.DecodeString(encPayload)
	if err != nil {
		return time.Time{}, false
	}
	payload := string(raw)

	role, tsStr, found := strings.Cut(payload, ":")
	if !found || role != tokenRole {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	issued := time.UnixMilli(ms)
	if c.now().Sub(issued) > MaxAge {
		return time.Time{}, false
	}

	sig, err := tokenEncoding.DecodeString(encSig)
	if err != nil {
		return time.Time{}, false
	}
	if !hmac.Equal(sig, c.sign(payload)) {
		return time.Time{}, false
	}
	return issued, true
}

func (c *TokenCodec) sign(payload string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
