// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/ovoice-go/internal/degrade"
	"github.com/olegiv/ovoice-go/internal/store"
)

// CookieName is the name of the admin session cookie.
const CookieName = "admin_session"

// MinPasswordLength is the shortest password accepted by ChangePassword.
const MinPasswordLength = 8

// DefaultSeedPassword seeds the credential when none is configured.
const DefaultSeedPassword = "12345678"

// legacyTrapdoor was accepted unconditionally by earlier releases.
// It can no longer log in and can never be chosen as a password.
const legacyTrapdoor = "Taha2005"

// Password change failure codes.
const (
	CodeIncorrectCurrent   = "INCORRECT_CURRENT"
	CodeTooShort           = "TOO_SHORT"
	CodeReservedValue      = "RESERVED_VALUE"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// PasswordError is the typed failure of a password change.
type PasswordError struct {
	Code    string
	Message string
	Err     error
}

func (e *PasswordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *PasswordError) Unwrap() error { return e.Err }

// CredentialStore persists the admin credential singleton.
// *store.Queries satisfies it.
type CredentialStore interface {
	GetAdminConfig(ctx context.Context) (store.AdminConfig, error)
	CreateAdminConfigIfMissing(ctx context.Context, arg store.CreateAdminConfigParams) (int64, error)
	UpdateAdminPassword(ctx context.Context, arg store.UpdateAdminPasswordParams) (int64, error)
	UpsertAdminPassword(ctx context.Context, arg store.UpdateAdminPasswordParams) error
}

// ServiceConfig holds the credential settings taken from configuration.
type ServiceConfig struct {
	// SeedPassword is hashed into the credential row when it is first created.
	SeedPassword string
	// RecoveryPassword, when set, always authenticates.
	RecoveryPassword string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// Service authenticates the admin and manages the session cookie.
type Service struct {
	store CredentialStore
	codec *TokenCodec
	cfg   ServiceConfig

	init singleflight.Group
	now  func() time.Time
}

// NewService creates an authentication service.
func NewService(cs CredentialStore, codec *TokenCodec, cfg ServiceConfig) *Service {
	cfg.SeedPassword = cleanSecret(cfg.SeedPassword)
	if cfg.SeedPassword == "" {
		cfg.SeedPassword = DefaultSeedPassword
	}
	cfg.RecoveryPassword = cleanSecret(cfg.RecoveryPassword)
	return &Service{store: cs, codec: codec, cfg: cfg, now: time.Now}
}

// cleanSecret strips one pair of surrounding quotes and whitespace, which
// .env files and container environments tend to leave in place.
func cleanSecret(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// Codec returns the token codec used for session cookies.
func (s *Service) Codec() *TokenCodec { return s.codec }

// Bootstrap creates the credential row from the seed password if it does
// not exist yet. Concurrent callers share one in-flight attempt.
func (s *Service) Bootstrap(ctx context.Context) error {
	_, err, _ := s.init.Do("bootstrap", func() (any, error) {
		if _, err := s.store.GetAdminConfig(ctx); err == nil {
			return nil, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loading admin credential: %w", err)
		}

		hash, err := HashPassword(s.cfg.SeedPassword)
		if err != nil {
			return nil, fmt.Errorf("hashing seed password: %w", err)
		}
		created, err := s.store.CreateAdminConfigIfMissing(ctx, store.CreateAdminConfigParams{
			PasswordHash: hash,
			CreatedAt:    s.now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("creating admin credential: %w", err)
		}
		if created > 0 {
			slog.Info("admin credential initialized", "category", "auth")
			if s.cfg.SeedPassword == DefaultSeedPassword {
				slog.Warn("admin credential seeded with the default password, change it", "category", "auth")
			}
		}
		return nil, nil
	})
	return err
}

func (s *Service) loadCredential(ctx context.Context) (store.AdminConfig, error) {
	cfg, err := s.store.GetAdminConfig(ctx)
	if !errors.Is(err, sql.ErrNoRows) {
		return cfg, err
	}
	if err := s.Bootstrap(ctx); err != nil {
		return store.AdminConfig{}, err
	}
	return s.store.GetAdminConfig(ctx)
}

// CheckPassword reports whether candidate is the admin password. A storage
// outage is returned as a degraded state and never as a match.
func (s *Service) CheckPassword(ctx context.Context, candidate string) (bool, degrade.Degradation) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false, degrade.Degradation{}
	}

	if s.cfg.RecoveryPassword != "" &&
		subtle.ConstantTimeCompare([]byte(candidate), []byte(s.cfg.RecoveryPassword)) == 1 {
		slog.Warn("admin authenticated with recovery credential", "category", "auth")
		return true, degrade.Degradation{}
	}

	res := degrade.Run(ctx, "load admin credential", s.loadCredential, store.AdminConfig{})
	if !res.OK {
		// A row that is still missing after bootstrap is an outage as well.
		code := res.ErrorCode
		if !res.Degraded {
			code = degrade.CodeQueryFailed
		}
		return false, degrade.Degradation{Degraded: true, ErrorCode: code}
	}

	ok, err := CheckPassword(candidate, res.Data.PasswordHash)
	if err != nil {
		slog.Error("stored admin password hash unreadable", "category", "auth", "error", err)
		return false, degrade.Degradation{}
	}
	if ok && NeedsRehash(res.Data.PasswordHash) {
		s.rehash(ctx, candidate)
	}
	return ok, degrade.Degradation{}
}

func (s *Service) rehash(ctx context.Context, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		slog.Error("rehashing admin password", "category", "auth", "error", err)
		return
	}
	if _, err := s.store.UpdateAdminPassword(ctx, store.UpdateAdminPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    s.now().UTC(),
	}); err != nil {
		slog.Warn("storing rehashed admin password", "category", "auth", "error", err)
		return
	}
	slog.Info("admin password hash upgraded to argon2id", "category", "auth")
}

// LoginResult is the outcome of a login attempt.
type LoginResult struct {
	OK     bool
	Token  string
	Cookie *http.Cookie
	degrade.Degradation
}

// Login checks candidate and, on success, issues a session token together
// with the cookie carrying it.
func (s *Service) Login(ctx context.Context, candidate string) LoginResult {
	ok, deg := s.CheckPassword(ctx, candidate)
	if !ok {
		return LoginResult{Degradation: deg}
	}
	token := s.codec.Issue()
	return LoginResult{OK: true, Token: token, Cookie: s.sessionCookie(token, int(MaxAge.Seconds()))}
}

// VerifySession reports whether r carries a valid session cookie.
func (s *Service) VerifySession(r *http.Request) bool {
	token, ok := sessionToken(r)
	return ok && s.codec.Verify(token)
}

// SessionIssuedAt returns when the session carried by r was issued.
func (s *Service) SessionIssuedAt(r *http.Request) (time.Time, bool) {
	token, ok := sessionToken(r)
	if !ok {
		return time.Time{}, false
	}
	return s.codec.IssuedAt(token)
}

func sessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	// PathUnescape leaves '+' alone, which standard base64 relies on.
	if decoded, err := url.PathUnescape(c.Value); err == nil {
		return decoded, true
	}
	return c.Value, true
}

// ClearCookie returns a cookie that removes the session.
func (s *Service) ClearCookie() *http.Cookie {
	return s.sessionCookie("", -1)
}

func (s *Service) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// ChangePassword replaces the admin password after verifying current.
// Failures are returned as *PasswordError.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	ok, deg := s.CheckPassword(ctx, current)
	if deg.Degraded {
		return &PasswordError{Code: CodeStorageUnavailable, Message: "Temporary unavailable. Please try again later."}
	}
	if !ok {
		return &PasswordError{Code: CodeIncorrectCurrent, Message: "Current password is incorrect"}
	}

	next, err := s.validateNew(next)
	if err != nil {
		return err
	}

	hash, err := HashPassword(next)
	if err != nil {
		return &PasswordError{Code: CodeStorageUnavailable, Message: "Failed to update password", Err: err}
	}
	res := degrade.Run(ctx, "update admin password", func(ctx context.Context) (int64, error) {
		return s.store.UpdateAdminPassword(ctx, store.UpdateAdminPasswordParams{
			PasswordHash: hash,
			UpdatedAt:    s.now().UTC(),
		})
	}, 0)
	if !res.OK || res.Data == 0 {
		return &PasswordError{Code: CodeStorageUnavailable, Message: "Temporary unavailable. Please try again later.", Err: res.Err}
	}

	slog.Warn("admin password changed", "category", "auth")
	return nil
}

// ResetPassword overwrites the stored credential without checking the
// current password. Used by the maintenance command line flag.
func (s *Service) ResetPassword(ctx context.Context, next string) error {
	next, err := s.validateNew(next)
	if err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.store.UpsertAdminPassword(ctx, store.UpdateAdminPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("storing admin password: %w", err)
	}
	slog.Warn("admin password reset from command line", "category", "auth")
	return nil
}

// validateNew trims next the same way CheckPassword trims candidates and
// returns the value to hash.
func (s *Service) validateNew(next string) (string, error) {
	next = strings.TrimSpace(next)
	if len([]rune(next)) < MinPasswordLength {
		return "", &PasswordError{
			Code:    CodeTooShort,
			Message: fmt.Sprintf("New password must be at least %d characters", MinPasswordLength),
		}
	}
	if next == legacyTrapdoor || (s.cfg.RecoveryPassword != "" && next == s.cfg.RecoveryPassword) {
		return "", &PasswordError{Code: CodeReservedValue, Message: "This password is reserved and cannot be used"}
	}
	return next, nil
}

// PasswordStatus describes the stored credential for the admin screen.
type PasswordStatus struct {
	Configured      bool       `json:"configured"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
	RecoveryEnabled bool       `json:"recoveryEnabled"`
	MinLength       int        `json:"minLength"`
}

// PasswordStatus reports whether a credential is stored and when it last
// changed.
func (s *Service) PasswordStatus(ctx context.Context) (PasswordStatus, degrade.Degradation) {
	st := PasswordStatus{
		RecoveryEnabled: s.cfg.RecoveryPassword != "",
		MinLength:       MinPasswordLength,
	}
	res := degrade.Run(ctx, "load admin credential", s.store.GetAdminConfig, store.AdminConfig{})
	switch {
	case res.OK:
		st.Configured = true
		updated := res.Data.UpdatedAt
		st.UpdatedAt = &updated
	case res.Degraded:
		return st, res.State()
	}
	return st, degrade.Degradation{}
}
