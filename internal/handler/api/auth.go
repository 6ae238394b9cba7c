// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/olegiv/ovoice-go/internal/auth"
	"github.com/olegiv/ovoice-go/internal/degrade"
	"github.com/olegiv/ovoice-go/internal/middleware"
	"github.com/olegiv/ovoice-go/internal/moderation"
)

// LoginRequest is the body of POST /api/admin/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of POST /api/admin/password.
// OldPassword is accepted as an alias of CurrentPassword.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
}

// LoginFailureResponse tells the client how many failures remain before
// the lockout.
type LoginFailureResponse struct {
	RemainingAttempts int `json:"remainingAttempts"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse describes the caller's admin session.
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	IssuedAt      *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// PasswordStatusResponse is the body of GET /api/admin/password.
type PasswordStatusResponse struct {
	auth.PasswordStatus
	Session SessionResponse `json:"session"`
}

// Login handles POST /api/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		WriteBadRequest(w, "Password is required")
		return
	}

	ip := middleware.ClientIP(r)
	res := h.auth.Login(r.Context(), req.Password)
	switch {
	case res.OK:
		if h.login != nil {
			h.login.RecordSuccessfulLogin(ip)
		}
		slog.Info("admin logged in", "category", "auth", "ip", ip)
		http.SetCookie(w, res.Cookie)
		WriteSuccess(w, MessageResponse{Message: "Login successful"}, degrade.Degradation{})
	case res.Degraded:
		WriteError(w, http.StatusServiceUnavailable, CodeStorageUnavailable, moderation.DegradedMessage)
	default:
		slog.Warn("admin login failed", "category", "auth", "ip", ip)
		if h.login == nil {
			WriteError(w, http.StatusUnauthorized, middleware.CodeUnauthorized, "Invalid password")
			return
		}
		if locked, lockFor := h.login.RecordFailedAttempt(ip); locked {
			w.Header().Set("Retry-After", strconv.Itoa(int(lockFor.Round(time.Second).Seconds())))
			WriteError(w, http.StatusTooManyRequests, middleware.CodeRateLimited,
				"Too many failed attempts. Please try again later.")
			return
		}
		middleware.WriteJSON(w, http.StatusUnauthorized, middleware.Envelope{
			Data:  LoginFailureResponse{RemainingAttempts: h.login.RemainingAttempts(ip)},
			Error: &middleware.ErrorBody{Code: middleware.CodeUnauthorized, Message: "Invalid password"},
		})
	}
}

// Logout handles POST /api/admin/logout.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.auth.ClearCookie())
	WriteSuccess(w, MessageResponse{Message: "Logged out successfully"}, degrade.Degradation{})
}

// Session handles GET /api/admin/session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.session(r), degrade.Degradation{})
}

func (h *Handler) session(r *http.Request) SessionResponse {
	if !h.auth.VerifySession(r) {
		return SessionResponse{}
	}
	resp := SessionResponse{Authenticated: true}
	if issued, ok := h.auth.SessionIssuedAt(r); ok {
		expires := issued.Add(auth.MaxAge)
		resp.IssuedAt = &issued
		resp.ExpiresAt = &expires
	}
	return resp
}

// PasswordStatus handles GET /api/admin/password.
func (h *Handler) PasswordStatus(w http.ResponseWriter, r *http.Request) {
	st, deg := h.auth.PasswordStatus(r.Context())
	WriteSuccess(w, PasswordStatusResponse{PasswordStatus: st, Session: h.session(r)}, deg)
}

// ChangePassword handles POST /api/admin/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	current := req.CurrentPassword
	if current == "" {
		current = req.OldPassword
	}
	if current == "" || req.NewPassword == "" {
		WriteBadRequest(w, "Current password and new password are required")
		return
	}

	err := h.auth.ChangePassword(r.Context(), current, req.NewPassword)
	if err == nil {
		WriteSuccess(w, MessageResponse{Message: "Password updated successfully"}, degrade.Degradation{})
		return
	}

	var perr *auth.PasswordError
	if !errors.As(err, &perr) {
		slog.Error("changing admin password", "category", "auth", "error", err)
		WriteError(w, http.StatusInternalServerError, middleware.CodeInternal, "Internal server error")
		return
	}
	switch perr.Code {
	case auth.CodeIncorrectCurrent:
		WriteError(w, http.StatusUnauthorized, perr.Code, perr.Message)
	case auth.CodeStorageUnavailable:
		WriteError(w, http.StatusServiceUnavailable, perr.Code, moderation.DegradedMessage)
	default:
		WriteError(w, http.StatusBadRequest, perr.Code, perr.Message)
	}
}
