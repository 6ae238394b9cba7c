// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
)

// SessionVerifier checks the admin session carried by a request.
// *auth.Service satisfies it.
type SessionVerifier interface {
	VerifySession(r *http.Request) bool
}

// AdminSession rejects requests without a valid admin session with a 401
// UNAUTHORIZED envelope.
func AdminSession(v SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.VerifySession(r) {
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
