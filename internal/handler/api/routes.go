// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ovoice-go/internal/middleware"
)

const defaultSubmitRate = 10

// RoutesConfig configures the protection applied to the API routes.
type RoutesConfig struct {
	CORSOrigins []string
	SubmitRate  int // Public submissions per minute per IP
	CSRF        middleware.CSRFConfig
}

// Routes returns the /api router.
func (h *Handler) Routes(cfg RoutesConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORSOrigins))

	if cfg.SubmitRate <= 0 {
		cfg.SubmitRate = defaultSubmitRate
	}
	submitLimit := middleware.SubmitRateLimit(cfg.SubmitRate)

	r.Get("/voices", h.ListVoices)
	r.With(submitLimit).Post("/voices", h.CreateVoice)
	r.Get("/comments", h.ListComments)
	r.With(submitLimit).Post("/comments", h.CreateComment)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.CSRF(cfg.CSRF))

		login := http.HandlerFunc(h.Login)
		if h.login != nil {
			r.With(h.login.Middleware()).Post("/login", login)
		} else {
			r.Post("/login", login)
		}
		r.Post("/logout", h.Logout)
		r.Get("/session", h.Session)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminSession(h.auth))

			r.Get("/password", h.PasswordStatus)
			r.Post("/password", h.ChangePassword)
			r.Get("/stats", h.Stats)
			if h.events != nil {
				r.Get("/events", h.ListEvents)
			}

			r.Get("/voices", h.AdminListVoices)
			r.Get("/voices/{id}", h.AdminGetVoice)
			r.Patch("/voices/{id}", h.SetVoiceStatus)
			r.Put("/voices/{id}", h.SetVoiceStatus)

			r.Get("/comments", h.AdminListComments)
			r.Get("/comments/{id}", h.AdminGetComment)
			r.Patch("/comments/{id}", h.SetCommentStatus)
			r.Put("/comments/{id}", h.SetCommentStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, CodeNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, CodeValidation, "Method not allowed")
	})

	return r
}
