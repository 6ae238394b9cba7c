// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON handlers of the voices service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/olegiv/ovoice-go/internal/auth"
	"github.com/olegiv/ovoice-go/internal/degrade"
	"github.com/olegiv/ovoice-go/internal/middleware"
	"github.com/olegiv/ovoice-go/internal/moderation"
)

// Error codes written by the handlers, in addition to the middleware ones.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeStorageUnavailable = auth.CodeStorageUnavailable
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

const invalidBodyMessage = "Invalid request body format"

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	auth       *auth.Service
	moderation *moderation.Service
	login      *middleware.LoginProtection
	events     EventStore
}

// NewHandler creates a new API handler. login may be nil to disable
// failed-login tracking.
func NewHandler(as *auth.Service, ms *moderation.Service, login *middleware.LoginProtection) *Handler {
	return &Handler{auth: as, moderation: ms, login: login}
}

// WriteSuccess writes a 200 envelope with data and the degradation flag.
func WriteSuccess(w http.ResponseWriter, data any, deg degrade.Degradation) {
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{OK: true, Data: data, Degraded: deg.Degraded})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	middleware.WriteAPIError(w, statusCode, code, message)
}

// WriteBadRequest writes a 400 VALIDATION_ERROR envelope.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidation, message)
}

// decodeJSON decodes a size limited JSON body into dst. On failure it writes
// a 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, CodeValidation, "Request body too large")
			return false
		}
		WriteBadRequest(w, invalidBodyMessage)
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		WriteBadRequest(w, invalidBodyMessage)
		return false
	}
	return true
}

// queryInt parses an integer query parameter. Missing or unparseable values
// yield 0, which the services replace with their defaults.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func listParams(r *http.Request) moderation.ListParams {
	return moderation.ListParams{
		Page: queryInt(r, "page"),
		Size: queryInt(r, "size"),
		Sort: r.URL.Query().Get("sort"),
	}
}

// writeModerationError maps a moderation error to its status code.
func writeModerationError(w http.ResponseWriter, err error) {
	var verr *moderation.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteBadRequest(w, verr.Message)
	case errors.Is(err, moderation.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, "Item not found")
	default:
		WriteError(w, http.StatusInternalServerError, middleware.CodeInternal, "Internal server error")
	}
}
