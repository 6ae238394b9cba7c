// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/olegiv/ovoice-go/internal/degrade"
	"github.com/olegiv/ovoice-go/internal/store"
)

const (
	defaultEventsPageSize = 50
	maxEventsPageSize     = 200
	maxEventsPage         = math.MaxInt32
)

// EventStore reads the event log. *store.Queries satisfies it.
type EventStore interface {
	ListEvents(ctx context.Context, arg store.ListEventsParams) ([]store.Event, error)
	CountEvents(ctx context.Context) (int64, error)
}

// EventResponse is one event log entry.
type EventResponse struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// EventsResponse is the body of GET /api/admin/events.
type EventsResponse struct {
	Events     []EventResponse `json:"events"`
	Pagination Pagination      `json:"pagination"`
}

// WithEvents enables GET /api/admin/events backed by es.
func (h *Handler) WithEvents(es EventStore) *Handler {
	h.events = es
	return h
}

// ListEvents handles GET /api/admin/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page := min(max(queryInt(r, "page"), 1), maxEventsPage)
	size := queryInt(r, "size")
	if size <= 0 {
		size = defaultEventsPageSize
	}
	size = min(size, maxEventsPageSize)

	ctx := r.Context()
	list := degrade.Run(ctx, "events.list", func(ctx context.Context) ([]store.Event, error) {
		return h.events.ListEvents(ctx, store.ListEventsParams{
			Limit:  int64(size),
			Offset: int64(page-1) * int64(size),
		})
	}, nil)
	total := degrade.Run(ctx, "events.count", h.events.CountEvents, 0)

	events := make([]EventResponse, 0, len(list.Data))
	for _, e := range list.Data {
		resp := EventResponse{
			ID:        e.ID,
			Level:     e.Level,
			Category:  e.Category,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		}
		if json.Valid([]byte(e.Metadata)) && e.Metadata != "{}" {
			resp.Metadata = json.RawMessage(e.Metadata)
		}
		events = append(events, resp)
	}

	totalPages := (total.Data + int64(size) - 1) / int64(size)
	WriteSuccess(w, EventsResponse{
		Events: events,
		Pagination: Pagination{
			Page:       page,
			Size:       size,
			Total:      total.Data,
			TotalPages: totalPages,
			HasMore:    int64(page) < totalPages,
		},
	}, degrade.Merge(list.State(), total.State()))
}
