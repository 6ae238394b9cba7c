// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/ovoice-go/internal/middleware"
	"github.com/olegiv/ovoice-go/internal/moderation"
)

// degradedSubmitMessage is the error message of a degraded submission.
const degradedSubmitMessage = "Database unavailable. Please try again later."

// VoiceResponse represents a voice in public listings. Status is set for
// admin listings only.
type VoiceResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	TopicTags *string   `json:"topicTags"`
	CreatedAt time.Time `json:"createdAt"`
	Status    string    `json:"status,omitempty"`
}

// CommentResponse represents a comment. Message and Content carry the same
// text for clients that expect either name.
type CommentResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Status    string    `json:"status,omitempty"`
}

// PageResponse is a public listing page.
type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// SubmitResponse acknowledges an anonymous submission.
type SubmitResponse struct {
	Pending bool   `json:"pending"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// TagList accepts topicTags as a comma separated string or an array of
// strings.
type TagList string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TagList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = TagList(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*t = TagList(strings.Join(list, ","))
	return nil
}

// CreateVoiceRequest is the body of POST /api/voices.
type CreateVoiceRequest struct {
	Message   string  `json:"message"`
	TopicTags TagList `json:"topicTags"`
}

// CreateCommentRequest is the body of POST /api/comments.
type CreateCommentRequest struct {
	Content string `json:"content"`
	Message string `json:"message"`
}

func (req CreateCommentRequest) text() string {
	if req.Content != "" {
		return req.Content
	}
	return req.Message
}

func voiceResponse(it moderation.Item, withStatus bool) VoiceResponse {
	v := VoiceResponse{ID: it.ID, Message: it.Text, TopicTags: it.Tags, CreatedAt: it.CreatedAt.UTC()}
	if withStatus {
		v.Status = it.Status
	}
	return v
}

func commentResponse(it moderation.Item, withStatus bool) CommentResponse {
	c := CommentResponse{ID: it.ID, Message: it.Text, Content: it.Text, CreatedAt: it.CreatedAt.UTC()}
	if withStatus {
		c.Status = it.Status
	}
	return c
}

func mapItems[T any](items []moderation.Item, fn func(moderation.Item, bool) T, withStatus bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it, withStatus))
	}
	return out
}

func pageResponse[T any](p moderation.Page, items []T) PageResponse[T] {
	return PageResponse[T]{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasMore:    p.HasMore,
	}
}

// ListVoices handles GET /api/voices. It always answers 200.
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	page := h.moderation.ListPublic(r.Context(), moderation.KindVoice, listParams(r))
	WriteSuccess(w, pageResponse(page, mapItems(page.Items, voiceResponse, false)), page.Degradation)
}

// ListComments handles GET /api/comments. It always answers 200.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	page := h.moderation.ListPublic(r.Context(), moderation.KindComment, listParams(r))
	WriteSuccess(w, pageResponse(page, mapItems(page.Items, commentResponse, false)), page.Degradation)
}

// CreateVoice handles POST /api/voices.
func (h *Handler) CreateVoice(w http.ResponseWriter, r *http.Request) {
	var req CreateVoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.submit(w, r, moderation.KindVoice, moderation.SubmitInput{Text: req.Message, Tags: string(req.TopicTags)})
}

// CreateComment handles POST /api/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.submit(w, r, moderation.KindComment, moderation.SubmitInput{Text: req.text()})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind moderation.Kind, in moderation.SubmitInput) {
	res, err := h.moderation.Submit(r.Context(), kind, in)
	if err != nil {
		writeModerationError(w, err)
		return
	}

	data := SubmitResponse{Pending: res.Pending, ID: res.ID, Message: res.Message}
	if res.Degraded {
		middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
			Data:     data,
			Error:    &middleware.ErrorBody{Code: res.ErrorCode, Message: degradedSubmitMessage},
			Degraded: true,
		})
		return
	}
	WriteSuccess(w, data, res.Degradation)
}
