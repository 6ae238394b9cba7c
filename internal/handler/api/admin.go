// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ovoice-go/internal/degrade"
	"github.com/olegiv/ovoice-go/internal/moderation"
)

// Pagination describes one page of an admin queue.
type Pagination struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// AdminVoicesResponse is the body of GET /api/admin/voices.
type AdminVoicesResponse struct {
	Voices     []VoiceResponse `json:"voices"`
	Pagination Pagination      `json:"pagination"`
}

// AdminCommentsResponse is the body of GET /api/admin/comments.
type AdminCommentsResponse struct {
	Comments   []CommentResponse `json:"comments"`
	Pagination Pagination        `json:"pagination"`
}

// SetStatusRequest is the body of PATCH/PUT /api/admin/{kind}/{id}.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// StatusResponse confirms a moderation action.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StatsResponse holds per-status counts of both kinds.
type StatsResponse struct {
	Voices   moderation.StatusCounts `json:"voices"`
	Comments moderation.StatusCounts `json:"comments"`
}

func pagination(p moderation.Page) Pagination {
	return Pagination{Page: p.Page, Size: p.Size, Total: p.Total, TotalPages: p.TotalPages, HasMore: p.HasMore}
}

func adminListParams(r *http.Request) moderation.AdminListParams {
	q := r.URL.Query()
	return moderation.AdminListParams{
		ListParams: listParams(r),
		Status:     q.Get("status"),
		Search:     q.Get("search"),
	}
}

// AdminListVoices handles GET /api/admin/voices.
func (h *Handler) AdminListVoices(w http.ResponseWriter, r *http.Request) {
	page, err := h.moderation.ListAdmin(r.Context(), moderation.KindVoice, adminListParams(r))
	if err != nil {
		writeModerationError(w, err)
		return
	}
	WriteSuccess(w, AdminVoicesResponse{
		Voices:     mapItems(page.Items, voiceResponse, true),
		Pagination: pagination(page),
	}, page.Degradation)
}

// AdminListComments handles GET /api/admin/comments.
func (h *Handler) AdminListComments(w http.ResponseWriter, r *http.Request) {
	page, err := h.moderation.ListAdmin(r.Context(), moderation.KindComment, adminListParams(r))
	if err != nil {
		writeModerationError(w, err)
		return
	}
	WriteSuccess(w, AdminCommentsResponse{
		Comments:   mapItems(page.Items, commentResponse, true),
		Pagination: pagination(page),
	}, page.Degradation)
}

// AdminGetVoice handles GET /api/admin/voices/{id}.
func (h *Handler) AdminGetVoice(w http.ResponseWriter, r *http.Request) {
	h.adminGet(w, r, moderation.KindVoice, func(it moderation.Item) any { return voiceResponse(it, true) })
}

// AdminGetComment handles GET /api/admin/comments/{id}.
func (h *Handler) AdminGetComment(w http.ResponseWriter, r *http.Request) {
	h.adminGet(w, r, moderation.KindComment, func(it moderation.Item) any { return commentResponse(it, true) })
}

func (h *Handler) adminGet(w http.ResponseWriter, r *http.Request, kind moderation.Kind, render func(moderation.Item) any) {
	item, deg, err := h.moderation.Get(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeModerationError(w, err)
		return
	}
	if deg.Degraded {
		WriteError(w, http.StatusServiceUnavailable, CodeStorageUnavailable, moderation.DegradedMessage)
		return
	}
	WriteSuccess(w, render(item), degrade.Degradation{})
}

// SetVoiceStatus handles PATCH/PUT /api/admin/voices/{id}.
func (h *Handler) SetVoiceStatus(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, moderation.KindVoice)
}

// SetCommentStatus handles PATCH/PUT /api/admin/comments/{id}.
func (h *Handler) SetCommentStatus(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, moderation.KindComment)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, kind moderation.Kind) {
	var req SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.moderation.SetStatus(r.Context(), kind, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeModerationError(w, err)
		return
	}
	if res.Degraded {
		WriteError(w, http.StatusServiceUnavailable, CodeStorageUnavailable, moderation.DegradedMessage)
		return
	}
	WriteSuccess(w, StatusResponse{ID: res.ID, Status: res.Status}, degrade.Degradation{})
}

// Stats handles GET /api/admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	voices, vd := h.moderation.Counts(r.Context(), moderation.KindVoice)
	comments, cd := h.moderation.Counts(r.Context(), moderation.KindComment)
	WriteSuccess(w, StatsResponse{Voices: voices, Comments: comments}, degrade.Merge(vd, cd))
}
