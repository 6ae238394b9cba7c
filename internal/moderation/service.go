// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package moderation implements anonymous submissions, public and admin
// listings, and moderation status changes for voices and comments.
package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/olegiv/ovoice-go/internal/cache"
	"github.com/olegiv/ovoice-go/internal/degrade"
	"github.com/olegiv/ovoice-go/internal/store"
)

// Kind selects the content table an operation works on.
type Kind string

const (
	KindVoice   Kind = "voice"
	KindComment Kind = "comment"
)

// Text length limits, counted in characters after trimming.
const (
	MinTextLength = 20
	MaxTextLength = 2000
)

// Page size limits.
const (
	MaxPageSize     = 50
	AdminPageSize   = 20
	voicePageSize   = 12
	commentPageSize = 20
	maxPage         = math.MaxInt32
)

// Sort orders.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

// Acknowledgements returned to anonymous submitters.
const (
	AckMessage      = "Thanks. Your message was received and will appear after review."
	DegradedMessage = "Temporary unavailable. Please try again later."
)

// StatusAll disables the status filter of an admin listing.
const StatusAll = "all"

// ErrNotFound is returned by Get and SetStatus when no item has the given id.
var ErrNotFound = errors.New("content item not found")

// ErrUnknownKind is returned for a Kind other than KindVoice or KindComment.
var ErrUnknownKind = errors.New("unknown content kind")

// ValidationError reports input that was rejected before reaching storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (k Kind) publicPageSize() int {
	if k == KindVoice {
		return voicePageSize
	}
	return commentPageSize
}

// field is the request field carrying the text of k.
func (k Kind) field() string {
	if k == KindVoice {
		return "message"
	}
	return "content"
}

func (k Kind) label() string {
	if k == KindVoice {
		return "Message"
	}
	return "Content"
}

// Store is the persistence used by Service. *store.Queries satisfies it.
type Store interface {
	CreateVoice(ctx context.Context, arg store.CreateVoiceParams) (store.AnonymousVoice, error)
	GetVoice(ctx context.Context, id string) (store.AnonymousVoice, error)
	ListVoices(ctx context.Context, arg store.ListContentParams) ([]store.AnonymousVoice, error)
	CountVoices(ctx context.Context, arg store.ContentFilter) (int64, error)
	UpdateVoiceStatus(ctx context.Context, arg store.UpdateStatusParams) (int64, error)
	CountVoicesByStatus(ctx context.Context) ([]store.StatusCount, error)

	CreateComment(ctx context.Context, arg store.CreateCommentParams) (store.Comment, error)
	GetComment(ctx context.Context, id string) (store.Comment, error)
	ListComments(ctx context.Context, arg store.ListContentParams) ([]store.Comment, error)
	CountComments(ctx context.Context, arg store.ContentFilter) (int64, error)
	UpdateCommentStatus(ctx context.Context, arg store.UpdateStatusParams) (int64, error)
	CountCommentsByStatus(ctx context.Context) ([]store.StatusCount, error)
}

// Item is one voice or comment.
type Item struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Tags      *string   `json:"tags,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page is one page of a listing.
type Page struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	Total      int64  `json:"total"`
	TotalPages int64  `json:"totalPages"`
	HasMore    bool   `json:"hasMore"`

	degrade.Degradation `json:"-"`
}

// ListParams selects a page. Zero values take defaults.
type ListParams struct {
	Page int
	Size int
	Sort string
}

func (p ListParams) normalize(defaultSize int) ListParams {
	switch {
	case p.Page < 1:
		p.Page = 1
	case p.Page > maxPage:
		p.Page = maxPage
	}
	switch {
	case p.Size == 0:
		p.Size = defaultSize
	case p.Size < 1:
		p.Size = 1
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	if p.Sort != SortOldest {
		p.Sort = SortNewest
	}
	return p
}

// AdminListParams extends ListParams with a status filter and search text.
type AdminListParams struct {
	ListParams
	Status string
	Search string
}

// SubmitInput is an anonymous submission.
type SubmitInput struct {
	Text string
	// Tags is a comma separated list, used for voices only.
	Tags string
}

// SubmitResult acknowledges a submission. Pending is always true.
type SubmitResult struct {
	Pending bool
	ID      string
	Message string
	degrade.Degradation
}

// StatusResult is the outcome of a moderation action.
type StatusResult struct {
	ID     string
	Status string
	degrade.Degradation
}

// StatusCounts holds per-status totals of one kind.
type StatusCounts struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// Service is the moderation gateway.
type Service struct {
	store Store
	pages *cache.TypedCache[Page]
	now   func() time.Time
	newID func() string
}

// NewService creates a moderation service. c may be nil to disable the
// public listing cache.
func NewService(st Store, c cache.Cache, ttl time.Duration) *Service {
	return &Service{
		store: st,
		pages: cache.NewTypedCache[Page](c, ttl),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ParseStatus normalises a status name. It accepts any letter case.
func ParseStatus(s string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case store.StatusPending:
		return store.StatusPending, true
	case store.StatusApproved:
		return store.StatusApproved, true
	case store.StatusRejected:
		return store.StatusRejected, true
	}
	return "", false
}

// Submit validates, sanitizes and stores an anonymous submission as pending.
// A storage failure still acknowledges the submission, flagged as degraded.
func (s *Service) Submit(ctx context.Context, kind Kind, in SubmitInput) (SubmitResult, error) {
	if kind != KindVoice && kind != KindComment {
		return SubmitResult{}, ErrUnknownKind
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return SubmitResult{}, &ValidationError{Field: kind.field(), Message: kind.label() + " is required"}
	}
	switch n := utf8.RuneCountInString(text); {
	case n < MinTextLength:
		return SubmitResult{}, &ValidationError{
			Field:   kind.field(),
			Message: fmt.Sprintf("%s must be at least %d characters", kind.label(), MinTextLength),
		}
	case n > MaxTextLength:
		return SubmitResult{}, &ValidationError{
			Field:   kind.field(),
			Message: fmt.Sprintf("%s must be at most %d characters", kind.label(), MaxTextLength),
		}
	}

	clean := SanitizeText(text)
	if clean == "" {
		return SubmitResult{}, &ValidationError{Field: kind.field(), Message: kind.label() + " contains no readable text"}
	}

	id := s.newID()
	now := s.now().UTC()
	res := degrade.Exec(ctx, "create "+string(kind), func(ctx context.Context) error {
		if kind == KindVoice {
			_, err := s.store.CreateVoice(ctx, store.CreateVoiceParams{
				ID:        id,
				Message:   clean,
				TopicTags: nullString(SanitizeTags(in.Tags)),
				Status:    store.StatusPending,
				CreatedAt: now,
			})
			return err
		}
		_, err := s.store.CreateComment(ctx, store.CreateCommentParams{
			ID:        id,
			Content:   clean,
			Status:    store.StatusPending,
			CreatedAt: now,
		})
		return err
	})
	if !res.OK {
		return SubmitResult{Pending: true, Message: DegradedMessage, Degradation: res.State()}, nil
	}

	slog.Info("submission received", "category", "moderation", "kind", kind, "id", id)
	return SubmitResult{Pending: true, ID: id, Message: AckMessage}, nil
}

// ListPublic returns a page of approved items. Healthy pages are cached.
func (s *Service) ListPublic(ctx context.Context, kind Kind, p ListParams) Page {
	p = p.normalize(kind.publicPageSize())

	key := fmt.Sprintf("%s%s:%d:%d", listPrefix(kind), p.Sort, p.Page, p.Size)
	if page, ok := s.pages.Get(ctx, key); ok {
		return page
	}

	page := s.list(ctx, kind, store.ContentFilter{Status: store.StatusApproved}, p)
	if !page.Degraded {
		s.pages.Set(ctx, key, page)
	}
	return page
}

// ListAdmin returns a page of the moderation queue filtered by status and
// search text. It is never cached. Sort defaults to newest; any other
// non-empty value lists oldest first.
func (s *Service) ListAdmin(ctx context.Context, kind Kind, p AdminListParams) (Page, error) {
	var filter store.ContentFilter

	if st := strings.TrimSpace(p.Status); st != "" && !strings.EqualFold(st, StatusAll) {
		status, ok := ParseStatus(st)
		if !ok {
			return Page{}, &ValidationError{Field: "status", Message: "Status must be one of all, pending, approved, rejected"}
		}
		filter.Status = status
	}
	if q := strings.TrimSpace(p.Search); q != "" {
		filter.SearchPattern = "%" + escapeLike(q) + "%"
	}

	// The queue sorts oldest first for any explicit value other than newest.
	lp := p.ListParams
	if sortBy := strings.TrimSpace(lp.Sort); sortBy != "" && !strings.EqualFold(sortBy, SortNewest) {
		lp.Sort = SortOldest
	}
	return s.list(ctx, kind, filter, lp.normalize(AdminPageSize)), nil
}

func (s *Service) list(ctx context.Context, kind Kind, filter store.ContentFilter, p ListParams) Page {
	params := store.ListContentParams{
		Filter: filter,
		Oldest: p.Sort == SortOldest,
		Limit:  int64(p.Size),
		Offset: int64(p.Page-1) * int64(p.Size),
	}

	items := degrade.Run(ctx, "list "+string(kind), func(ctx context.Context) ([]Item, error) {
		return s.fetch(ctx, kind, params)
	}, []Item{})
	total := degrade.Run(ctx, "count "+string(kind), func(ctx context.Context) (int64, error) {
		return s.count(ctx, kind, filter)
	}, 0)

	page := Page{Items: []Item{}, Page: p.Page, Size: p.Size}
	if deg := degrade.Merge(items.State(), total.State()); deg.Degraded {
		page.Degradation = deg
		return page
	}

	page.Items = items.Data
	page.Total = total.Data
	page.TotalPages = (total.Data + int64(p.Size) - 1) / int64(p.Size)
	page.HasMore = int64(p.Page)*int64(p.Size) < total.Data
	return page
}

func voiceItem(r store.AnonymousVoice) Item {
	item := Item{ID: r.ID, Text: r.Message, Status: r.Status, CreatedAt: r.CreatedAt}
	if r.TopicTags.Valid && r.TopicTags.String != "" {
		tags := r.TopicTags.String
		item.Tags = &tags
	}
	return item
}

func commentItem(r store.Comment) Item {
	return Item{ID: r.ID, Text: r.Content, Status: r.Status, CreatedAt: r.CreatedAt}
}

func (s *Service) fetch(ctx context.Context, kind Kind, params store.ListContentParams) ([]Item, error) {
	switch kind {
	case KindVoice:
		rows, err := s.store.ListVoices(ctx, params)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(rows))
		for _, r := range rows {
			items = append(items, voiceItem(r))
		}
		return items, nil
	case KindComment:
		rows, err := s.store.ListComments(ctx, params)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(rows))
		for _, r := range rows {
			items = append(items, commentItem(r))
		}
		return items, nil
	}
	return nil, ErrUnknownKind
}

// Get returns one item of any status for the admin detail view. An unknown
// id is ErrNotFound; a storage failure is reported as degraded.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (Item, degrade.Degradation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, degrade.Degradation{}, &ValidationError{Field: "id", Message: "ID is required"}
	}

	res := degrade.Run(ctx, "get "+string(kind), func(ctx context.Context) (Item, error) {
		switch kind {
		case KindVoice:
			v, err := s.store.GetVoice(ctx, id)
			return voiceItem(v), err
		case KindComment:
			c, err := s.store.GetComment(ctx, id)
			return commentItem(c), err
		}
		return Item{}, ErrUnknownKind
	}, Item{})
	switch {
	case res.OK:
		return res.Data, degrade.Degradation{}, nil
	case res.ErrorCode == degrade.CodeNotFound:
		return Item{}, degrade.Degradation{}, ErrNotFound
	default:
		return Item{}, res.State(), nil
	}
}

func (s *Service) count(ctx context.Context, kind Kind, filter store.ContentFilter) (int64, error) {
	switch kind {
	case KindVoice:
		return s.store.CountVoices(ctx, filter)
	case KindComment:
		return s.store.CountComments(ctx, filter)
	}
	return 0, ErrUnknownKind
}

// SetStatus moves an item to status. Any transition is allowed. A storage
// failure is reported through the result's degradation state.
func (s *Service) SetStatus(ctx context.Context, kind Kind, id, status string) (StatusResult, error) {
	st, ok := ParseStatus(status)
	if !ok {
		return StatusResult{}, &ValidationError{Field: "status", Message: "Status must be one of PENDING, APPROVED, REJECTED"}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return StatusResult{}, &ValidationError{Field: "id", Message: "ID is required"}
	}

	arg := store.UpdateStatusParams{ID: id, Status: st, UpdatedAt: s.now().UTC()}
	res := degrade.Run(ctx, "update "+string(kind)+" status", func(ctx context.Context) (int64, error) {
		switch kind {
		case KindVoice:
			return s.store.UpdateVoiceStatus(ctx, arg)
		case KindComment:
			return s.store.UpdateCommentStatus(ctx, arg)
		}
		return 0, ErrUnknownKind
	}, 0)
	if !res.OK {
		return StatusResult{ID: id, Degradation: res.State()}, nil
	}
	if res.Data == 0 {
		return StatusResult{}, ErrNotFound
	}

	s.pages.Invalidate(ctx, listPrefix(kind))
	slog.Info("moderation status changed", "category", "moderation", "kind", kind, "id", id, "status", st)
	return StatusResult{ID: id, Status: st}, nil
}

// Counts returns per-status totals for kind.
func (s *Service) Counts(ctx context.Context, kind Kind) (StatusCounts, degrade.Degradation) {
	res := degrade.Run(ctx, "count "+string(kind)+" by status", func(ctx context.Context) ([]store.StatusCount, error) {
		switch kind {
		case KindVoice:
			return s.store.CountVoicesByStatus(ctx)
		case KindComment:
			return s.store.CountCommentsByStatus(ctx)
		}
		return nil, ErrUnknownKind
	}, nil)

	var out StatusCounts
	for _, c := range res.Data {
		switch c.Status {
		case store.StatusPending:
			out.Pending = c.Count
		case store.StatusApproved:
			out.Approved = c.Count
		case store.StatusRejected:
			out.Rejected = c.Count
		}
		out.Total += c.Count
	}
	return out, res.State()
}

func listPrefix(kind Kind) string {
	return "list:" + string(kind) + ":"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
