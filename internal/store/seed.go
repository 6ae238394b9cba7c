// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type demoVoice struct {
	message string
	tags    string
	status  string
}

var demoVoices = []demoVoice{
	{"The new reading room changed how I spend my evenings. Thank you for keeping it open late.", "library,community", StatusApproved},
	{"Please add more benches along the river path, older neighbours have nowhere to rest.", "parks", StatusApproved},
	{"I moved here last year and this board is the first place I felt heard.", "", StatusApproved},
	{"Night buses on weekends would make a huge difference for shift workers like me.", "transport", StatusPending},
}

var demoComments = []struct {
	content string
	status  string
}{
	{"Reading these voices every week reminds me how much we share as a town.", StatusApproved},
	{"Could the moderation team publish a short monthly summary of recurring themes?", StatusPending},
}

// SeedDemo fills empty content tables with a handful of sample items so a
// fresh development database has something to list. It does nothing when
// any voice or comment already exists.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	q := New(db)

	voices, err := q.CountVoices(ctx, ContentFilter{})
	if err != nil {
		return fmt.Errorf("counting voices: %w", err)
	}
	comments, err := q.CountComments(ctx, ContentFilter{})
	if err != nil {
		return fmt.Errorf("counting comments: %w", err)
	}
	if voices > 0 || comments > 0 {
		slog.Info("content already present, skipping demo seed", "voices", voices, "comments", comments)
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := q.WithTx(tx)

	base := time.Now().UTC().Add(-time.Duration(len(demoVoices)) * time.Hour)
	for i, v := range demoVoices {
		if _, err := qtx.CreateVoice(ctx, CreateVoiceParams{
			ID:        uuid.NewString(),
			Message:   v.message,
			TopicTags: sql.NullString{String: v.tags, Valid: v.tags != ""},
			Status:    v.status,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			return fmt.Errorf("seeding voice %d: %w", i, err)
		}
	}
	for i, c := range demoComments {
		if _, err := qtx.CreateComment(ctx, CreateCommentParams{
			ID:        uuid.NewString(),
			Content:   c.content,
			Status:    c.status,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			return fmt.Errorf("seeding comment %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}

	slog.Info("seeded demo content", "voices", len(demoVoices), "comments", len(demoComments))
	return nil
}
