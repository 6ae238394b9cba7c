// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const createVoice = `-- name: CreateVoice :one
INSERT INTO anonymous_voices (id, message, topic_tags, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, message, topic_tags, status, created_at, updated_at
`

type CreateVoiceParams struct {
	ID        string
	Message   string
	TopicTags sql.NullString
	Status    string
	CreatedAt time.Time
}

func (q *Queries) CreateVoice(ctx context.Context, arg CreateVoiceParams) (AnonymousVoice, error) {
	row := q.db.QueryRowContext(ctx, createVoice,
		arg.ID,
		arg.Message,
		arg.TopicTags,
		arg.Status,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	var i AnonymousVoice
	err := row.Scan(
		&i.ID,
		&i.Message,
		&i.TopicTags,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getVoice = `-- name: GetVoice :one
SELECT id, message, topic_tags, status, created_at, updated_at FROM anonymous_voices
WHERE id = ?
`

func (q *Queries) GetVoice(ctx context.Context, id string) (AnonymousVoice, error) {
	row := q.db.QueryRowContext(ctx, getVoice, id)
	var i AnonymousVoice
	err := row.Scan(
		&i.ID,
		&i.Message,
		&i.TopicTags,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const voicesFilter = `
WHERE (? = '' OR status = ?)
  AND (? = '' OR message LIKE ? ESCAPE '\')
`

const listVoicesNewest = `-- name: ListVoicesNewest :many
SELECT id, message, topic_tags, status, created_at, updated_at FROM anonymous_voices` + voicesFilter + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

const listVoicesOldest = `-- name: ListVoicesOldest :many
SELECT id, message, topic_tags, status, created_at, updated_at FROM anonymous_voices` + voicesFilter + `
ORDER BY created_at ASC, id ASC
LIMIT ? OFFSET ?
`

func (q *Queries) ListVoices(ctx context.Context, arg ListContentParams) ([]AnonymousVoice, error) {
	query := listVoicesNewest
	if arg.Oldest {
		query = listVoicesOldest
	}
	args := append(arg.Filter.args(), arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AnonymousVoice
	for rows.Next() {
		var i AnonymousVoice
		if err := rows.Scan(
			&i.ID,
			&i.Message,
			&i.TopicTags,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countVoices = `-- name: CountVoices :one
SELECT COUNT(*) FROM anonymous_voices` + voicesFilter

func (q *Queries) CountVoices(ctx context.Context, arg ContentFilter) (int64, error) {
	row := q.db.QueryRowContext(ctx, countVoices, arg.args()...)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateVoiceStatus = `-- name: UpdateVoiceStatus :execrows
UPDATE anonymous_voices SET status = ?, updated_at = ?
WHERE id = ?
`

func (q *Queries) UpdateVoiceStatus(ctx context.Context, arg UpdateStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateVoiceStatus, arg.Status, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countVoicesByStatus = `-- name: CountVoicesByStatus :many
SELECT status, COUNT(*) FROM anonymous_voices
GROUP BY status
`

func (q *Queries) CountVoicesByStatus(ctx context.Context) ([]StatusCount, error) {
	return q.countByStatus(ctx, countVoicesByStatus)
}
