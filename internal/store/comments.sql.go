// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createComment = `-- name: CreateComment :one
INSERT INTO comments (id, content, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, content, status, created_at, updated_at
`

type CreateCommentParams struct {
	ID        string
	Content   string
	Status    string
	CreatedAt time.Time
}

func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	row := q.db.QueryRowContext(ctx, createComment,
		arg.ID,
		arg.Content,
		arg.Status,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	var i Comment
	err := row.Scan(
		&i.ID,
		&i.Content,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getComment = `-- name: GetComment :one
SELECT id, content, status, created_at, updated_at FROM comments
WHERE id = ?
`

func (q *Queries) GetComment(ctx context.Context, id string) (Comment, error) {
	row := q.db.QueryRowContext(ctx, getComment, id)
	var i Comment
	err := row.Scan(
		&i.ID,
		&i.Content,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const commentsFilter = `
WHERE (? = '' OR status = ?)
  AND (? = '' OR content LIKE ? ESCAPE '\')
`

const listCommentsNewest = `-- name: ListCommentsNewest :many
SELECT id, content, status, created_at, updated_at FROM comments` + commentsFilter + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

const listCommentsOldest = `-- name: ListCommentsOldest :many
SELECT id, content, status, created_at, updated_at FROM comments` + commentsFilter + `
ORDER BY created_at ASC, id ASC
LIMIT ? OFFSET ?
`

// ContentFilter narrows list and count queries. Empty fields match
// everything. SearchPattern is a LIKE pattern and must already be escaped.
type ContentFilter struct {
	Status        string
	SearchPattern string
}

func (f ContentFilter) args() []interface{} {
	return []interface{}{f.Status, f.Status, f.SearchPattern, f.SearchPattern}
}

type ListContentParams struct {
	Filter ContentFilter
	Oldest bool
	Limit  int64
	Offset int64
}

func (q *Queries) ListComments(ctx context.Context, arg ListContentParams) ([]Comment, error) {
	query := listCommentsNewest
	if arg.Oldest {
		query = listCommentsOldest
	}
	args := append(arg.Filter.args(), arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Comment
	for rows.Next() {
		var i Comment
		if err := rows.Scan(
			&i.ID,
			&i.Content,
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

const countComments = `-- name: CountComments :one
SELECT COUNT(*) FROM comments` + commentsFilter

func (q *Queries) CountComments(ctx context.Context, arg ContentFilter) (int64, error) {
	row := q.db.QueryRowContext(ctx, countComments, arg.args()...)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateCommentStatus = `-- name: UpdateCommentStatus :execrows
UPDATE comments SET status = ?, updated_at = ?
WHERE id = ?
`

type UpdateStatusParams struct {
	ID        string
	Status    string
	UpdatedAt time.Time
}

func (q *Queries) UpdateCommentStatus(ctx context.Context, arg UpdateStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateCommentStatus, arg.Status, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countCommentsByStatus = `-- name: CountCommentsByStatus :many
SELECT status, COUNT(*) FROM comments
GROUP BY status
`

type StatusCount struct {
	Status string
	Count  int64
}

func (q *Queries) CountCommentsByStatus(ctx context.Context) ([]StatusCount, error) {
	return q.countByStatus(ctx, countCommentsByStatus)
}

func (q *Queries) countByStatus(ctx context.Context, query string) ([]StatusCount, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StatusCount
	for rows.Next() {
		var i StatusCount
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
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
