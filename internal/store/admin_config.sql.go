// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const getAdminConfig = `-- name: GetAdminConfig :one
SELECT id, password_hash, created_at, updated_at FROM admin_config
WHERE id = ?
`

func (q *Queries) GetAdminConfig(ctx context.Context) (AdminConfig, error) {
	row := q.db.QueryRowContext(ctx, getAdminConfig, AdminConfigID)
	var i AdminConfig
	err := row.Scan(
		&i.ID,
		&i.PasswordHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAdminConfigIfMissing = `-- name: CreateAdminConfigIfMissing :execrows
INSERT INTO admin_config (id, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`

type CreateAdminConfigParams struct {
	PasswordHash string
	CreatedAt    time.Time
}

// CreateAdminConfigIfMissing inserts the singleton row unless it already
// exists. It returns 1 when this call created the row and 0 otherwise.
func (q *Queries) CreateAdminConfigIfMissing(ctx context.Context, arg CreateAdminConfigParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createAdminConfigIfMissing,
		AdminConfigID,
		arg.PasswordHash,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateAdminPassword = `-- name: UpdateAdminPassword :execrows
UPDATE admin_config SET password_hash = ?, updated_at = ?
WHERE id = ?
`

type UpdateAdminPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
}

func (q *Queries) UpdateAdminPassword(ctx context.Context, arg UpdateAdminPasswordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateAdminPassword, arg.PasswordHash, arg.UpdatedAt, AdminConfigID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertAdminPassword = `-- name: UpsertAdminPassword :exec
INSERT INTO admin_config (id, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at
`

func (q *Queries) UpsertAdminPassword(ctx context.Context, arg UpdateAdminPasswordParams) error {
	_, err := q.db.ExecContext(ctx, upsertAdminPassword,
		AdminConfigID,
		arg.PasswordHash,
		arg.UpdatedAt,
		arg.UpdatedAt,
	)
	return err
}

const countAdminConfig = `-- name: CountAdminConfig :one
SELECT COUNT(*) FROM admin_config
`

func (q *Queries) CountAdminConfig(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countAdminConfig)
	var count int64
	err := row.Scan(&count)
	return count, err
}
