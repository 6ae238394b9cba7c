// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package degrade turns storage failures into structurally valid fallback
// results so callers can keep serving while the database is unavailable.
package degrade

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"strings"
)

// Error codes attached to failed results.
const (
	CodeQueryFailed = "DB_QUERY_FAILED"
	CodeLocked      = "DB_LOCKED"
	CodeConnection  = "DB_CONNECTION"
	CodeNotFound    = "NOT_FOUND"
)

// Result is the outcome of a wrapped storage call.
// A NOT_FOUND result is not degraded: the store answered, the row is absent.
type Result[T any] struct {
	OK        bool
	Data      T
	Degraded  bool
	ErrorCode string
	Err       error
}

// Run executes fn and never returns its error to the caller directly.
// On failure Data holds fallback.
func Run[T any](ctx context.Context, op string, fn func(context.Context) (T, error), fallback T) Result[T] {
	data, err := fn(ctx)
	if err == nil {
		return Result[T]{OK: true, Data: data}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return Result[T]{Data: fallback, ErrorCode: CodeNotFound, Err: err}
	}

	code := Classify(err)
	slog.WarnContext(ctx, "database query degraded",
		"category", "database",
		"op", op,
		"code", code,
		"error", err,
	)
	return Result[T]{Data: fallback, Degraded: true, ErrorCode: code, Err: err}
}

// Exec is Run for calls that only return an error.
func Exec(ctx context.Context, op string, fn func(context.Context) error) Result[struct{}] {
	return Run(ctx, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, struct{}{})
}

// Classify maps a storage error to one of the DB_* codes.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return CodeConnection
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "database table is locked"):
		return CodeLocked
	case strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "unable to open database"),
		strings.Contains(msg, "connection refused"):
		return CodeConnection
	default:
		return CodeQueryFailed
	}
}

// Degradation summarises one or more results for the response envelope.
type Degradation struct {
	Degraded  bool
	ErrorCode string
}

// Merge folds the degradation state of several results together.
// The first error code wins.
func Merge(states ...Degradation) Degradation {
	var out Degradation
	for _, s := range states {
		if !s.Degraded {
			continue
		}
		out.Degraded = true
		if out.ErrorCode == "" {
			out.ErrorCode = s.ErrorCode
		}
	}
	return out
}

// State returns the degradation state of r.
func (r Result[T]) State() Degradation {
	return Degradation{Degraded: r.Degraded, ErrorCode: r.ErrorCode}
}
