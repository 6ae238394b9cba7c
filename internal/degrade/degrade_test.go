package degrade

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
)

func TestRun_Success(t *testing.T) {
	r := Run(context.Background(), "count", func(context.Context) (int, error) {
		return 42, nil
	}, 0)

	if !r.OK || r.Degraded {
		t.Fatalf("result = %+v, want OK and not degraded", r)
	}
	if r.Data != 42 {
		t.Errorf("Data = %d, want 42", r.Data)
	}
	if r.ErrorCode != "" {
		t.Errorf("ErrorCode = %q, want empty", r.ErrorCode)
	}
}

func TestRun_FailureReturnsFallback(t *testing.T) {
	fallback := []string{}
	r := Run(context.Background(), "list", func(context.Context) ([]string, error) {
		return nil, errors.New("no such table: anonymous_voices")
	}, fallback)

	if r.OK {
		t.Fatal("OK = true, want false")
	}
	if !r.Degraded {
		t.Error("Degraded = false, want true")
	}
	if r.Data == nil || len(r.Data) != 0 {
		t.Errorf("Data = %#v, want empty non-nil fallback", r.Data)
	}
	if r.ErrorCode != CodeQueryFailed {
		t.Errorf("ErrorCode = %q, want %q", r.ErrorCode, CodeQueryFailed)
	}
}

func TestRun_NoRowsIsNotDegraded(t *testing.T) {
	r := Run(context.Background(), "get", func(context.Context) (string, error) {
		return "", fmt.Errorf("loading: %w", sql.ErrNoRows)
	}, "")

	if r.OK || r.Degraded {
		t.Fatalf("result = %+v, want not OK and not degraded", r)
	}
	if r.ErrorCode != CodeNotFound {
		t.Errorf("ErrorCode = %q, want %q", r.ErrorCode, CodeNotFound)
	}
}

func TestExec(t *testing.T) {
	r := Exec(context.Background(), "update", func(context.Context) error {
		return sql.ErrConnDone
	})
	if !r.Degraded || r.ErrorCode != CodeConnection {
		t.Errorf("result = %+v, want degraded DB_CONNECTION", r)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"bad conn", driver.ErrBadConn, CodeConnection},
		{"conn done", fmt.Errorf("wrap: %w", sql.ErrConnDone), CodeConnection},
		{"deadline", context.DeadlineExceeded, CodeConnection},
		{"closed", errors.New("sql: database is closed"), CodeConnection},
		{"locked", errors.New("database is locked (5) (SQLITE_BUSY)"), CodeLocked},
		{"other", errors.New("near \"SELEC\": syntax error"), CodeQueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	got := Merge(
		Degradation{},
		Degradation{Degraded: true, ErrorCode: CodeLocked},
		Degradation{Degraded: true, ErrorCode: CodeQueryFailed},
	)
	if !got.Degraded || got.ErrorCode != CodeLocked {
		t.Errorf("Merge = %+v, want degraded DB_LOCKED", got)
	}

	if got := Merge(Degradation{}, Degradation{}); got.Degraded {
		t.Errorf("Merge of healthy states = %+v, want not degraded", got)
	}
}
