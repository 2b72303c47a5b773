package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[error]string{
		nil:                                 "",
		ErrSessionExpired:                   "session_expired",
		ErrUnauthorized:                     "unauthorized",
		ErrUnauthenticated:                  "unauthenticated",
		ErrForbidden:                        "forbidden",
		fmt.Errorf("load: %w", ErrNotFound): "not_found",
		ErrAlreadyExists:                    "already_exists",
		ErrInvalidTransition:                "invalid_transition",
		ErrConflict:                         "conflict",
		ErrInvalidCredentials:               "invalid_credentials",
		ErrAccountLocked:                    "account_locked",
		ErrNotVerified:                      "not_verified",
		newValidationError("email", "is required"): "validation",
		errors.New("disk I/O error"):               "unexpected",
	}
	for err, want := range cases {
		if got := ErrorKind(err); got != want {
			t.Errorf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestLogOutcomeLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := context.Background()

	logOutcome(ctx, logger, ErrForbidden, "failed", "ok")
	logOutcome(ctx, logger, errors.New("boom"), "failed", "ok")
	logOutcome(ctx, logger, nil, "failed", "ok", "booking_id", "b-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "level=WARN") || !strings.Contains(lines[0], "error_kind=forbidden") {
		t.Fatalf("expected warn for client error, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "level=ERROR") || !strings.Contains(lines[1], "error_kind=unexpected") {
		t.Fatalf("expected error for unexpected failure, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "level=INFO") || !strings.Contains(lines[2], "booking_id=b-1") {
		t.Fatalf("expected info with attrs on success, got %q", lines[2])
	}
}
