package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/studentstay/internal/persistence"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"room_id": "x", "check_in": "y"}}
	if got := withFields.Error(); got != "validation failed: check_in, room_id" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_AddKeepsFirstMessage(t *testing.T) {
	t.Parallel()

	vErr := &ValidationError{}
	if vErr.HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	vErr.add("guests", "first")
	vErr.add("guests", "second")
	if got := vErr.FieldErrors["guests"]; got != "first" {
		t.Fatalf("expected first message to win, got %q", got)
	}
	if !vErr.HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestSentinelHierarchy(t *testing.T) {
	t.Parallel()

	if !errors.Is(ErrSessionExpired, ErrUnauthorized) {
		t.Fatalf("expired sessions must read as unauthorized")
	}
	if !errors.Is(ErrInvalidTransition, ErrConflict) {
		t.Fatalf("invalid transitions must read as conflicts")
	}
	if errors.Is(ErrConflict, ErrInvalidTransition) {
		t.Fatalf("plain conflicts must not read as invalid transitions")
	}
}

func TestMapStoreError(t *testing.T) {
	t.Parallel()

	custom := errors.New("disk full")
	cases := map[string]struct {
		in   error
		want error
	}{
		"not found":   {in: fmt.Errorf("wrapped: %w", persistence.ErrNotFound), want: ErrNotFound},
		"duplicate":   {in: persistence.ErrDuplicate, want: ErrAlreadyExists},
		"stale":       {in: persistence.ErrStaleState, want: ErrConflict},
		"foreign key": {in: persistence.ErrForeignKeyViolation, want: ErrNotFound},
		"passthrough": {in: custom, want: custom},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := mapStoreError(tc.in); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if mapStoreError(nil) != nil {
		t.Fatalf("expected nil to map to nil")
	}
}
