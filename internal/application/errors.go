package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/studentstay/internal/persistence"
)

var (
	// ErrUnauthorized is returned when a request carries no usable session.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrSessionExpired is returned when the presented session has passed its expiry.
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrUnauthorized)
	// ErrUnauthenticated is returned by the authorization gate when an operation needs a caller and none was resolved.
	ErrUnauthenticated = errors.New("application: authentication required")
	// ErrForbidden is returned when the caller is known but not entitled to the operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when the resource changed underneath the request, such as a room that is no longer available.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidTransition is returned when the target status is not reachable from the current one.
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)

	// ErrInvalidCredentials is returned when the email or password does not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountLocked is returned while an account is administratively locked or inside its lockout window.
	ErrAccountLocked = errors.New("application: account locked")
	// ErrNotVerified is returned when the password matched but the account is not verified yet.
	ErrNotVerified = errors.New("application: account not verified")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// mapStoreError translates storage sentinels into application errors. Errors the
// application already understands pass through untouched.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrStaleState):
		return ErrConflict
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	}
	return err
}
