package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/example/studentstay/internal/application"
)

const maxRequestBodyBytes = 1 << 20

var (
	errBadRequestBody      = errors.New("request body is not valid JSON for this endpoint")
	errMissingSessionToken = errors.New("authentication required")
	errTooManyRequests     = errors.New("too many requests, slow down")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError emits the failure envelope. Only 5xx responses are logged at error level.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{Success: false, Error: message})
}

// handleServiceError maps application errors onto status codes and envelopes.
// Storage and other unexpected failures never leak their message.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status, resp := serviceErrorResponse(err)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err, "error_kind", application.ErrorKind(err))
	}
	r.writeJSON(ctx, w, status, resp)
}

func serviceErrorResponse(err error) (int, errorResponse) {
	var vErr *application.ValidationError
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	case errors.As(err, &vErr):
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Errors: vErr.FieldErrors}
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid email or password"}
	case errors.Is(err, application.ErrAccountLocked):
		return http.StatusUnauthorized, errorResponse{Error: "account is locked, try again later"}
	case errors.Is(err, application.ErrNotVerified):
		return http.StatusUnauthorized, errorResponse{Error: "account is not verified"}
	case errors.Is(err, application.ErrSessionExpired):
		return http.StatusUnauthorized, errorResponse{Error: "session expired, log in again"}
	case errors.Is(err, application.ErrUnauthorized), errors.Is(err, application.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: errMissingSessionToken.Error()}
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "you are not allowed to perform this action"}
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "resource not found"}
	case errors.Is(err, application.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{Error: "booking cannot move to the requested status"}
	case errors.Is(err, application.ErrConflict):
		return http.StatusConflict, errorResponse{Error: "the resource changed or is no longer available"}
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{Error: "resource already exists"}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// decodeJSON decodes exactly one JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: unexpected trailing data")
	}
	return nil
}

type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}
