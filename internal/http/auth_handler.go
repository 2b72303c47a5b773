package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/studentstay/internal/application"
)

const sessionCookieName = "session_token"

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
	RefreshSession(ctx context.Context, token string) (application.Session, error)
	ListSessions(ctx context.Context, principal application.Principal) ([]application.Session, error)
	RevokeUserSessions(ctx context.Context, principal application.Principal, userID string) (int64, error)
}

// AuthHandler serves login, logout and session management.
type AuthHandler struct {
	service      authService
	cookieSecure bool
	responder    responder
	logger       *slog.Logger
}

// NewAuthHandler builds the handler. cookieSecure controls the Secure flag of the session cookie.
func NewAuthHandler(service authService, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, cookieSecure: cookieSecure, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Login", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := h.log(r.Context(), "Login", "email", email)

	result, err := h.service.Authenticate(r.Context(), application.AuthenticateParams{
		Email:     email,
		Password:  req.Password,
		IPAddress: clientIP(r.RemoteAddr),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "login rejected", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.setSessionCookie(w, result.Session.Token, result.Session.ExpiresAt)
	w.Header().Set("X-Session-Token", result.Session.Token)

	logger.InfoContext(r.Context(), "user logged in", "user_id", result.User.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, loginResponse{
		Success:   true,
		Token:     result.Session.Token,
		ExpiresAt: formatTimestamp(result.Session.ExpiresAt),
		User:      newUserDTO(result.User),
	})
}

// Logout handles POST /logout. It succeeds whether or not a session was presented.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := extractTokenFromRequest(r)
	if err := h.service.RevokeSession(r.Context(), token); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.clearSessionCookie(w)
	h.log(r.Context(), "Logout", "token_present", token != "").InfoContext(r.Context(), "logout completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}

// Refresh handles POST /sessions/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := extractTokenFromRequest(r)
	session, err := h.service.RefreshSession(r.Context(), token)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.setSessionCookie(w, token, session.ExpiresAt)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, refreshResponse{Success: true, ExpiresAt: formatTimestamp(session.ExpiresAt)})
}

// ListSessions handles GET /sessions for the authenticated caller.
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	current := extractTokenFromRequest(r)
	dtos := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		dtos = append(dtos, sessionDTO{
			ID:        session.ID,
			IPAddress: session.IPAddress,
			UserAgent: session.UserAgent,
			CreatedAt: formatTimestamp(session.CreatedAt),
			ExpiresAt: formatTimestamp(session.ExpiresAt),
			Current:   session.Token == current,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionListResponse{Success: true, Sessions: dtos})
}

// RevokeUserSessions handles DELETE /users/{id}/sessions.
func (h *AuthHandler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	userID := strings.TrimSpace(r.PathValue("id"))
	removed, err := h.service.RevokeUserSessions(r.Context(), principal, userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "RevokeUserSessions", "actor_id", principal.UserID, "user_id", userID).InfoContext(r.Context(), "user sessions revoked", "removed", removed)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, revokeResponse{Success: true, Removed: removed})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func newUserDTO(user application.User) userDTO {
	return userDTO{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName, Role: string(user.Role)}
}

type loginResponse struct {
	Success   bool    `json:"success"`
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      userDTO `json:"user"`
}

type refreshResponse struct {
	Success   bool   `json:"success"`
	ExpiresAt string `json:"expires_at"`
}

type sessionDTO struct {
	ID        string `json:"id"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
	Current   bool   `json:"current"`
}

type sessionListResponse struct {
	Success  bool         `json:"success"`
	Sessions []sessionDTO `json:"sessions"`
}

type revokeResponse struct {
	Success bool  `json:"success"`
	Removed int64 `json:"removed"`
}
