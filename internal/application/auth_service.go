package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// SessionPolicy decides what happens to a user's existing sessions on login.
type SessionPolicy string

const (
	// SessionPolicySingle keeps one session per user: a new login deletes the others.
	SessionPolicySingle SessionPolicy = "single"
	// SessionPolicyMultiple keeps up to MaxSessionsPerUser sessions, evicting the oldest.
	SessionPolicyMultiple SessionPolicy = "multiple"
)

// ParseSessionPolicy validates a policy name.
func ParseSessionPolicy(value string) (SessionPolicy, error) {
	switch policy := SessionPolicy(strings.ToLower(strings.TrimSpace(value))); policy {
	case SessionPolicySingle, SessionPolicyMultiple:
		return policy, nil
	case "":
		return SessionPolicySingle, nil
	}
	return "", fmt.Errorf("unknown session policy %q", value)
}

// AuthOptions tunes session lifetime, session policy and login lockout.
type AuthOptions struct {
	SessionTTL         time.Duration
	Policy             SessionPolicy
	MaxSessionsPerUser int
	MaxLoginAttempts   int
	LockoutWindow      time.Duration
}

// DefaultAuthOptions returns a 7 day session, single-session policy and a lockout
// after 5 failures for 15 minutes.
func DefaultAuthOptions() AuthOptions {
	return AuthOptions{
		SessionTTL:         7 * 24 * time.Hour,
		Policy:             SessionPolicySingle,
		MaxSessionsPerUser: 5,
		MaxLoginAttempts:   5,
		LockoutWindow:      15 * time.Minute,
	}
}

func (o AuthOptions) withDefaults() AuthOptions {
	defaults := DefaultAuthOptions()
	if o.SessionTTL <= 0 {
		o.SessionTTL = defaults.SessionTTL
	}
	if o.Policy == "" {
		o.Policy = defaults.Policy
	}
	if o.MaxSessionsPerUser <= 0 {
		o.MaxSessionsPerUser = defaults.MaxSessionsPerUser
	}
	if o.MaxLoginAttempts <= 0 {
		o.MaxLoginAttempts = defaults.MaxLoginAttempts
	}
	if o.LockoutWindow <= 0 {
		o.LockoutWindow = defaults.LockoutWindow
	}
	return o
}

// CredentialStore exposes the user credential operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
	// RecordFailedLogin must increment the counter atomically in the store.
	RecordFailedLogin(ctx context.Context, userID string, at time.Time, maxAttempts int, lockUntil time.Time) (LoginAttempts, error)
	ResetLoginAttempts(ctx context.Context, userID string, loginAt *time.Time) error
}

// PasswordUpgrader is optionally implemented by a CredentialStore that can replace
// legacy password hashes after a successful login.
type PasswordUpgrader interface {
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	ExtendSession(ctx context.Context, token string, expiresAt time.Time) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsForUser(ctx context.Context, userID string) (int64, error)
	ListSessionsForUser(ctx context.Context, userID string) ([]Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService issues, resolves and revokes sessions and enforces login lockout.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	verifyPassword PasswordVerifier
	hashPassword   func(string) (string, error)
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	options        AuthOptions
	recorder       Recorder
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, idGenerator, tokenGenerator func() string, now func() time.Time, options AuthOptions) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, verify, idGenerator, tokenGenerator, now, options, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, idGenerator, tokenGenerator func() string, now func() time.Time, options AuthOptions, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = GenerateSessionToken
	}
	if idGenerator == nil {
		idGenerator = tokenGenerator
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		verifyPassword: verify,
		hashPassword:   HashPassword,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		options:        options.withDefaults(),
		recorder:       nopRecorder{},
		logger:         defaultLogger(logger),
	}
}

// WithRecorder attaches a metrics recorder and returns the service.
func (s *AuthService) WithRecorder(recorder Recorder) *AuthService {
	if s != nil {
		s.recorder = defaultRecorder(recorder)
	}
	return s
}

// Options returns the effective configuration.
func (s *AuthService) Options() AuthOptions {
	if s == nil {
		return DefaultAuthOptions()
	}
	return s.options
}

// GenerateSessionToken returns 32 random bytes, hex encoded.
func GenerateSessionToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials, applies lockout and the session policy, and
// issues a new session.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil {
		err = fmt.Errorf("auth stores not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Authenticate", "email", email, "ip_address", params.IPAddress)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = ErrorKind(err)
		}
		s.recorder.LoginAttempt(outcome)
		logOutcome(ctx, logger, err, "authentication failed", "authentication succeeded",
			"user_id", result.User.ID, "session_id", result.Session.ID)
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapStoreError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	user := creds.User

	if user.IsLocked {
		err = ErrAccountLocked
		return
	}

	now := s.now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		err = ErrAccountLocked
		return
	}
	if s.counterExpired(user, now) {
		if err = s.credentials.ResetLoginAttempts(ctx, user.ID, nil); err != nil {
			err = mapStoreError(err)
			return
		}
		user.LoginAttempts, user.LockedUntil = 0, nil
	}

	if verifyErr := s.verifyPassword(creds.PasswordHash, params.Password); verifyErr != nil {
		if !errors.Is(verifyErr, ErrInvalidCredentials) {
			logger.WarnContext(ctx, "stored password hash rejected", "user_id", user.ID, "error", verifyErr)
		}
		var attempts LoginAttempts
		attempts, err = s.credentials.RecordFailedLogin(ctx, user.ID, now, s.options.MaxLoginAttempts, now.Add(s.options.LockoutWindow))
		if err != nil {
			err = mapStoreError(err)
			return
		}
		if attempts.LockedUntil != nil && attempts.Attempts >= s.options.MaxLoginAttempts {
			logger.WarnContext(ctx, "account entered lockout window", "user_id", user.ID, "locked_until", *attempts.LockedUntil)
		}
		err = ErrInvalidCredentials
		return
	}

	if !user.IsVerified {
		err = ErrNotVerified
		return
	}

	if err = s.credentials.ResetLoginAttempts(ctx, user.ID, &now); err != nil {
		err = mapStoreError(err)
		return
	}
	user.LoginAttempts, user.LockedUntil, user.LastLoginAt = 0, nil, &now
	s.upgradePasswordHash(ctx, logger, user.ID, creds.PasswordHash, params.Password)

	if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return
	}
	if err = s.applySessionPolicy(ctx, user.ID); err != nil {
		return
	}

	token := s.tokenGenerator()
	if token == "" {
		err = fmt.Errorf("session token generation failed")
		return
	}

	session := Session{
		ID:        s.idGenerator(),
		UserID:    user.ID,
		Token:     token,
		IPAddress: strings.TrimSpace(params.IPAddress),
		UserAgent: strings.TrimSpace(params.UserAgent),
		ExpiresAt: now.Add(s.options.SessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var persisted Session
	persisted, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	result = AuthenticateResult{User: user, Session: persisted}
	return
}

// counterExpired reports whether earlier failures no longer count: either the
// lockout window has run out, or the last failure is older than the window.
func (s *AuthService) counterExpired(user User, now time.Time) bool {
	if user.LockedUntil != nil {
		return !user.LockedUntil.After(now)
	}
	if user.LoginAttempts == 0 || user.LastAttemptAt == nil {
		return false
	}
	return now.Sub(*user.LastAttemptAt) >= s.options.LockoutWindow
}

func (s *AuthService) applySessionPolicy(ctx context.Context, userID string) error {
	if s.options.Policy != SessionPolicyMultiple {
		removed, err := s.sessions.DeleteSessionsForUser(ctx, userID)
		if err != nil {
			return err
		}
		if removed > 0 {
			s.recorder.SessionRevoked(int(removed))
		}
		return nil
	}

	existing, err := s.sessions.ListSessionsForUser(ctx, userID)
	if err != nil {
		return err
	}
	keep := s.options.MaxSessionsPerUser - 1
	if len(existing) <= keep {
		return nil
	}

	sort.Slice(existing, func(i, j int) bool {
		return existing[i].CreatedAt.After(existing[j].CreatedAt)
	})
	evicted := 0
	for _, session := range existing[keep:] {
		if err := s.sessions.DeleteSession(ctx, session.Token); err != nil && !errors.Is(mapStoreError(err), ErrNotFound) {
			return err
		}
		evicted++
	}
	s.recorder.SessionRevoked(evicted)
	return nil
}

func (s *AuthService) upgradePasswordHash(ctx context.Context, logger *slog.Logger, userID, current, password string) {
	upgrader, ok := s.credentials.(PasswordUpgrader)
	if !ok || !NeedsRehash(current) {
		return
	}
	hash, err := s.hashPassword(password)
	if err == nil {
		err = upgrader.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to upgrade legacy password hash", "user_id", userID, "error", err)
		return
	}
	logger.InfoContext(ctx, "legacy password hash upgraded", "user_id", userID)
}

// ValidateSession resolves a token to its principal. Expired sessions are deleted.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil || s.credentials == nil {
		err = fmt.Errorf("auth stores not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "session validation failed", "")
			return
		}
		logger.DebugContext(ctx, "session validated", "principal_id", principal.UserID)
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if errors.Is(mapStoreError(err), ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	if !session.ExpiresAt.After(s.now()) {
		if delErr := s.sessions.DeleteSession(ctx, session.Token); delErr != nil && !errors.Is(mapStoreError(delErr), ErrNotFound) {
			logger.WarnContext(ctx, "failed to delete expired session", "session_id", session.ID, "error", delErr)
		}
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(mapStoreError(err), ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if user.IsLocked {
		err = ErrUnauthorized
		return
	}

	principal = Principal{UserID: user.ID, Role: user.Role}
	return
}

// RevokeSession deletes the session for token. Unknown or empty tokens are not an error.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", trimmed != "")
	defer func() {
		logOutcome(ctx, logger, err, "failed to revoke session", "session revoked")
	}()

	if trimmed == "" {
		return nil
	}
	if err = s.sessions.DeleteSession(ctx, trimmed); err != nil {
		if errors.Is(mapStoreError(err), ErrNotFound) {
			err = nil
		}
		return err
	}
	s.recorder.SessionRevoked(1)
	return nil
}

// RefreshSession extends a live session by the configured TTL.
func (s *AuthService) RefreshSession(ctx context.Context, token string) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RefreshSession")
	defer func() {
		logOutcome(ctx, logger, err, "session refresh failed", "session refreshed",
			"session_id", session.ID, "user_id", session.UserID)
	}()

	if _, err = s.ValidateSession(ctx, token); err != nil {
		return
	}

	session, err = s.sessions.ExtendSession(ctx, strings.TrimSpace(token), s.now().Add(s.options.SessionTTL))
	if err != nil {
		err = mapStoreError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
	}
	return
}

// ListSessions returns the caller's own sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, principal Principal) ([]Session, error) {
	if s == nil {
		return nil, fmt.Errorf("AuthService is nil")
	}
	if err := Authorize(&principal, Action{Resource: ResourceSession, Operation: OperationList, OwnerIDs: []string{principal.UserID}}); err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListSessionsForUser(ctx, principal.UserID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// RevokeUserSessions deletes every session of userID. Allowed for admins and for
// the user themself.
func (s *AuthService) RevokeUserSessions(ctx context.Context, principal Principal, userID string) (removed int64, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RevokeUserSessions", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to revoke user sessions", "user sessions revoked", "removed", removed)
	}()

	if strings.TrimSpace(userID) == "" {
		err = newValidationError("user_id", "user id is required")
		return
	}
	if err = Authorize(&principal, Action{Resource: ResourceSession, Operation: OperationDelete, OwnerIDs: []string{userID}}); err != nil {
		return
	}

	removed, err = s.sessions.DeleteSessionsForUser(ctx, userID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if removed > 0 {
		s.recorder.SessionRevoked(int(removed))
	}
	return
}
