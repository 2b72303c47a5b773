package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ResetLoginAttempts(ctx context.Context, userID string, loginAt *time.Time) error
}

// UserService administers accounts. Every operation requires an admin principal.
type UserService struct {
	users        UserRepository
	hashPassword func(string) (string, error)
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: HashPassword, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

func (s *UserService) requireAdmin(principal Principal) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	return Authorize(&principal, Action{Resource: ResourceUser, Operation: OperationCreate})
}

// RegisterUser validates input, hashes the password and stores an unverified account.
func (s *UserService) RegisterUser(ctx context.Context, principal Principal, params RegisterUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	logger := s.loggerWith(ctx, "RegisterUser", "principal_id", principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to register user", "user registered", "user_id", user.ID)
	}()

	if err = s.requireAdmin(principal); err != nil {
		return
	}

	normalized := normalizeRegistration(params)
	role, vErr := validateRegistration(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(normalized.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user = User{
		ID:          s.idGenerator(),
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	user, err = s.users.CreateUser(ctx, user, hash)
	if err != nil {
		err = mapStoreError(err)
		if errors.Is(err, ErrAlreadyExists) {
			err = fmt.Errorf("%w: email %s", ErrAlreadyExists, normalized.Email)
		}
	}
	return
}

// VerifyUser marks an account as verified so it can log in.
func (s *UserService) VerifyUser(ctx context.Context, principal Principal, userID string) (User, error) {
	return s.mutate(ctx, principal, "VerifyUser", userID, func(u *User) error {
		u.IsVerified = true
		return nil
	})
}

// LockUser administratively locks an account. Existing sessions stop resolving.
func (s *UserService) LockUser(ctx context.Context, principal Principal, userID string) (User, error) {
	return s.mutate(ctx, principal, "LockUser", userID, func(u *User) error {
		u.IsLocked = true
		return nil
	})
}

// UnlockUser lifts the administrative lock and clears the failed-login counter.
func (s *UserService) UnlockUser(ctx context.Context, principal Principal, userID string) (User, error) {
	user, err := s.mutate(ctx, principal, "UnlockUser", userID, func(u *User) error {
		u.IsLocked = false
		return nil
	})
	if err != nil {
		return User{}, err
	}
	if err := s.users.ResetLoginAttempts(ctx, user.ID, nil); err != nil {
		return User{}, mapStoreError(err)
	}
	user.LoginAttempts, user.LockedUntil = 0, nil
	return user, nil
}

// ChangeRole assigns a new role to an account.
func (s *UserService) ChangeRole(ctx context.Context, principal Principal, userID, role string) (User, error) {
	return s.mutate(ctx, principal, "ChangeRole", userID, func(u *User) error {
		parsed, ok := ParseRole(role)
		if !ok {
			return newValidationError("role", "role must be tenant, landlord or admin")
		}
		u.Role = parsed
		return nil
	})
}

func (s *UserService) mutate(ctx context.Context, principal Principal, operation, userID string, apply func(*User) error) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	logger := s.loggerWith(ctx, operation, "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		logOutcome(ctx, logger, err, "user update failed", "user updated")
	}()

	if err = s.requireAdmin(principal); err != nil {
		return
	}
	if strings.TrimSpace(userID) == "" {
		err = newValidationError("user_id", "user id is required")
		return
	}

	user, err = s.users.GetUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = apply(&user); err != nil {
		return
	}
	user.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, user)
	if err != nil {
		err = mapStoreError(err)
	}
	return
}

// ListUsers returns all users ordered by email.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if err := s.requireAdmin(principal); err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}

	out := make([]User, len(users))
	copy(out, users)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Email == out[j].Email {
			return out[i].ID < out[j].ID
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func normalizeRegistration(params RegisterUserParams) RegisterUserParams {
	return RegisterUserParams{
		Email:       strings.ToLower(strings.TrimSpace(params.Email)),
		Password:    params.Password,
		DisplayName: strings.TrimSpace(params.DisplayName),
		Role:        params.Role,
	}
}

func validateRegistration(params RegisterUserParams) (Role, *ValidationError) {
	vErr := &ValidationError{}

	if params.Email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(params.Email); err != nil || addr.Address != params.Email {
		vErr.add("email", "email is invalid")
	}

	if utf8.RuneCountInString(params.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	if utf8.RuneCountInString(params.DisplayName) > 100 {
		vErr.add("display_name", "display name must be at most 100 characters")
	}

	role, ok := ParseRole(params.Role)
	if !ok {
		vErr.add("role", "role must be tenant, landlord or admin")
	}
	return role, vErr
}
