package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/studentstay/internal/persistence"
)

const userColumns = `id, email, display_name, password_hash, role, is_verified, is_locked, locked_until,
	login_attempts, last_attempt_at, last_login_at, created_at, updated_at`

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateUser inserts a new user. Emails are stored lower-cased.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		normalizeEmail(user.Email),
		user.DisplayName,
		user.PasswordHash,
		user.Role,
		user.IsVerified,
		user.IsLocked,
		formatTimePtr(user.LockedUntil),
		user.LoginAttempts,
		formatTimePtr(user.LastAttemptAt),
		formatTimePtr(user.LastLoginAt),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateUser overwrites the mutable profile and flag columns of a user.
// Login bookkeeping columns are left to RecordFailedLogin and ResetLoginAttempts.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC()
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE users
		SET email = ?, display_name = ?, password_hash = ?, role = ?, is_verified = ?, is_locked = ?, updated_at = ?
		WHERE id = ?
	`,
		normalizeEmail(user.Email),
		user.DisplayName,
		user.PasswordHash,
		user.Role,
		user.IsVerified,
		user.IsLocked,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

// GetUserByEmail retrieves a user by case-insensitive email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalized)
	return r.scanUser(row)
}

// ListUsers returns all users ordered by creation time.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return users, nil
}

// RecordFailedLogin increments login_attempts in one statement so concurrent
// failures cannot lose updates, and starts the lockout window once the new
// count reaches maxAttempts.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, at time.Time, maxAttempts int, lockUntil time.Time) (persistence.LoginAttemptState, error) {
	var (
		state       persistence.LoginAttemptState
		lockedUntil sql.NullString
	)

	err := r.pool.DB().QueryRowContext(ctx, `
		UPDATE users
		SET login_attempts = login_attempts + 1,
			last_attempt_at = ?,
			locked_until = CASE WHEN login_attempts + 1 >= ? THEN ? ELSE locked_until END,
			updated_at = ?
		WHERE id = ?
		RETURNING login_attempts, locked_until
	`,
		formatTime(at),
		maxAttempts,
		formatTime(lockUntil),
		formatTime(at),
		id,
	).Scan(&state.Attempts, &lockedUntil)
	if err != nil {
		return persistence.LoginAttemptState{}, r.mapper.MapError(err)
	}

	if state.LockedUntil, err = parseNullTime(lockedUntil); err != nil {
		return persistence.LoginAttemptState{}, err
	}
	return state, nil
}

// ResetLoginAttempts clears the attempt counter and lockout window.
func (r *UserRepository) ResetLoginAttempts(ctx context.Context, id string, loginAt *time.Time) error {
	now := time.Now().UTC()
	if loginAt != nil {
		now = loginAt.UTC()
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE users
		SET login_attempts = 0,
			locked_until = NULL,
			last_login_at = COALESCE(?, last_login_at),
			updated_at = ?
		WHERE id = ?
	`, formatTimePtr(loginAt), formatTime(now), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *UserRepository) scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                                persistence.User
		lockedUntil, lastAttempt, lastLogin sql.NullString
		createdAt, updatedAt                string
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Role,
		&user.IsVerified,
		&user.IsLocked,
		&lockedUntil,
		&user.LoginAttempts,
		&lastAttempt,
		&lastLogin,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}

	if user.LockedUntil, err = parseNullTime(lockedUntil); err != nil {
		return persistence.User{}, err
	}
	if user.LastAttemptAt, err = parseNullTime(lastAttempt); err != nil {
		return persistence.User{}, err
	}
	if user.LastLoginAt, err = parseNullTime(lastLogin); err != nil {
		return persistence.User{}, err
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
