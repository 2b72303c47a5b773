package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studentstay/internal/persistence"
)

func TestUserRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores email lower-cased and finds it case-insensitively", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		seedUser(t, storage, "user-1", "  Mixed.Case@Example.COM ", "tenant")

		user, err := storage.Users.GetUserByEmail(ctx, "MIXED.case@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "mixed.case@example.com", user.Email)
		assert.True(t, user.IsVerified)
		assert.Nil(t, user.LockedUntil)
		assert.True(t, user.CreatedAt.Equal(baseTime))
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		seedUser(t, storage, "user-1", "dup@example.com", "tenant")

		err := storage.Users.CreateUser(ctx, persistence.User{
			ID: "user-2", Email: "DUP@example.com", PasswordHash: "x", Role: "tenant",
		})
		assert.ErrorIs(t, err, persistence.ErrDuplicate)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)

		err := storage.Users.CreateUser(ctx, persistence.User{
			ID: "user-1", Email: "a@example.com", PasswordHash: "x", Role: "superuser",
		})
		assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)

		_, err := storage.Users.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		_, err = storage.Users.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		err = storage.Users.UpdateUser(ctx, persistence.User{ID: "nobody", PasswordHash: "x", Role: "tenant"})
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("update changes flags and role", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		user := seedUser(t, storage, "user-1", "flags@example.com", "tenant")

		user.Role = "landlord"
		user.IsLocked = true
		user.IsVerified = false
		require.NoError(t, storage.Users.UpdateUser(ctx, user))

		stored, err := storage.Users.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "landlord", stored.Role)
		assert.True(t, stored.IsLocked)
		assert.False(t, stored.IsVerified)
	})
}

func TestUserRepository_LoginAttempts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("locks once the threshold is reached and resets", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		user := seedUser(t, storage, "user-1", "lock@example.com", "tenant")
		lockUntil := baseTime.Add(15 * time.Minute)

		for i := 1; i <= 4; i++ {
			state, err := storage.Users.RecordFailedLogin(ctx, user.ID, baseTime, 5, lockUntil)
			require.NoError(t, err)
			assert.Equal(t, i, state.Attempts)
			assert.Nil(t, state.LockedUntil)
		}

		state, err := storage.Users.RecordFailedLogin(ctx, user.ID, baseTime, 5, lockUntil)
		require.NoError(t, err)
		assert.Equal(t, 5, state.Attempts)
		require.NotNil(t, state.LockedUntil)
		assert.True(t, state.LockedUntil.Equal(lockUntil))

		loginAt := baseTime.Add(time.Hour)
		require.NoError(t, storage.Users.ResetLoginAttempts(ctx, user.ID, &loginAt))

		stored, err := storage.Users.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Zero(t, stored.LoginAttempts)
		assert.Nil(t, stored.LockedUntil)
		require.NotNil(t, stored.LastLoginAt)
		assert.True(t, stored.LastLoginAt.Equal(loginAt))
		require.NotNil(t, stored.LastAttemptAt)
	})

	t.Run("concurrent failures are all counted", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		user := seedUser(t, storage, "user-1", "race@example.com", "tenant")

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := storage.Users.RecordFailedLogin(ctx, user.ID, baseTime, 100, baseTime)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		stored, err := storage.Users.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, workers, stored.LoginAttempts)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)

		_, err := storage.Users.RecordFailedLogin(ctx, "nobody", baseTime, 5, baseTime)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		assert.ErrorIs(t, storage.Users.ResetLoginAttempts(ctx, "nobody", nil), persistence.ErrNotFound)
	})
}
