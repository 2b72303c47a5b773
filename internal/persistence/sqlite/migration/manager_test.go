package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestManager_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("applies pending migrations once", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/001_create.sql": {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
			"m/002_seed.sql":   {Data: []byte("INSERT INTO things (id) VALUES ('a'); INSERT INTO things (id) VALUES ('b');")},
		}

		manager := NewManager(db, fsys, "m", nil)
		require.NoError(t, manager.Run(ctx))
		require.NoError(t, manager.Run(ctx))

		var count int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM things`).Scan(&count))
		assert.Equal(t, 2, count)

		status, err := manager.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "002", status.CurrentVersion)
		assert.Zero(t, status.PendingCount)
		assert.Len(t, status.AppliedMigrations, 2)
	})

	t.Run("rolls back a failing migration", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/001_create.sql": {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
			"m/002_broken.sql": {Data: []byte("INSERT INTO things (id) VALUES ('a'); INSERT INTO missing (id) VALUES ('b');")},
		}

		manager := NewManager(db, fsys, "m", nil)
		err := manager.Run(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMigrationFailed)

		var count int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM things`).Scan(&count))
		assert.Zero(t, count)

		applied, err := NewExecutor(db).IsApplied(ctx, "002")
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("ignores semicolons inside comments", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/001_create.sql": {Data: []byte("-- Things; written once.\nCREATE TABLE things (id TEXT PRIMARY KEY); -- done; really\n")},
		}

		require.NoError(t, NewManager(db, fsys, "m", nil).Run(ctx))

		var count int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM things`).Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("detects edited migrations", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		original := fstest.MapFS{"m/001_create.sql": {Data: []byte("CREATE TABLE things (id TEXT);")}}
		require.NoError(t, NewManager(db, original, "m", nil).Run(ctx))

		edited := fstest.MapFS{"m/001_create.sql": {Data: []byte("CREATE TABLE things (id TEXT, name TEXT);")}}
		err := NewManager(db, edited, "m", nil).Run(ctx)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})
}
