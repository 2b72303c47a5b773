package migration

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	t.Run("orders migrations numerically", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"migrations/010_add_index.sql":     {Data: []byte("CREATE INDEX a ON t(x);")},
			"migrations/002_second.sql":        {Data: []byte("CREATE TABLE u (id TEXT);")},
			"migrations/001_create_tables.sql": {Data: []byte("CREATE TABLE t (x TEXT);")},
			"migrations/README.md":             {Data: []byte("ignored")},
		}

		migrations, err := NewScanner(fsys, "migrations").Scan()
		require.NoError(t, err)
		require.Len(t, migrations, 3)

		assert.Equal(t, "001", migrations[0].Version)
		assert.Equal(t, "create tables", migrations[0].Description)
		assert.Equal(t, "002", migrations[1].Version)
		assert.Equal(t, "010", migrations[2].Version)
		assert.Len(t, migrations[0].Checksum, 64)
	})

	t.Run("rejects malformed file names", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{"migrations/create.sql": {Data: []byte("SELECT 1;")}}
		_, err := NewScanner(fsys, "migrations").Scan()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidMigrationFile))
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"migrations/001_a.sql": {Data: []byte("SELECT 1;")},
			"migrations/001_b.sql": {Data: []byte("SELECT 2;")},
		}
		_, err := NewScanner(fsys, "migrations").Scan()
		assert.ErrorIs(t, err, ErrDuplicateVersion)
	})

	t.Run("rejects empty files", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{"migrations/001_empty.sql": {Data: []byte("  \n")}}
		_, err := NewScanner(fsys, "migrations").Scan()
		assert.ErrorIs(t, err, ErrInvalidMigrationFile)
	})
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	content := `
-- users
CREATE TABLE a (id TEXT);

-- comment only;
CREATE INDEX a_id ON a(id);
`
	statements := splitStatements(content)
	require.Len(t, statements, 2)
	assert.Equal(t, "CREATE TABLE a (id TEXT)", statements[0])
	assert.Equal(t, "CREATE INDEX a_id ON a(id)", statements[1])
}

func TestSplitStatements_Comments(t *testing.T) {
	t.Parallel()

	content := `-- Header; with a semicolon inside the comment.
CREATE TABLE a (
    id TEXT, -- trailing; comment
    note TEXT DEFAULT '--; kept'
);
INSERT INTO a (id) VALUES ('x;y');
`
	statements := splitStatements(content)
	require.Len(t, statements, 2)
	assert.Equal(t, "CREATE TABLE a (\nid TEXT,\nnote TEXT DEFAULT '--; kept'\n)", statements[0])
	assert.Equal(t, "INSERT INTO a (id) VALUES ('x;y')", statements[1])
}
