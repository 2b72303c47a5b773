// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files are named {version}_{description}.sql, where version is a
// zero-padded number. Files are read from an fs.FS (usually an embed.FS owned by
// the storage package), applied in ascending version order inside one
// transaction each, and recorded in the schema_migrations table together with
// their checksum and execution time. A recorded version whose checksum no longer
// matches the file is reported as ErrChecksumMismatch instead of being re-applied.
package migration
