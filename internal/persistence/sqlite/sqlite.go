package sqlite

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/studentstay/internal/logging"
	"github.com/example/studentstay/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite-backed repositories sharing one connection pool.
type Storage struct {
	pool *ConnectionPool

	Users    *UserRepository
	Sessions *SessionRepository
	Catalog  *CatalogRepository
	Bookings *BookingRepository
}

// Open opens the database at dsn with default connection settings.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(Config{DSN: dsn})
}

// OpenWithConfig opens the database using the provided settings.
func OpenWithConfig(config Config) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:     pool,
		Users:    NewUserRepository(pool),
		Sessions: NewSessionRepository(pool),
		Catalog:  NewCatalogRepository(pool),
		Bookings: NewBookingRepository(pool),
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	return s.migrationManager(ctx).Run(ctx)
}

// MigrationStatus reports applied and pending schema migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	return s.migrationManager(ctx).Status(ctx)
}

func (s *Storage) migrationManager(ctx context.Context) *migration.Manager {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	return migration.NewManager(s.pool.DB(), migrationFiles, "migrations", logger)
}
