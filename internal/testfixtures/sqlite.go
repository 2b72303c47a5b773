package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/studentstay/internal/application"
	"github.com/example/studentstay/internal/persistence/sqlite"
)

// SQLiteHarness wraps a migrated temporary SQLite storage for integration tests.
type SQLiteHarness struct {
	Storage *sqlite.Storage

	tb      testing.TB
	cleanup func()
}

// NewSQLiteHarness opens and migrates a database in tb.TempDir. The storage is
// closed automatically when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "studentstay.db")
	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		tb:      tb,
		cleanup: func() { _ = storage.Close() },
	}
	tb.Cleanup(harness.Close)
	return harness
}

// Close releases the storage. It is safe to call more than once.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// SeedUser stores the fixture and returns it.
func (h *SQLiteHarness) SeedUser(fixture UserFixture) UserFixture {
	h.tb.Helper()
	if err := h.Storage.Users.CreateUser(context.Background(), fixture.Persistence()); err != nil {
		h.tb.Fatalf("failed to seed user %s: %v", fixture.ID, err)
	}
	return fixture
}

// SeedProperty stores the fixture. Its landlord must already exist.
func (h *SQLiteHarness) SeedProperty(fixture PropertyFixture) PropertyFixture {
	h.tb.Helper()
	if err := h.Storage.Catalog.CreateProperty(context.Background(), fixture.Persistence()); err != nil {
		h.tb.Fatalf("failed to seed property %s: %v", fixture.ID, err)
	}
	return fixture
}

// SeedRoom stores the fixture. Its property must already exist.
func (h *SQLiteHarness) SeedRoom(fixture RoomFixture) RoomFixture {
	h.tb.Helper()
	if err := h.Storage.Catalog.CreateRoom(context.Background(), fixture.Persistence()); err != nil {
		h.tb.Fatalf("failed to seed room %s: %v", fixture.ID, err)
	}
	return fixture
}

// Listing is a landlord with one property and one room.
type Listing struct {
	Landlord UserFixture
	Property PropertyFixture
	Room     RoomFixture
}

// SeedListing stores a fresh landlord, property and room. Room options apply to the room.
func (h *SQLiteHarness) SeedListing(opts ...RoomOption) Listing {
	h.tb.Helper()
	landlord := h.SeedUser(NewUserFixture(WithUserRole(application.RoleLandlord)))
	property := h.SeedProperty(NewPropertyFixture(landlord.ID))
	room := h.SeedRoom(NewRoomFixture(property, opts...))
	return Listing{Landlord: landlord, Property: property, Room: room}
}
