package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/studentstay/internal/persistence"
	"github.com/example/studentstay/internal/persistence/sqlite"
)

var baseTime = time.Date(2025, time.August, 1, 9, 0, 0, 0, time.UTC)

func openStorage(t *testing.T) *sqlite.Storage {
	t.Helper()

	storage, err := sqlite.Open(filepath.Join(t.TempDir(), "studentstay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	require.NoError(t, storage.Migrate(context.Background()))
	return storage
}

func seedUser(t *testing.T, storage *sqlite.Storage, id, email, role string) persistence.User {
	t.Helper()

	user := persistence.User{
		ID:           id,
		Email:        email,
		DisplayName:  id,
		PasswordHash: "argon2id$hash",
		Role:         role,
		IsVerified:   true,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	require.NoError(t, storage.Users.CreateUser(context.Background(), user))
	return user
}

// seedRoom creates a landlord, a property and an available room priced at monthlyPrice.
func seedRoom(t *testing.T, storage *sqlite.Storage, suffix string, monthlyPrice int64) persistence.Room {
	t.Helper()
	ctx := context.Background()

	landlord := seedUser(t, storage, "landlord-"+suffix, "landlord-"+suffix+"@example.com", "landlord")
	property := persistence.Property{
		ID:         "property-" + suffix,
		LandlordID: landlord.ID,
		Title:      "Riverside House " + suffix,
		Address:    "1 River Road",
		CreatedAt:  baseTime,
	}
	require.NoError(t, storage.Catalog.CreateProperty(ctx, property))

	room := persistence.Room{
		ID:           "room-" + suffix,
		PropertyID:   property.ID,
		Name:         "Room " + suffix,
		MonthlyPrice: monthlyPrice,
		CreatedAt:    baseTime,
	}
	require.NoError(t, storage.Catalog.CreateRoom(ctx, room))

	stored, err := storage.Catalog.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	return stored
}

func strPtr(s string) *string {
	return &s
}

func guestBooking(id string, room persistence.Room) persistence.Booking {
	return persistence.Booking{
		ID:             id,
		RoomID:         strPtr(room.ID),
		PropertyID:     room.PropertyID,
		GuestName:      strPtr("Ada Guest"),
		GuestEmail:     strPtr("ada@example.com"),
		CheckIn:        time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		DurationMonths: 3,
		Guests:         1,
		MonthlyRate:    4500,
		Subtotal:       13500,
		ServiceFee:     675,
		DepositAmount:  4050,
		BalanceDue:     10125,
		TotalPrice:     14175,
		Status:         "pending",
		CreatedAt:      baseTime,
	}
}
