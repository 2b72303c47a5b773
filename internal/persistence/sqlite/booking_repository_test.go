package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studentstay/internal/persistence"
)

func TestBookingRepository_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reserves the room and stores the price", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		room := seedRoom(t, storage, "a", 4500)

		booking, err := storage.Bookings.CreateBookingReservingRoom(ctx, guestBooking("booking-1", room))
		require.NoError(t, err)
		assert.Equal(t, "landlord-a", booking.LandlordID)
		assert.EqualValues(t, 14175, booking.TotalPrice)
		assert.EqualValues(t, 10125, booking.BalanceDue)
		assert.Equal(t, "2025-09-01", booking.CheckIn.Format("2006-01-02"))
		assert.Nil(t, booking.TenantID)
		require.NotNil(t, booking.GuestEmail)
		assert.Equal(t, "ada@example.com", *booking.GuestEmail)

		stored, err := storage.Catalog.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, "booked", stored.Status)
	})

	t.Run("unavailable room is stale and leaves no booking", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		room := seedRoom(t, storage, "a", 4500)
		_, err := storage.Catalog.SetRoomStatus(ctx, room.ID, "maintenance", "")
		require.NoError(t, err)

		_, err = storage.Bookings.CreateBookingReservingRoom(ctx, guestBooking("booking-1", room))
		assert.ErrorIs(t, err, persistence.ErrStaleState)

		_, err = storage.Bookings.GetBooking(ctx, "booking-1")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("missing room is not found", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		room := seedRoom(t, storage, "a", 4500)
		room.ID = "ghost"

		_, err := storage.Bookings.CreateBookingReservingRoom(ctx, guestBooking("booking-1", room))
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("identity is required", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		room := seedRoom(t, storage, "a", 4500)
		booking := guestBooking("booking-1", room)
		booking.GuestEmail = nil

		_, err := storage.Bookings.CreateBookingReservingRoom(ctx, booking)
		assert.ErrorIs(t, err, persistence.ErrConstraintViolation)

		stored, err := storage.Catalog.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, "available", stored.Status, "room flip must roll back with the insert")
	})

	t.Run("concurrent creates on one room yield a single booking", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		room := seedRoom(t, storage, "a", 4500)

		const workers = 6
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
			stale   int
			other   []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := storage.Bookings.CreateBookingReservingRoom(ctx, guestBooking(fmt.Sprintf("booking-%d", i), room))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case errors.Is(err, persistence.ErrStaleState):
					stale++
				default:
					other = append(other, err)
				}
			}(i)
		}
		wg.Wait()

		assert.Empty(t, other)
		assert.Equal(t, 1, created)
		assert.Equal(t, workers-1, stale)

		bookings, err := storage.Bookings.ListBookings(ctx, persistence.BookingFilter{})
		require.NoError(t, err)
		assert.Len(t, bookings, 1)
	})
}

func TestBookingRepository_Transition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("conditional update and room release", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)
		room := seedRoom(t, storage, "a", 4500)
		_, err := storage.Bookings.CreateBookingReservingRoom(ctx, guestBooking("booking-1", room))
		require.NoError(t, err)

		at := baseTime.Add(time.Hour)
		updated, err := storage.Bookings.TransitionBooking(ctx, persistence.BookingTransition{
			BookingID: "booking-1", From: "pending", To: "approved", At: at,
		})
		require.NoError(t, err)
		assert.Equal(t, "approved", updated.Status)
		assert.True(t, updated.UpdatedAt.Equal(at))
		assert.EqualValues(t, 14175, updated.TotalPrice)

		_, err = storage.Bookings.TransitionBooking(ctx, persistence.BookingTransition{
			BookingID: "booking-1", From: "pending", To: "rejected", ReleaseRoom: true,
		})
		assert.ErrorIs(t, err, persistence.ErrStaleState)

		stored, err := storage.Catalog.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, "booked", stored.Status)

		_, err = storage.Bookings.TransitionBooking(ctx, persistence.BookingTransition{
			BookingID: "booking-1", From: "approved", To: "cancelled", ReleaseRoom: true,
		})
		require.NoError(t, err)

		stored, err = storage.Catalog.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, "available", stored.Status)

		_, err = storage.Bookings.CreateBookingReservingRoom(ctx, guestBooking("booking-2", room))
		assert.NoError(t, err, "released room can be booked again")
	})

	t.Run("unknown booking", func(t *testing.T) {
		t.Parallel()
		storage := openStorage(t)

		_, err := storage.Bookings.TransitionBooking(ctx, persistence.BookingTransition{
			BookingID: "ghost", From: "pending", To: "approved",
		})
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})
}

func TestBookingRepository_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := openStorage(t)

	roomA := seedRoom(t, storage, "a", 4500)
	roomB := seedRoom(t, storage, "b", 1000)
	tenant := seedUser(t, storage, "tenant-1", "tenant@example.com", "tenant")

	guest := guestBooking("booking-guest", roomA)
	_, err := storage.Bookings.CreateBookingReservingRoom(ctx, guest)
	require.NoError(t, err)

	owned := guestBooking("booking-tenant", roomB)
	owned.TenantID = strPtr(tenant.ID)
	owned.GuestName, owned.GuestEmail = nil, nil
	owned.MonthlyRate, owned.Subtotal, owned.ServiceFee = 1000, 3000, 150
	owned.DepositAmount, owned.TotalPrice, owned.BalanceDue = 900, 3150, 2250
	owned.CreatedAt = baseTime.Add(time.Minute)
	_, err = storage.Bookings.CreateBookingReservingRoom(ctx, owned)
	require.NoError(t, err)

	cases := []struct {
		name   string
		filter persistence.BookingFilter
		want   []string
	}{
		{name: "all newest first", filter: persistence.BookingFilter{}, want: []string{"booking-tenant", "booking-guest"}},
		{name: "by tenant", filter: persistence.BookingFilter{TenantID: tenant.ID}, want: []string{"booking-tenant"}},
		{name: "by landlord", filter: persistence.BookingFilter{LandlordID: "landlord-a"}, want: []string{"booking-guest"}},
		{name: "by status", filter: persistence.BookingFilter{Status: "approved"}, want: nil},
		{name: "search guest email", filter: persistence.BookingFilter{Search: "ADA@"}, want: []string{"booking-guest"}},
		{name: "search property title", filter: persistence.BookingFilter{Search: "house b"}, want: []string{"booking-tenant"}},
		{name: "search treats wildcards literally", filter: persistence.BookingFilter{Search: "%"}, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bookings, err := storage.Bookings.ListBookings(ctx, tc.filter)
			require.NoError(t, err)

			var ids []string
			for _, b := range bookings {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}
