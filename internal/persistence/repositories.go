package persistence

import (
	"context"
	"time"
)

// UserRepository stores accounts and their credential bookkeeping.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// RecordFailedLogin increments the attempt counter in a single statement and
	// stamps LockedUntil when the new count reaches maxAttempts.
	RecordFailedLogin(ctx context.Context, id string, at time.Time, maxAttempts int, lockUntil time.Time) (LoginAttemptState, error)
	// ResetLoginAttempts clears the counter and lockout. A non-nil loginAt is
	// recorded as the last successful login.
	ResetLoginAttempts(ctx context.Context, id string, loginAt *time.Time) error
}

// SessionRepository stores authentication sessions keyed by token with a secondary index by user.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	ExtendSession(ctx context.Context, token string, expiresAt time.Time) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsForUser(ctx context.Context, userID string) (int64, error)
	ListSessionsForUser(ctx context.Context, userID string) ([]Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// CatalogRepository exposes the slice of the property catalog the booking core relies on.
type CatalogRepository interface {
	CreateProperty(ctx context.Context, property Property) error
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	// SetRoomStatus performs a conditional update and reports whether a row changed.
	SetRoomStatus(ctx context.Context, id, status, expected string) (bool, error)
	GetPropertyOwner(ctx context.Context, propertyID string) (string, error)
}

// BookingFilter narrows booking listings. Empty fields are ignored.
type BookingFilter struct {
	TenantID   string
	LandlordID string
	Status     string
	Search     string
}

// BookingTransition describes a conditional status change.
type BookingTransition struct {
	BookingID   string
	From        string
	To          string
	ReleaseRoom bool
	At          time.Time
}

// BookingRepository stores bookings. Writes that touch room availability run in one transaction.
type BookingRepository interface {
	// CreateBookingReservingRoom flips the room from available to booked and inserts
	// the booking atomically. ErrStaleState means the room was no longer available.
	CreateBookingReservingRoom(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	// TransitionBooking updates the status only if it still equals From.
	TransitionBooking(ctx context.Context, transition BookingTransition) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}
