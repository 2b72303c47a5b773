package application

import (
	"strings"
	"time"

	"github.com/example/studentstay/internal/booking"
)

// Role is the marketplace role carried by every account.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes and validates a role name.
func ParseRole(value string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleTenant, RoleLandlord, RoleAdmin:
		return role, true
	}
	return "", false
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// SystemPrincipal is used by operator tooling that runs outside any HTTP session.
var SystemPrincipal = Principal{UserID: "system", Role: RoleAdmin}

// User represents a marketplace account exposed by the application services.
type User struct {
	ID            string
	Email         string
	DisplayName   string
	Role          Role
	IsVerified    bool
	IsLocked      bool
	LockedUntil   *time.Time
	LoginAttempts int
	LastAttemptAt *time.Time
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserCredentials pairs a user with the stored password hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// LoginAttempts is the counter state after a failed login was recorded.
type LoginAttempts struct {
	Attempts    int
	LockedUntil *time.Time
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// RegisterUserParams captures the attributes of a new account.
type RegisterUserParams struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// RoomStatus mirrors the availability states of a catalog room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomBooked      RoomStatus = "booked"
	RoomMaintenance RoomStatus = "maintenance"
)

// Property is a landlord's listing.
type Property struct {
	ID         string
	LandlordID string
	Title      string
	Address    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Room is the bookable unit of a property. LandlordID is resolved from the property.
type Room struct {
	ID           string
	PropertyID   string
	LandlordID   string
	Name         string
	MonthlyPrice int64
	Status       RoomStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PropertyInput captures caller provided property fields.
type PropertyInput struct {
	LandlordID string
	Title      string
	Address    string
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	PropertyID   string
	Name         string
	MonthlyPrice int64
}

// GuestIdentity is the inline contact carried by bookings made without a session.
type GuestIdentity struct {
	Name  string
	Email string
	Phone string
}

// Booking is a priced reservation of a room.
type Booking struct {
	ID              string
	RoomID          *string
	PropertyID      string
	LandlordID      string
	TenantID        *string
	Guest           *GuestIdentity
	CheckIn         time.Time
	DurationMonths  int
	Guests          int
	MonthlyRate     int64
	Subtotal        int64
	ServiceFee      int64
	Deposit         int64
	BalanceDue      int64
	Total           int64
	Status          booking.Status
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateBookingRequest is the validated boundary shape for booking creation.
// CheckIn is a calendar date in YYYY-MM-DD form.
type CreateBookingRequest struct {
	RoomID          string
	CheckIn         string
	Months          int
	Guests          int
	SpecialRequests string
	Guest           GuestIdentity
}

// CreateBookingParams wraps a creation request with its caller. A nil Caller is a guest.
type CreateBookingParams struct {
	Caller  *Principal
	Request CreateBookingRequest
}

// TransitionBookingParams wraps a status change request.
type TransitionBookingParams struct {
	Caller    *Principal
	BookingID string
	Target    string
}

// ListBookingsParams wraps a listing request. Status and Search are optional.
type ListBookingsParams struct {
	Caller *Principal
	Status string
	Search string
}

// BookingFilter narrows repository listings. Empty fields are ignored.
type BookingFilter struct {
	TenantID   string
	LandlordID string
	Status     booking.Status
	Search     string
}

// BookingTransition is the conditional update handed to the repository.
type BookingTransition struct {
	BookingID   string
	From        booking.Status
	To          booking.Status
	ReleaseRoom bool
	At          time.Time
}
