package persistence

import "time"

// User represents a marketplace account together with its credential state.
type User struct {
	ID            string
	Email         string
	DisplayName   string
	PasswordHash  string
	Role          string
	IsVerified    bool
	IsLocked      bool
	LockedUntil   *time.Time
	LoginAttempts int
	LastAttemptAt *time.Time
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LoginAttemptState is the outcome of an atomic failed-login increment.
type LoginAttemptState struct {
	Attempts    int
	LockedUntil *time.Time
}

// Session represents an authentication session persisted for a user.
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

// Property is a listing owned by a landlord.
type Property struct {
	ID         string
	LandlordID string
	Title      string
	Address    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Room is the bookable unit of a property.
type Room struct {
	ID           string
	PropertyID   string
	LandlordID   string
	Name         string
	MonthlyPrice int64
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Booking is a stored reservation. Price columns are written once at creation.
type Booking struct {
	ID              string
	RoomID          *string
	PropertyID      string
	LandlordID      string
	TenantID        *string
	GuestName       *string
	GuestEmail      *string
	GuestPhone      *string
	CheckIn         time.Time
	DurationMonths  int
	Guests          int
	MonthlyRate     int64
	Subtotal        int64
	ServiceFee      int64
	DepositAmount   int64
	BalanceDue      int64
	TotalPrice      int64
	Status          string
	SpecialRequests *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
