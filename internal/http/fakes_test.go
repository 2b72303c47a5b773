package http

import (
	"context"
	"sync"
	"time"

	"github.com/example/studentstay/internal/application"
)

type fakeSessionValidator struct {
	mu        sync.Mutex
	principal application.Principal
	err       error
	tokens    []string
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return f.principal, f.err
}

// tokenValidator resolves a fixed token table.
type tokenValidator map[string]application.Principal

func (v tokenValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	principal, ok := v[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}

type fakeAuthService struct {
	result        application.AuthenticateResult
	err           error
	params        application.AuthenticateParams
	revoked       []string
	refreshed     application.Session
	sessions      []application.Session
	revokedUserID string
	removed       int64
}

func (f *fakeAuthService) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	f.params = params
	return f.result, f.err
}

func (f *fakeAuthService) RevokeSession(ctx context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return f.err
}

func (f *fakeAuthService) RefreshSession(ctx context.Context, token string) (application.Session, error) {
	return f.refreshed, f.err
}

func (f *fakeAuthService) ListSessions(ctx context.Context, principal application.Principal) ([]application.Session, error) {
	return f.sessions, f.err
}

func (f *fakeAuthService) RevokeUserSessions(ctx context.Context, principal application.Principal, userID string) (int64, error) {
	f.revokedUserID = userID
	return f.removed, f.err
}

type fakeBookingService struct {
	created      application.Booking
	err          error
	createParams application.CreateBookingParams
	transition   application.TransitionBookingParams
	listParams   application.ListBookingsParams
	getCaller    *application.Principal
	getID        string
	listed       []application.Booking
}

func (f *fakeBookingService) CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
	f.createParams = params
	return f.created, f.err
}

func (f *fakeBookingService) TransitionBooking(ctx context.Context, params application.TransitionBookingParams) (application.Booking, error) {
	f.transition = params
	return f.created, f.err
}

func (f *fakeBookingService) GetBooking(ctx context.Context, caller *application.Principal, id string) (application.Booking, error) {
	f.getCaller, f.getID = caller, id
	return f.created, f.err
}

func (f *fakeBookingService) ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error) {
	f.listParams = params
	return f.listed, f.err
}

func sampleBooking() application.Booking {
	room := "room-1"
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return application.Booking{
		ID:             "booking-1",
		RoomID:         &room,
		PropertyID:     "prop-1",
		LandlordID:     "landlord-1",
		Guest:          &application.GuestIdentity{Name: "Ada", Email: "ada@example.com"},
		CheckIn:        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DurationMonths: 3,
		Guests:         1,
		MonthlyRate:    4500,
		Subtotal:       13500,
		ServiceFee:     675,
		Deposit:        4050,
		BalanceDue:     10125,
		Total:          14175,
		Status:         "pending",
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}
