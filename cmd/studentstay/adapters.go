package main

import (
	"context"
	"strings"
	"time"

	"github.com/example/studentstay/internal/application"
	"github.com/example/studentstay/internal/booking"
	"github.com/example/studentstay/internal/persistence"
)

// userStoreAdapter serves both the auth service's credential lookups and the
// account administration repository.
type userStoreAdapter struct {
	repo persistence.UserRepository
}

func newUserStoreAdapter(repo persistence.UserRepository) *userStoreAdapter {
	return &userStoreAdapter{repo: repo}
}

func (a *userStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *userStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userStoreAdapter) RecordFailedLogin(ctx context.Context, userID string, at time.Time, maxAttempts int, lockUntil time.Time) (application.LoginAttempts, error) {
	state, err := a.repo.RecordFailedLogin(ctx, userID, at, maxAttempts, lockUntil)
	if err != nil {
		return application.LoginAttempts{}, err
	}
	return application.LoginAttempts{Attempts: state.Attempts, LockedUntil: cloneTime(state.LockedUntil)}, nil
}

func (a *userStoreAdapter) ResetLoginAttempts(ctx context.Context, userID string, loginAt *time.Time) error {
	return a.repo.ResetLoginAttempts(ctx, userID, loginAt)
}

func (a *userStoreAdapter) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	current, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	current.PasswordHash = hash
	current.UpdatedAt = time.Now().UTC()
	return a.repo.UpdateUser(ctx, current)
}

func (a *userStoreAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userStoreAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userStoreAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	stored, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(stored))
	for _, model := range stored {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, persistence.Session(session))
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) ExtendSession(ctx context.Context, token string, expiresAt time.Time) (application.Session, error) {
	stored, err := a.repo.ExtendSession(ctx, token, expiresAt)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteSession(ctx context.Context, token string) error {
	return a.repo.DeleteSession(ctx, token)
}

func (a *sessionRepositoryAdapter) DeleteSessionsForUser(ctx context.Context, userID string) (int64, error) {
	return a.repo.DeleteSessionsForUser(ctx, userID)
}

func (a *sessionRepositoryAdapter) ListSessionsForUser(ctx context.Context, userID string) ([]application.Session, error) {
	stored, err := a.repo.ListSessionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]application.Session, 0, len(stored))
	for _, model := range stored {
		sessions = append(sessions, application.Session(model))
	}
	return sessions, nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

// catalogAdapter serves the booking service's room lookups and the catalog service.
type catalogAdapter struct {
	repo persistence.CatalogRepository
}

func newCatalogAdapter(repo persistence.CatalogRepository) *catalogAdapter {
	return &catalogAdapter{repo: repo}
}

func (a *catalogAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *catalogAdapter) CreateProperty(ctx context.Context, property application.Property) (application.Property, error) {
	if err := a.repo.CreateProperty(ctx, persistence.Property(property)); err != nil {
		return application.Property{}, err
	}
	return property, nil
}

func (a *catalogAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	model := persistence.Room{
		ID:           room.ID,
		PropertyID:   room.PropertyID,
		Name:         room.Name,
		MonthlyPrice: room.MonthlyPrice,
		Status:       string(room.Status),
		CreatedAt:    room.CreatedAt,
		UpdatedAt:    room.UpdatedAt,
	}
	if err := a.repo.CreateRoom(ctx, model); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *catalogAdapter) GetPropertyOwner(ctx context.Context, propertyID string) (string, error) {
	return a.repo.GetPropertyOwner(ctx, propertyID)
}

func (a *catalogAdapter) SetRoomStatus(ctx context.Context, id string, status, expected application.RoomStatus) (bool, error) {
	return a.repo.SetRoomStatus(ctx, id, string(status), string(expected))
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBookingReservingRoom(ctx context.Context, b application.Booking) (application.Booking, error) {
	stored, err := a.repo.CreateBookingReservingRoom(ctx, toPersistenceBooking(b))
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) TransitionBooking(ctx context.Context, transition application.BookingTransition) (application.Booking, error) {
	stored, err := a.repo.TransitionBooking(ctx, persistence.BookingTransition{
		BookingID:   transition.BookingID,
		From:        string(transition.From),
		To:          string(transition.To),
		ReleaseRoom: transition.ReleaseRoom,
		At:          transition.At,
	})
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingFilter) ([]application.Booking, error) {
	stored, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		TenantID:   filter.TenantID,
		LandlordID: filter.LandlordID,
		Status:     string(filter.Status),
		Search:     filter.Search,
	})
	if err != nil {
		return nil, err
	}
	bookings := make([]application.Booking, 0, len(stored))
	for _, model := range stored {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:            model.ID,
		Email:         model.Email,
		DisplayName:   model.DisplayName,
		Role:          application.Role(model.Role),
		IsVerified:    model.IsVerified,
		IsLocked:      model.IsLocked,
		LockedUntil:   cloneTime(model.LockedUntil),
		LoginAttempts: model.LoginAttempts,
		LastAttemptAt: cloneTime(model.LastAttemptAt),
		LastLoginAt:   cloneTime(model.LastLoginAt),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		PasswordHash:  passwordHash,
		Role:          string(user.Role),
		IsVerified:    user.IsVerified,
		IsLocked:      user.IsLocked,
		LockedUntil:   cloneTime(user.LockedUntil),
		LoginAttempts: user.LoginAttempts,
		LastAttemptAt: cloneTime(user.LastAttemptAt),
		LastLoginAt:   cloneTime(user.LastLoginAt),
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:           model.ID,
		PropertyID:   model.PropertyID,
		LandlordID:   model.LandlordID,
		Name:         model.Name,
		MonthlyPrice: model.MonthlyPrice,
		Status:       application.RoomStatus(model.Status),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	var guest *application.GuestIdentity
	if model.GuestName != nil || model.GuestEmail != nil || model.GuestPhone != nil {
		guest = &application.GuestIdentity{
			Name:  derefString(model.GuestName),
			Email: derefString(model.GuestEmail),
			Phone: derefString(model.GuestPhone),
		}
	}
	return application.Booking{
		ID:              model.ID,
		RoomID:          cloneString(model.RoomID),
		PropertyID:      model.PropertyID,
		LandlordID:      model.LandlordID,
		TenantID:        cloneString(model.TenantID),
		Guest:           guest,
		CheckIn:         model.CheckIn,
		DurationMonths:  model.DurationMonths,
		Guests:          model.Guests,
		MonthlyRate:     model.MonthlyRate,
		Subtotal:        model.Subtotal,
		ServiceFee:      model.ServiceFee,
		Deposit:         model.DepositAmount,
		BalanceDue:      model.BalanceDue,
		Total:           model.TotalPrice,
		Status:          booking.Status(model.Status),
		SpecialRequests: derefString(model.SpecialRequests),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceBooking(b application.Booking) persistence.Booking {
	model := persistence.Booking{
		ID:              b.ID,
		RoomID:          cloneString(b.RoomID),
		PropertyID:      b.PropertyID,
		LandlordID:      b.LandlordID,
		TenantID:        cloneString(b.TenantID),
		CheckIn:         b.CheckIn,
		DurationMonths:  b.DurationMonths,
		Guests:          b.Guests,
		MonthlyRate:     b.MonthlyRate,
		Subtotal:        b.Subtotal,
		ServiceFee:      b.ServiceFee,
		DepositAmount:   b.Deposit,
		BalanceDue:      b.BalanceDue,
		TotalPrice:      b.Total,
		Status:          string(b.Status),
		SpecialRequests: optionalString(b.SpecialRequests),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Guest != nil {
		model.GuestName = optionalString(b.Guest.Name)
		model.GuestEmail = optionalString(b.Guest.Email)
		model.GuestPhone = optionalString(b.Guest.Phone)
	}
	return model
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
