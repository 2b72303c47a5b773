package application

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/studentstay/internal/persistence"
)

// memoryStore is an in-memory implementation of every repository interface the
// services consume. Conditional writes happen under one mutex so that it has the
// same atomicity guarantees as the SQLite store.
type memoryStore struct {
	mu         sync.Mutex
	users      map[string]User
	hashes     map[string]string
	sessions   map[string]Session
	properties map[string]Property
	rooms      map[string]Room
	bookings   map[string]Booking

	failNext error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:      map[string]User{},
		hashes:     map[string]string{},
		sessions:   map[string]Session{},
		properties: map[string]Property{},
		rooms:      map[string]Room{},
		bookings:   map[string]Booking{},
	}
}

func (m *memoryStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memoryStore) addUser(user User, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	m.hashes[user.ID] = hash
}

func (m *memoryStore) addRoom(room Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.properties[room.PropertyID]; !ok {
		m.properties[room.PropertyID] = Property{ID: room.PropertyID, LandlordID: room.LandlordID, Title: "Property " + room.PropertyID}
	}
	m.rooms[room.ID] = room
}

func (m *memoryStore) roomStatus(id string) RoomStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[id].Status
}

func (m *memoryStore) sessionCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			count++
		}
	}
	return count
}

// CredentialStore / UserRepository / UserDirectory

func (m *memoryStore) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return UserCredentials{}, err
	}
	for id, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return UserCredentials{User: user, PasswordHash: m.hashes[id]}, nil
		}
	}
	return UserCredentials{}, persistence.ErrNotFound
}

func (m *memoryStore) GetUser(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (m *memoryStore) CreateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return User{}, persistence.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	m.hashes[user.ID] = passwordHash
	return user, nil
}

func (m *memoryStore) UpdateUser(ctx context.Context, user User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return User{}, persistence.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryStore) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[userID] = hash
	return nil
}

func (m *memoryStore) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, user)
	}
	return out, nil
}

func (m *memoryStore) RecordFailedLogin(ctx context.Context, userID string, at time.Time, maxAttempts int, lockUntil time.Time) (LoginAttempts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return LoginAttempts{}, persistence.ErrNotFound
	}
	user.LoginAttempts++
	stamp := at
	user.LastAttemptAt = &stamp
	if user.LoginAttempts >= maxAttempts {
		until := lockUntil
		user.LockedUntil = &until
	}
	m.users[userID] = user
	return LoginAttempts{Attempts: user.LoginAttempts, LockedUntil: user.LockedUntil}, nil
}

func (m *memoryStore) ResetLoginAttempts(ctx context.Context, userID string, loginAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return persistence.ErrNotFound
	}
	user.LoginAttempts = 0
	user.LockedUntil = nil
	if loginAt != nil {
		stamp := *loginAt
		user.LastLoginAt = &stamp
	}
	m.users[userID] = user
	return nil
}

// SessionRepository

func (m *memoryStore) CreateSession(ctx context.Context, session Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return Session{}, err
	}
	if _, exists := m.sessions[session.Token]; exists {
		return Session{}, persistence.ErrDuplicate
	}
	m.sessions[session.Token] = session
	return session, nil
}

func (m *memoryStore) GetSession(ctx context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (m *memoryStore) ExtendSession(ctx context.Context, token string, expiresAt time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	session.ExpiresAt = expiresAt
	m.sessions[token] = session
	return session, nil
}

func (m *memoryStore) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.sessions, token)
	return nil
}

func (m *memoryStore) DeleteSessionsForUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for token, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (m *memoryStore) ListSessionsForUser(ctx context.Context, userID string) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, session := range m.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(m.sessions, token)
		}
	}
	return nil
}

// RoomCatalog / CatalogRepository

func (m *memoryStore) GetRoom(ctx context.Context, id string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (m *memoryStore) CreateProperty(ctx context.Context, property Property) (Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[property.ID] = property
	return property, nil
}

func (m *memoryStore) CreateRoom(ctx context.Context, room Room) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.properties[room.PropertyID]; !ok {
		return Room{}, persistence.ErrForeignKeyViolation
	}
	m.rooms[room.ID] = room
	return room, nil
}

func (m *memoryStore) SetRoomStatus(ctx context.Context, id string, status, expected RoomStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok || (expected != "" && room.Status != expected) {
		return false, nil
	}
	room.Status = status
	m.rooms[id] = room
	return true, nil
}

func (m *memoryStore) GetPropertyOwner(ctx context.Context, propertyID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	property, ok := m.properties[propertyID]
	if !ok {
		return "", persistence.ErrNotFound
	}
	return property.LandlordID, nil
}

// BookingRepository

func (m *memoryStore) CreateBookingReservingRoom(ctx context.Context, b Booking) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.RoomID != nil {
		room, ok := m.rooms[*b.RoomID]
		if !ok {
			return Booking{}, persistence.ErrNotFound
		}
		if room.Status != RoomAvailable {
			return Booking{}, persistence.ErrStaleState
		}
		room.Status = RoomBooked
		m.rooms[room.ID] = room
	}
	m.bookings[b.ID] = b
	return b, nil
}

func (m *memoryStore) GetBooking(ctx context.Context, id string) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	return b, nil
}

func (m *memoryStore) TransitionBooking(ctx context.Context, t BookingTransition) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[t.BookingID]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	if b.Status != t.From {
		return Booking{}, persistence.ErrStaleState
	}
	b.Status = t.To
	b.UpdatedAt = t.At
	m.bookings[b.ID] = b
	if t.ReleaseRoom && b.RoomID != nil {
		if room, ok := m.rooms[*b.RoomID]; ok && room.Status == RoomBooked {
			room.Status = RoomAvailable
			m.rooms[room.ID] = room
		}
	}
	return b, nil
}

func (m *memoryStore) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if filter.TenantID != "" && (b.TenantID == nil || *b.TenantID != filter.TenantID) {
			continue
		}
		if filter.LandlordID != "" && b.LandlordID != filter.LandlordID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(b.ID), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// recorderStub captures metric events.
type recorderStub struct {
	mu          sync.Mutex
	logins      []string
	revoked     int
	created     []string
	rejected    []string
	transitions []string
}

func (r *recorderStub) LoginAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, outcome)
}

func (r *recorderStub) SessionRevoked(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked += count
}

func (r *recorderStub) BookingCreated(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, kind)
}

func (r *recorderStub) BookingRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, reason)
}

func (r *recorderStub) BookingTransitioned(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from+"->"+to)
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// sequence returns a generator of prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
