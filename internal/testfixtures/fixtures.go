package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/studentstay/internal/application"
	"github.com/example/studentstay/internal/persistence"
)

var (
	userCounter     uint64
	propertyCounter uint64
	roomCounter     uint64
)

// Monday morning; tomorrow is a valid check-in date.
var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// FastPasswordParams keeps argon2id hashing cheap in tests.
var FastPasswordParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic account that can be stored or turned into a principal.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	Password     string
	PasswordHash string
	Role         application.Role
	IsVerified   bool
	IsLocked     bool
	CreatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a verified tenant with a unique id and email.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleTenant,
		IsVerified:   true,
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated id.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserRole sets the account role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserPassword stores an argon2id hash of password. It panics if hashing fails.
func WithUserPassword(password string) UserOption {
	return func(f *UserFixture) {
		hash, err := application.CreatePasswordHash(password, FastPasswordParams)
		if err != nil {
			panic(fmt.Sprintf("hash fixture password: %v", err))
		}
		f.Password = password
		f.PasswordHash = hash
	}
}

// WithUserPasswordHash stores hash verbatim, e.g. a legacy bcrypt hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// Unverified marks the account as awaiting verification.
func Unverified() UserOption {
	return func(f *UserFixture) {
		f.IsVerified = false
	}
}

// Locked marks the account as locked by an administrator.
func Locked() UserOption {
	return func(f *UserFixture) {
		f.IsLocked = true
	}
}

// Principal returns the caller identity for the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a storage record.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		Role:         string(f.Role),
		IsVerified:   f.IsVerified,
		IsLocked:     f.IsLocked,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// --------------------------- Property fixtures ---------------------------

// PropertyFixture is a deterministic listing owned by LandlordID.
type PropertyFixture struct {
	ID         string
	LandlordID string
	Title      string
	Address    string
	CreatedAt  time.Time
}

// PropertyOption configures the generated property fixture.
type PropertyOption func(*PropertyFixture)

// NewPropertyFixture returns a property owned by landlordID.
func NewPropertyFixture(landlordID string, opts ...PropertyOption) PropertyFixture {
	idx := atomic.AddUint64(&propertyCounter, 1)
	fixture := PropertyFixture{
		ID:         fmt.Sprintf("property-%03d", idx),
		LandlordID: landlordID,
		Title:      fmt.Sprintf("Student House %03d", idx),
		Address:    fmt.Sprintf("%d College Road", idx),
		CreatedAt:  referenceTime.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPropertyID overrides the generated id.
func WithPropertyID(id string) PropertyOption {
	return func(f *PropertyFixture) {
		f.ID = id
	}
}

// WithPropertyTitle overrides the generated title.
func WithPropertyTitle(title string) PropertyOption {
	return func(f *PropertyFixture) {
		f.Title = title
	}
}

// Persistence returns the fixture as a storage record.
func (f PropertyFixture) Persistence() persistence.Property {
	return persistence.Property{
		ID:         f.ID,
		LandlordID: f.LandlordID,
		Title:      f.Title,
		Address:    f.Address,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.CreatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture is a deterministic room inside a property.
type RoomFixture struct {
	ID           string
	PropertyID   string
	LandlordID   string
	Name         string
	MonthlyPrice int64
	Status       application.RoomStatus
	CreatedAt    time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns an available room priced at 4500 per month.
func NewRoomFixture(property PropertyFixture, opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		ID:           fmt.Sprintf("room-%03d", idx),
		PropertyID:   property.ID,
		LandlordID:   property.LandlordID,
		Name:         fmt.Sprintf("Room %d", idx),
		MonthlyPrice: 4500,
		Status:       application.RoomAvailable,
		CreatedAt:    property.CreatedAt,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated id.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomPrice sets the monthly price in whole currency units.
func WithRoomPrice(price int64) RoomOption {
	return func(f *RoomFixture) {
		f.MonthlyPrice = price
	}
}

// WithRoomStatus sets the initial availability.
func WithRoomStatus(status application.RoomStatus) RoomOption {
	return func(f *RoomFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a storage record.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:           f.ID,
		PropertyID:   f.PropertyID,
		LandlordID:   f.LandlordID,
		Name:         f.Name,
		MonthlyPrice: f.MonthlyPrice,
		Status:       string(f.Status),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}
