package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/studentstay/internal/pricing"
)

// CatalogRepository captures the catalog writes used by operator tooling.
type CatalogRepository interface {
	CreateProperty(ctx context.Context, property Property) (Property, error)
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	GetPropertyOwner(ctx context.Context, propertyID string) (string, error)
	SetRoomStatus(ctx context.Context, id string, status, expected RoomStatus) (bool, error)
}

// UserDirectory resolves accounts referenced by other records.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// CatalogService creates properties and rooms on behalf of their landlords.
type CatalogService struct {
	catalog     CatalogRepository
	users       UserDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService constructs a catalog service with the provided dependencies.
func NewCatalogService(catalog CatalogRepository, users UserDirectory, idGenerator func() string, now func() time.Time) *CatalogService {
	return NewCatalogServiceWithLogger(catalog, users, idGenerator, now, nil)
}

// NewCatalogServiceWithLogger constructs a catalog service with a specified logger.
func NewCatalogServiceWithLogger(catalog CatalogRepository, users UserDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{catalog: catalog, users: users, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// CreateProperty stores a property owned by input.LandlordID. Landlords may only
// create properties for themselves.
func (s *CatalogService) CreateProperty(ctx context.Context, principal Principal, input PropertyInput) (property Property, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateProperty", "principal_id", principal.UserID, "landlord_id", input.LandlordID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create property", "property created", "property_id", property.ID)
	}()

	landlordID := strings.TrimSpace(input.LandlordID)
	if err = Authorize(&principal, Action{Resource: ResourceProperty, Operation: OperationCreate, OwnerIDs: []string{landlordID}}); err != nil {
		return
	}

	vErr := &ValidationError{}
	if landlordID == "" {
		vErr.add("landlord_id", "landlord id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		vErr.add("title", "title is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var owner User
	owner, err = s.users.GetUser(ctx, landlordID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if owner.Role != RoleLandlord {
		err = newValidationError("landlord_id", "owner must have the landlord role")
		return
	}

	now := s.now()
	property, err = s.catalog.CreateProperty(ctx, Property{
		ID:         s.idGenerator(),
		LandlordID: landlordID,
		Title:      title,
		Address:    strings.TrimSpace(input.Address),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	err = mapStoreError(err)
	return
}

// CreateRoom adds an available room to a property owned by the caller.
func (s *CatalogService) CreateRoom(ctx context.Context, principal Principal, input RoomInput) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "principal_id", principal.UserID, "property_id", input.PropertyID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create room", "room created", "room_id", room.ID)
	}()

	vErr := &ValidationError{}
	propertyID := strings.TrimSpace(input.PropertyID)
	if propertyID == "" {
		vErr.add("property_id", "property id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}
	switch {
	case input.MonthlyPrice <= 0:
		vErr.add("monthly_price", "monthly price must be positive")
	case input.MonthlyPrice > pricing.MaxMonthlyRate:
		vErr.add("monthly_price", "monthly price is too large")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var owner string
	owner, err = s.catalog.GetPropertyOwner(ctx, propertyID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = Authorize(&principal, Action{Resource: ResourceRoom, Operation: OperationCreate, OwnerIDs: []string{owner}}); err != nil {
		return
	}

	now := s.now()
	room, err = s.catalog.CreateRoom(ctx, Room{
		ID:           s.idGenerator(),
		PropertyID:   propertyID,
		LandlordID:   owner,
		Name:         name,
		MonthlyPrice: input.MonthlyPrice,
		Status:       RoomAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	err = mapStoreError(err)
	return
}

// SetRoomStatus takes a room out of service or returns it to the market. Booked
// rooms are only released through their booking.
func (s *CatalogService) SetRoomStatus(ctx context.Context, principal Principal, roomID string, status RoomStatus) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SetRoomStatus", "principal_id", principal.UserID, "room_id", roomID, "status", status)
	defer func() {
		logOutcome(ctx, logger, err, "failed to set room status", "room status set")
	}()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		err = newValidationError("room_id", "room id is required")
		return
	}
	if status != RoomAvailable && status != RoomMaintenance {
		err = newValidationError("status", "status must be available or maintenance")
		return
	}

	room, err = s.catalog.GetRoom(ctx, roomID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = Authorize(&principal, Action{Resource: ResourceRoom, Operation: OperationUpdate, OwnerIDs: []string{room.LandlordID}}); err != nil {
		return
	}
	if room.Status == RoomBooked {
		err = fmt.Errorf("%w: room is booked", ErrConflict)
		return
	}
	if room.Status == status {
		return
	}

	var changed bool
	changed, err = s.catalog.SetRoomStatus(ctx, roomID, status, room.Status)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if !changed {
		err = ErrConflict
		return
	}
	room.Status = status
	room.UpdatedAt = s.now()
	return
}
