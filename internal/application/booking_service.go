package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/studentstay/internal/booking"
	"github.com/example/studentstay/internal/pricing"
)

const (
	// MaxGuests caps the number of occupants on one booking.
	MaxGuests = 10
	// MaxSpecialRequestsLength caps the free-text note, in characters.
	MaxSpecialRequestsLength = 1000

	checkInLayout = "2006-01-02"
)

// RoomCatalog resolves rooms together with their owning landlord.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
}

// BookingRepository persists bookings. CreateBookingReservingRoom must flip the
// room from available to booked in the same transaction as the insert.
type BookingRepository interface {
	CreateBookingReservingRoom(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	TransitionBooking(ctx context.Context, transition BookingTransition) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// BookingService owns booking creation and the status workflow.
type BookingService struct {
	rooms       RoomCatalog
	bookings    BookingRepository
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	recorder    Recorder
	logger      *slog.Logger
}

// NewBookingService constructs a booking service. Check-in dates are interpreted
// in location; nil means UTC.
func NewBookingService(rooms RoomCatalog, bookings BookingRepository, idGenerator func() string, now func() time.Time, location *time.Location) *BookingService {
	return NewBookingServiceWithLogger(rooms, bookings, idGenerator, now, location, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(rooms RoomCatalog, bookings BookingRepository, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = GenerateSessionToken
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &BookingService{
		rooms:       rooms,
		bookings:    bookings,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		recorder:    nopRecorder{},
		logger:      defaultLogger(logger),
	}
}

// WithRecorder attaches a metrics recorder and returns the service.
func (s *BookingService) WithRecorder(recorder Recorder) *BookingService {
	if s != nil {
		s.recorder = defaultRecorder(recorder)
	}
	return s
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking prices and stores a pending booking for a tenant or a guest.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (created Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.rooms == nil || s.bookings == nil {
		err = fmt.Errorf("booking stores not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", callerID(params.Caller),
		"room_id", params.Request.RoomID,
	)
	defer func() {
		if errors.Is(err, ErrConflict) {
			s.recorder.BookingRejected("room_unavailable")
		}
		logOutcome(ctx, logger, err, "failed to create booking", "booking created",
			"booking_id", created.ID, "total", created.Total)
	}()

	// The gate runs before validation so that a landlord is refused whatever the payload holds.
	if err = Authorize(params.Caller, Action{Resource: ResourceBooking, Operation: OperationCreate}); err != nil {
		return
	}

	var req validatedBookingRequest
	req, err = s.validateCreateRequest(params.Caller, params.Request)
	if err != nil {
		return
	}

	var room Room
	room, err = s.rooms.GetRoom(ctx, req.roomID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if room.Status != RoomAvailable {
		err = fmt.Errorf("%w: room %s is %s", ErrConflict, room.ID, room.Status)
		return
	}

	quote := pricing.Price(room.MonthlyPrice, req.months)
	now := s.now()
	roomID := room.ID
	candidate := Booking{
		ID:              s.idGenerator(),
		RoomID:          &roomID,
		PropertyID:      room.PropertyID,
		LandlordID:      room.LandlordID,
		CheckIn:         req.checkIn,
		DurationMonths:  quote.Months,
		Guests:          req.guests,
		MonthlyRate:     quote.MonthlyRate,
		Subtotal:        quote.Subtotal,
		ServiceFee:      quote.ServiceFee,
		Deposit:         quote.Deposit,
		BalanceDue:      quote.BalanceDue,
		Total:           quote.Total,
		Status:          booking.StatusPending,
		SpecialRequests: req.specialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	kind := "guest"
	if params.Caller != nil {
		tenantID := params.Caller.UserID
		candidate.TenantID = &tenantID
		kind = "tenant"
	} else {
		guest := req.guest
		candidate.Guest = &guest
	}

	created, err = s.bookings.CreateBookingReservingRoom(ctx, candidate)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	s.recorder.BookingCreated(kind)
	return
}

type validatedBookingRequest struct {
	roomID          string
	checkIn         time.Time
	months          int
	guests          int
	specialRequests string
	guest           GuestIdentity
}

func (s *BookingService) validateCreateRequest(caller *Principal, req CreateBookingRequest) (validatedBookingRequest, error) {
	vErr := &ValidationError{}
	out := validatedBookingRequest{
		roomID:          strings.TrimSpace(req.RoomID),
		months:          pricing.ClampMonths(req.Months),
		guests:          req.Guests,
		specialRequests: strings.TrimSpace(req.SpecialRequests),
	}

	if out.roomID == "" {
		vErr.add("room_id", "room id is required")
	}

	checkIn := strings.TrimSpace(req.CheckIn)
	if checkIn == "" {
		vErr.add("check_in", "check-in date is required")
	} else if day, err := time.ParseInLocation(checkInLayout, checkIn, s.location); err != nil {
		vErr.add("check_in", "check-in date must use YYYY-MM-DD")
	} else if day.Before(s.tomorrow()) {
		vErr.add("check_in", "check-in date must be after today")
	} else {
		out.checkIn = day
	}

	if out.guests == 0 {
		out.guests = 1
	}
	if out.guests < 1 || out.guests > MaxGuests {
		vErr.add("guests", fmt.Sprintf("guests must be between 1 and %d", MaxGuests))
	}

	if utf8.RuneCountInString(out.specialRequests) > MaxSpecialRequestsLength {
		vErr.add("special_requests", fmt.Sprintf("special requests must be at most %d characters", MaxSpecialRequestsLength))
	}

	if caller == nil {
		out.guest = GuestIdentity{
			Name:  strings.TrimSpace(req.Guest.Name),
			Email: strings.ToLower(strings.TrimSpace(req.Guest.Email)),
			Phone: strings.TrimSpace(req.Guest.Phone),
		}
		if out.guest.Name == "" {
			vErr.add("guest_name", "guest name is required")
		}
		if out.guest.Email == "" {
			vErr.add("guest_email", "guest email is required")
		} else if addr, err := mail.ParseAddress(out.guest.Email); err != nil || addr.Address != out.guest.Email {
			vErr.add("guest_email", "guest email is invalid")
		}
		if out.guest.Phone != "" && !validPhone(out.guest.Phone) {
			vErr.add("guest_phone", "guest phone is invalid")
		}
	}

	if vErr.HasErrors() {
		return validatedBookingRequest{}, vErr
	}
	return out, nil
}

// tomorrow returns the start of the next calendar day in the service location.
func (s *BookingService) tomorrow() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.location)
}

func validPhone(phone string) bool {
	if len(phone) > 32 {
		return false
	}
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 6
}

// TransitionBooking moves a booking along the status graph on behalf of an
// entitled caller. Rejected and cancelled bookings release their room.
func (s *BookingService) TransitionBooking(ctx context.Context, params TransitionBookingParams) (updated Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "TransitionBooking",
		"principal_id", callerID(params.Caller),
		"booking_id", params.BookingID,
		"target", params.Target,
	)
	var from booking.Status
	defer func() {
		logOutcome(ctx, logger, err, "failed to transition booking", "booking transitioned",
			"from", from, "to", updated.Status)
	}()

	target, parseErr := booking.ParseStatus(params.Target)
	if parseErr != nil {
		err = newValidationError("status", "status is not a known booking status")
		return
	}
	if strings.TrimSpace(params.BookingID) == "" {
		err = newValidationError("booking_id", "booking id is required")
		return
	}

	var current Booking
	current, err = s.bookings.GetBooking(ctx, strings.TrimSpace(params.BookingID))
	if err != nil {
		err = mapStoreError(err)
		return
	}
	from = current.Status

	if err = Authorize(params.Caller, transitionAction(current, target)); err != nil {
		return
	}

	if !booking.CanTransition(current.Status, target) {
		err = fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
		return
	}

	updated, err = s.bookings.TransitionBooking(ctx, BookingTransition{
		BookingID:   current.ID,
		From:        current.Status,
		To:          target,
		ReleaseRoom: target.ReleasesRoom(),
		At:          s.now(),
	})
	if err != nil {
		err = mapStoreError(err)
		return
	}
	s.recorder.BookingTransitioned(string(from), string(target))
	return
}

// transitionAction maps a target status onto the gate action and its owners:
// the property's landlord decides, the booking's tenant may cancel.
func transitionAction(current Booking, target booking.Status) Action {
	action := Action{Resource: ResourceBooking, OwnerIDs: []string{current.LandlordID}}
	switch target {
	case booking.StatusApproved:
		action.Operation = OperationApprove
	case booking.StatusRejected:
		action.Operation = OperationReject
	case booking.StatusCompleted:
		action.Operation = OperationComplete
	case booking.StatusCancelled:
		action.Operation = OperationCancel
		action.OwnerIDs = nil
		if current.TenantID != nil {
			action.OwnerIDs = []string{*current.TenantID}
		}
	default:
		action.Operation = OperationUpdate
	}
	return action
}

// GetBooking returns a booking visible to the caller: its tenant, the property's
// landlord or an admin.
func (s *BookingService) GetBooking(ctx context.Context, caller *Principal, id string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if caller == nil {
		return Booking{}, ErrUnauthenticated
	}
	if strings.TrimSpace(id) == "" {
		return Booking{}, newValidationError("booking_id", "booking id is required")
	}

	found, err := s.bookings.GetBooking(ctx, strings.TrimSpace(id))
	if err != nil {
		return Booking{}, mapStoreError(err)
	}

	owners := []string{found.LandlordID}
	if found.TenantID != nil {
		owners = append(owners, *found.TenantID)
	}
	if err := Authorize(caller, Action{Resource: ResourceBooking, Operation: OperationView, OwnerIDs: owners}); err != nil {
		return Booking{}, err
	}
	return found, nil
}

// ListBookings returns the bookings in the caller's scope: tenants see their own,
// landlords those on their properties, admins everything.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if params.Caller == nil || params.Caller.UserID == "" {
		return nil, ErrUnauthenticated
	}

	filter := BookingFilter{Search: strings.TrimSpace(params.Search)}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := booking.ParseStatus(raw)
		if err != nil {
			return nil, newValidationError("status", "status is not a known booking status")
		}
		filter.Status = status
	}

	switch params.Caller.Role {
	case RoleAdmin:
	case RoleLandlord:
		filter.LandlordID = params.Caller.UserID
	case RoleTenant:
		filter.TenantID = params.Caller.UserID
	default:
		return nil, ErrForbidden
	}

	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return bookings, nil
}

func callerID(caller *Principal) string {
	if caller == nil {
		return ""
	}
	return caller.UserID
}
