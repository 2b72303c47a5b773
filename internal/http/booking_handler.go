package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/studentstay/internal/application"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	TransitionBooking(ctx context.Context, params application.TransitionBookingParams) (application.Booking, error)
	GetBooking(ctx context.Context, caller *application.Principal, id string) (application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
}

// BookingHandler serves booking creation, status changes and queries.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// Create handles POST /bookings. A session is optional; without one the guest
// contact fields are required.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	created, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Caller:  callerFromContext(r.Context()),
		Request: req.toApplication(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createBookingResponse{
		Success:   true,
		BookingID: created.ID,
		Booking:   newBookingDTO(created),
	})
}

// Update handles POST /bookings/update.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req updateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updated, err := h.service.TransitionBooking(r.Context(), application.TransitionBookingParams{
		Caller:    callerFromContext(r.Context()),
		BookingID: req.BookingID,
		Target:    req.Status,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Success: true, Booking: newBookingDTO(updated)})
}

// List handles GET /bookings?status=&q=.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	bookings, err := h.service.ListBookings(r.Context(), application.ListBookingsParams{
		Caller: callerFromContext(r.Context()),
		Status: query.Get("status"),
		Search: query.Get("q"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		dtos = append(dtos, newBookingDTO(b))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingListResponse{Success: true, Bookings: dtos})
}

// Get handles GET /bookings/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	found, err := h.service.GetBooking(r.Context(), callerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Success: true, Booking: newBookingDTO(found)})
}

type createBookingRequest struct {
	RoomID          string `json:"room_id"`
	CheckIn         string `json:"check_in"`
	Duration        int    `json:"duration"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	GuestPhone      string `json:"guest_phone"`
}

func (r createBookingRequest) toApplication() application.CreateBookingRequest {
	return application.CreateBookingRequest{
		RoomID:          r.RoomID,
		CheckIn:         r.CheckIn,
		Months:          r.Duration,
		Guests:          r.Guests,
		SpecialRequests: r.SpecialRequests,
		Guest: application.GuestIdentity{
			Name:  r.GuestName,
			Email: r.GuestEmail,
			Phone: r.GuestPhone,
		},
	}
}

type updateBookingRequest struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type bookingDTO struct {
	ID              string `json:"id"`
	RoomID          string `json:"room_id,omitempty"`
	PropertyID      string `json:"property_id"`
	TenantID        string `json:"tenant_id,omitempty"`
	GuestName       string `json:"guest_name,omitempty"`
	GuestEmail      string `json:"guest_email,omitempty"`
	GuestPhone      string `json:"guest_phone,omitempty"`
	CheckIn         string `json:"check_in"`
	DurationMonths  int    `json:"duration_months"`
	Guests          int    `json:"guests"`
	MonthlyRate     int64  `json:"monthly_rate"`
	Subtotal        int64  `json:"subtotal"`
	ServiceFee      int64  `json:"service_fee"`
	Deposit         int64  `json:"deposit_amount"`
	BalanceDue      int64  `json:"balance_due"`
	Total           int64  `json:"total_price"`
	Status          string `json:"status"`
	SpecialRequests string `json:"special_requests,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func newBookingDTO(b application.Booking) bookingDTO {
	dto := bookingDTO{
		ID:              b.ID,
		PropertyID:      b.PropertyID,
		CheckIn:         b.CheckIn.Format(time.DateOnly),
		DurationMonths:  b.DurationMonths,
		Guests:          b.Guests,
		MonthlyRate:     b.MonthlyRate,
		Subtotal:        b.Subtotal,
		ServiceFee:      b.ServiceFee,
		Deposit:         b.Deposit,
		BalanceDue:      b.BalanceDue,
		Total:           b.Total,
		Status:          string(b.Status),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       formatTimestamp(b.CreatedAt),
		UpdatedAt:       formatTimestamp(b.UpdatedAt),
	}
	if b.RoomID != nil {
		dto.RoomID = *b.RoomID
	}
	if b.TenantID != nil {
		dto.TenantID = *b.TenantID
	}
	if b.Guest != nil {
		dto.GuestName, dto.GuestEmail, dto.GuestPhone = b.Guest.Name, b.Guest.Email, b.Guest.Phone
	}
	return dto
}

type createBookingResponse struct {
	Success   bool       `json:"success"`
	BookingID string     `json:"booking_id"`
	Booking   bookingDTO `json:"booking"`
}

type bookingResponse struct {
	Success bool       `json:"success"`
	Booking bookingDTO `json:"booking"`
}

type bookingListResponse struct {
	Success  bool         `json:"success"`
	Bookings []bookingDTO `json:"bookings"`
}
