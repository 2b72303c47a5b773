package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/studentstay/internal/persistence"
)

const bookingSelect = `
	SELECT b.id, b.room_id, b.property_id, p.landlord_id, b.tenant_id, b.guest_name, b.guest_email, b.guest_phone,
		b.check_in, b.duration_months, b.guests, b.monthly_rate, b.subtotal, b.service_fee, b.deposit_amount,
		b.balance_due, b.total_price, b.status, b.special_requests, b.created_at, b.updated_at
	FROM bookings b
	JOIN properties p ON p.id = b.property_id
`

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateBookingReservingRoom flips the room to booked and inserts the booking in one
// transaction. The flip is conditional on the room still being available, so of two
// concurrent callers only one sees an affected row.
func (r *BookingRepository) CreateBookingReservingRoom(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	if booking.ID == "" || booking.PropertyID == "" {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}
	if booking.Status == "" {
		booking.Status = "pending"
	}
	created, updated := stamps(booking.CreatedAt, booking.UpdatedAt)
	booking.CreatedAt, booking.UpdatedAt = created, updated

	var stored persistence.Booking
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if booking.RoomID != nil {
			if err := r.reserveRoom(ctx, tx, *booking.RoomID, booking.UpdatedAt); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (
				id, room_id, property_id, tenant_id, guest_name, guest_email, guest_phone,
				check_in, duration_months, guests, monthly_rate, subtotal, service_fee, deposit_amount,
				balance_due, total_price, status, special_requests, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			booking.ID,
			nullString(booking.RoomID),
			booking.PropertyID,
			nullString(booking.TenantID),
			nullString(booking.GuestName),
			nullString(booking.GuestEmail),
			nullString(booking.GuestPhone),
			booking.CheckIn.Format(dateLayout),
			booking.DurationMonths,
			booking.Guests,
			booking.MonthlyRate,
			booking.Subtotal,
			booking.ServiceFee,
			booking.DepositAmount,
			booking.BalanceDue,
			booking.TotalPrice,
			booking.Status,
			nullString(booking.SpecialRequests),
			formatTime(booking.CreatedAt),
			formatTime(booking.UpdatedAt),
		)
		if err != nil {
			mapped := r.mapper.MapError(err)
			// The partial unique index on live bookings is the last line against double booking.
			if errors.Is(mapped, persistence.ErrDuplicate) && strings.Contains(err.Error(), "bookings.room_id") {
				return persistence.ErrStaleState
			}
			return mapped
		}

		stored, err = r.getBooking(ctx, tx, booking.ID)
		return err
	})
	if err != nil {
		return persistence.Booking{}, err
	}
	return stored, nil
}

func (r *BookingRepository) reserveRoom(ctx context.Context, tx *sql.Tx, roomID string, at time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE rooms SET status = 'booked', updated_at = ?
		WHERE id = ? AND status = 'available'
	`, formatTime(at), roomID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, roomID).Scan(&exists); err != nil {
		return r.mapper.MapError(err)
	}
	return persistence.ErrStaleState
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return r.getBooking(ctx, r.pool.DB(), id)
}

// TransitionBooking updates the status only while it still equals transition.From.
// When ReleaseRoom is set the booked room returns to available in the same transaction.
func (r *BookingRepository) TransitionBooking(ctx context.Context, transition persistence.BookingTransition) (persistence.Booking, error) {
	if transition.BookingID == "" || transition.To == "" {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}
	at := transition.At
	if at.IsZero() {
		at = time.Now()
	}

	var stored persistence.Booking
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var roomID sql.NullString
		err := tx.QueryRowContext(ctx, `
			UPDATE bookings SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?
			RETURNING room_id
		`, transition.To, formatTime(at), transition.BookingID, transition.From).Scan(&roomID)
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.getBooking(ctx, tx, transition.BookingID); getErr != nil {
				return getErr
			}
			return persistence.ErrStaleState
		}
		if err != nil {
			return r.mapper.MapError(err)
		}

		if transition.ReleaseRoom && roomID.Valid {
			if _, err := tx.ExecContext(ctx, `
				UPDATE rooms SET status = 'available', updated_at = ?
				WHERE id = ? AND status = 'booked'
			`, formatTime(at), roomID.String); err != nil {
				return r.mapper.MapError(err)
			}
		}

		stored, err = r.getBooking(ctx, tx, transition.BookingID)
		return err
	})
	if err != nil {
		return persistence.Booking{}, err
	}
	return stored, nil
}

// ListBookings returns bookings matching filter, newest first. Search matches the
// booking id, guest contact, property title and room name.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.TenantID != "" {
		clauses = append(clauses, "b.tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.LandlordID != "" {
		clauses = append(clauses, "p.landlord_id = ?")
		args = append(args, filter.LandlordID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "b.status = ?")
		args = append(args, filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		clauses = append(clauses, `(
			LOWER(b.id) LIKE ? ESCAPE '\' OR
			LOWER(COALESCE(b.guest_name, '')) LIKE ? ESCAPE '\' OR
			LOWER(COALESCE(b.guest_email, '')) LIKE ? ESCAPE '\' OR
			LOWER(p.title) LIKE ? ESCAPE '\' OR
			LOWER(COALESCE((SELECT name FROM rooms WHERE id = b.room_id), '')) LIKE ? ESCAPE '\'
		)`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}

	query := bookingSelect
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY b.created_at DESC, b.id DESC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *BookingRepository) getBooking(ctx context.Context, q queryRower, id string) (persistence.Booking, error) {
	return r.scanBooking(q.QueryRowContext(ctx, bookingSelect+" WHERE b.id = ?", id))
}

func (r *BookingRepository) scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking                                             persistence.Booking
		roomID, tenantID, guestName, guestEmail, guestPhone sql.NullString
		specialRequests                                     sql.NullString
		checkIn, createdAt, updatedAt                       string
	)

	err := row.Scan(
		&booking.ID,
		&roomID,
		&booking.PropertyID,
		&booking.LandlordID,
		&tenantID,
		&guestName,
		&guestEmail,
		&guestPhone,
		&checkIn,
		&booking.DurationMonths,
		&booking.Guests,
		&booking.MonthlyRate,
		&booking.Subtotal,
		&booking.ServiceFee,
		&booking.DepositAmount,
		&booking.BalanceDue,
		&booking.TotalPrice,
		&booking.Status,
		&specialRequests,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}

	booking.RoomID = stringPtr(roomID)
	booking.TenantID = stringPtr(tenantID)
	booking.GuestName = stringPtr(guestName)
	booking.GuestEmail = stringPtr(guestEmail)
	booking.GuestPhone = stringPtr(guestPhone)
	booking.SpecialRequests = stringPtr(specialRequests)

	if booking.CheckIn, err = time.Parse(dateLayout, checkIn); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse check-in %q: %w", checkIn, err)
	}
	if booking.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
