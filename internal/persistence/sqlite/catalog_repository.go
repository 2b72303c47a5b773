package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/studentstay/internal/persistence"
)

// CatalogRepository implements persistence.CatalogRepository using SQLite.
type CatalogRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewCatalogRepository creates a new SQLite catalog repository.
func NewCatalogRepository(pool *ConnectionPool) *CatalogRepository {
	return &CatalogRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateProperty inserts a property owned by a landlord.
func (r *CatalogRepository) CreateProperty(ctx context.Context, property persistence.Property) error {
	if property.ID == "" || property.LandlordID == "" || strings.TrimSpace(property.Title) == "" {
		return persistence.ErrConstraintViolation
	}
	created, updated := stamps(property.CreatedAt, property.UpdatedAt)

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO properties (id, landlord_id, title, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		property.ID,
		property.LandlordID,
		strings.TrimSpace(property.Title),
		strings.TrimSpace(property.Address),
		formatTime(created),
		formatTime(updated),
	)
	return r.mapper.MapError(err)
}

// CreateRoom inserts a room under an existing property.
func (r *CatalogRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.PropertyID == "" || strings.TrimSpace(room.Name) == "" || room.MonthlyPrice < 0 {
		return persistence.ErrConstraintViolation
	}
	if room.Status == "" {
		room.Status = "available"
	}
	created, updated := stamps(room.CreatedAt, room.UpdatedAt)

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO rooms (id, property_id, name, monthly_price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		room.ID,
		room.PropertyID,
		strings.TrimSpace(room.Name),
		room.MonthlyPrice,
		room.Status,
		formatTime(created),
		formatTime(updated),
	)
	return r.mapper.MapError(err)
}

// GetRoom retrieves a room together with the landlord of its property.
func (r *CatalogRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	var (
		room                 persistence.Room
		createdAt, updatedAt string
	)
	err := r.pool.DB().QueryRowContext(ctx, `
		SELECT r.id, r.property_id, p.landlord_id, r.name, r.monthly_price, r.status, r.created_at, r.updated_at
		FROM rooms r
		JOIN properties p ON p.id = r.property_id
		WHERE r.id = ?
	`, id).Scan(
		&room.ID,
		&room.PropertyID,
		&room.LandlordID,
		&room.Name,
		&room.MonthlyPrice,
		&room.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}

	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

// SetRoomStatus changes the status only when it currently equals expected.
// An empty expected value updates unconditionally.
func (r *CatalogRepository) SetRoomStatus(ctx context.Context, id, status, expected string) (bool, error) {
	query := `UPDATE rooms SET status = ?, updated_at = ? WHERE id = ?`
	args := []any{status, formatTime(time.Now()), id}
	if expected != "" {
		query += ` AND status = ?`
		args = append(args, expected)
	}

	result, err := r.pool.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetPropertyOwner returns the landlord ID of a property.
func (r *CatalogRepository) GetPropertyOwner(ctx context.Context, propertyID string) (string, error) {
	var landlordID string
	err := r.pool.DB().QueryRowContext(ctx, `SELECT landlord_id FROM properties WHERE id = ?`, propertyID).Scan(&landlordID)
	if err != nil {
		return "", r.mapper.MapError(err)
	}
	return landlordID, nil
}

func stamps(created, updated time.Time) (time.Time, time.Time) {
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if updated.IsZero() {
		updated = created
	}
	return created, updated
}
