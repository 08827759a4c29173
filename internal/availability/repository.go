package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
)

// Repository runs the date-range overlap queries behind the calculator.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)

	// HeldQtyOverlapping sums line quantities of the product whose inclusive
	// date range overlaps [start, end] and whose parent reservation holds
	// pooled capacity (PENDING or CONFIRMED). excludeLineID removes one line
	// from the sum so re-allocation of that line does not block itself.
	HeldQtyOverlapping(ctx context.Context, productID uuid.UUID, start, end time.Time, excludeLineID *uuid.UUID) (int, error)

	// FreeInstances returns AVAILABLE instances of the product not bound to
	// any CONFIRMED line overlapping [start, end], ordered by serial
	// ascending. Instances bound to excludeLineID count as free.
	FreeInstances(ctx context.Context, productID uuid.UUID, start, end time.Time, excludeLineID *uuid.UUID) ([]models.Instance, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an availability repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) HeldQtyOverlapping(ctx context.Context, productID uuid.UUID, start, end time.Time, excludeLineID *uuid.UUID) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ReservationLine{}).
		Select("COALESCE(SUM(reservation_lines.qty), 0)").
		Joins("JOIN reservations ON reservations.id = reservation_lines.reservation_id").
		Where("reservation_lines.product_id = ?", productID).
		Where("reservation_lines.start_date <= ? AND reservation_lines.end_date >= ?", end, start).
		Where("reservations.status IN ?", []enums.ReservationStatus{
			enums.ReservationStatusPending,
			enums.ReservationStatusConfirmed,
		})
	if excludeLineID != nil {
		query = query.Where("reservation_lines.id <> ?", *excludeLineID)
	}

	var total int64
	if err := query.Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *repository) FreeInstances(ctx context.Context, productID uuid.UUID, start, end time.Time, excludeLineID *uuid.UUID) ([]models.Instance, error) {
	blocking := r.db.
		Model(&models.Instance{}).
		Select("instances.id").
		Joins("JOIN reservation_lines ON reservation_lines.id = instances.reservation_line_id").
		Joins("JOIN reservations ON reservations.id = reservation_lines.reservation_id").
		Where("reservation_lines.start_date <= ? AND reservation_lines.end_date >= ?", end, start).
		Where("reservations.status = ?", enums.ReservationStatusConfirmed)
	if excludeLineID != nil {
		blocking = blocking.Where("reservation_lines.id <> ?", *excludeLineID)
	}

	var rows []models.Instance
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, enums.InstanceStatusAvailable).
		Where("id NOT IN (?)", blocking).
		Order("serial ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
