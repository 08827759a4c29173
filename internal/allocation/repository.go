package allocation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
)

// Repository holds the guarded writes the engine relies on. Every capacity
// mutation is a conditional UPDATE whose WHERE clause re-checks the
// precondition, so two racing allocators cannot both win the same unit; the
// loser sees RowsAffected == 0 and the whole call rolls back.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetLine(ctx context.Context, id uuid.UUID) (*models.ReservationLine, error)
	GetInstance(ctx context.Context, id uuid.UUID) (*models.Instance, error)
	BoundInstances(ctx context.Context, lineID uuid.UUID) ([]models.Instance, error)
	UpdateLineQty(ctx context.Context, lineID uuid.UUID, qty int) error

	// DecrementCounter subtracts qty from a pooled counter, guarded against
	// going negative.
	DecrementCounter(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	IncrementCounter(ctx context.Context, productID uuid.UUID, qty int) error

	// BindInstanceBySerial moves one unit from AVAILABLE to RESERVED with
	// the line back-reference, guarded on the current state.
	BindInstanceBySerial(ctx context.Context, serial string, lineID uuid.UUID) (bool, error)

	// UnbindInstance reverses a binding, guarded on the back-reference still
	// pointing at the line.
	UnbindInstance(ctx context.Context, instanceID, lineID uuid.UUID) (bool, error)

	CountAvailableInstances(ctx context.Context, productID uuid.UUID) (int, error)
	SetProductAvailableQty(ctx context.Context, productID uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an allocation repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetLine(ctx context.Context, id uuid.UUID) (*models.ReservationLine, error) {
	var line models.ReservationLine
	if err := r.db.WithContext(ctx).First(&line, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) GetInstance(ctx context.Context, id uuid.UUID) (*models.Instance, error) {
	var instance models.Instance
	if err := r.db.WithContext(ctx).First(&instance, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

// BoundInstances returns the line's bound units in binding order, which is
// serial ascending because Allocate binds the candidate list in that order.
func (r *repository) BoundInstances(ctx context.Context, lineID uuid.UUID) ([]models.Instance, error) {
	var rows []models.Instance
	err := r.db.WithContext(ctx).
		Where("reservation_line_id = ?", lineID).
		Order("serial ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateLineQty(ctx context.Context, lineID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.ReservationLine{}).
		Where("id = ?", lineID).
		UpdateColumn("qty", qty).Error
}

func (r *repository) DecrementCounter(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND available_qty >= ?", productID, qty).
		UpdateColumn("available_qty", gorm.Expr("available_qty - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementCounter(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("available_qty", gorm.Expr("available_qty + ?", qty)).Error
}

func (r *repository) BindInstanceBySerial(ctx context.Context, serial string, lineID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Instance{}).
		Where("serial = ? AND status = ? AND reservation_line_id IS NULL", serial, enums.InstanceStatusAvailable).
		Updates(map[string]any{
			"status":              enums.InstanceStatusReserved,
			"reservation_line_id": lineID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UnbindInstance(ctx context.Context, instanceID, lineID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Instance{}).
		Where("id = ? AND reservation_line_id = ?", instanceID, lineID).
		Updates(map[string]any{
			"status":              enums.InstanceStatusAvailable,
			"reservation_line_id": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CountAvailableInstances(ctx context.Context, productID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Instance{}).
		Where("product_id = ? AND status = ?", productID, enums.InstanceStatusAvailable).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repository) SetProductAvailableQty(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("available_qty", qty).Error
}
