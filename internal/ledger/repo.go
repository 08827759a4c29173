package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

// Repository manages persistence for stock movement rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.StockMovement) error
	ListByProductID(ctx context.Context, opts listQuery) ([]models.StockMovement, error)
	SumByTypes(ctx context.Context, productID uuid.UUID, types []enums.MovementType, from, to *time.Time) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

type listQuery struct {
	productID uuid.UUID
	limit     int
	cursor    *pkgpagination.Cursor
}

// ListByProductID returns a product's movement history, newest first,
// using cursor pagination.
func (r *repository) ListByProductID(ctx context.Context, opts listQuery) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovement{}).Where("product_id = ?", opts.productID)

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.StockMovement
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumByTypes totals the Qty magnitudes of a product's movements whose type
// is in the given set, optionally bounded to a created-at window.
func (r *repository) SumByTypes(ctx context.Context, productID uuid.UUID, types []enums.MovementType, from, to *time.Time) (int, error) {
	if len(types) == 0 {
		return 0, nil
	}
	query := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Select("COALESCE(SUM(qty), 0)").
		Where("product_id = ? AND type IN ?", productID, types)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var total int64
	if err := query.Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}
