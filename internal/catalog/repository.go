package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

// Repository manages persistence for catalog products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByCode(ctx context.Context, code string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	List(ctx context.Context, opts listQuery) ([]models.Product, error)
	ListCritical(ctx context.Context) ([]models.Product, error)
	AdjustAvailableQty(ctx context.Context, id uuid.UUID, delta int) (bool, error)
	SetAvailableQty(ctx context.Context, id uuid.UUID, qty int) error
	CountAvailableInstances(ctx context.Context, productID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

type listQuery struct {
	category *enums.ProductCategory
	prodType *enums.ProductType
	limit    int
	cursor   *pkgpagination.Cursor
}

func (r *repository) List(ctx context.Context, opts listQuery) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if opts.category != nil {
		query = query.Where("category = ?", *opts.category)
	}
	if opts.prodType != nil {
		query = query.Where("type = ?", *opts.prodType)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Product
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListCritical returns products at or below their critical threshold,
// resolving per-type defaults for rows without an explicit threshold.
func (r *repository) ListCritical(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("available_qty <= COALESCE(critical_threshold, CASE WHEN type = ? THEN ? ELSE ? END)",
			enums.ProductTypeSerialized,
			models.DefaultCriticalThresholdSerialized,
			models.DefaultCriticalThresholdPooled).
		Order("available_qty ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AdjustAvailableQty applies a signed delta with a guard against going
// negative. The boolean reports whether the guarded update matched a row.
func (r *repository) AdjustAvailableQty(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id)
	if delta < 0 {
		query = query.Where("available_qty >= ?", -delta)
	}
	res := query.UpdateColumn("available_qty", gorm.Expr("available_qty + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetAvailableQty(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("available_qty", qty).Error
}

// CountAvailableInstances counts a serialized product's units in the
// AVAILABLE status.
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
