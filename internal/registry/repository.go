package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

// Repository manages persistence for serialized instances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, instance *models.Instance) error
	CreateBatch(ctx context.Context, instances []models.Instance) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Instance, error)
	GetBySerial(ctx context.Context, serial string) (*models.Instance, error)
	Update(ctx context.Context, instance *models.Instance) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts listQuery) ([]models.Instance, error)
	LastSerialWithPrefix(ctx context.Context, prefix string) (string, error)
	CountAvailable(ctx context.Context, productID uuid.UUID) (int, error)
	SetProductAvailableQty(ctx context.Context, productID uuid.UUID, qty int) error
	ListMaintenanceDue(ctx context.Context, before time.Time) ([]models.Instance, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an instance repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, instance *models.Instance) error {
	return r.db.WithContext(ctx).Create(instance).Error
}

func (r *repository) CreateBatch(ctx context.Context, instances []models.Instance) error {
	if len(instances) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&instances).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Instance, error) {
	var instance models.Instance
	if err := r.db.WithContext(ctx).First(&instance, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *repository) GetBySerial(ctx context.Context, serial string) (*models.Instance, error) {
	var instance models.Instance
	if err := r.db.WithContext(ctx).First(&instance, "serial = ?", serial).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *repository) Update(ctx context.Context, instance *models.Instance) error {
	return r.db.WithContext(ctx).Save(instance).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Instance{}, "id = ?", id).Error
}

type listQuery struct {
	productID uuid.UUID
	status    *enums.InstanceStatus
	limit     int
	cursor    *pkgpagination.Cursor
}

func (r *repository) List(ctx context.Context, opts listQuery) ([]models.Instance, error) {
	query := r.db.WithContext(ctx).Model(&models.Instance{}).Where("product_id = ?", opts.productID)

	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Instance
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LastSerialWithPrefix returns the highest-numbered serial sharing the
// prefix, or "" when none exists. Counters are zero-padded to three digits
// but can grow past that, so longer serials sort first and plain
// lexicographic order breaks ties within a length.
func (r *repository) LastSerialWithPrefix(ctx context.Context, prefix string) (string, error) {
	var instance models.Instance
	err := r.db.WithContext(ctx).
		Where("serial LIKE ?", prefix+"%").
		Order("LENGTH(serial) DESC, serial DESC").
		First(&instance).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return instance.Serial, nil
}

func (r *repository) CountAvailable(ctx context.Context, productID uuid.UUID) (int, error) {
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

// SetProductAvailableQty rewrites a serialized product's cached counter.
func (r *repository) SetProductAvailableQty(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("available_qty", qty).Error
}

// ListMaintenanceDue returns instances whose next maintenance date falls on
// or before the bound, skipping units already in maintenance or end of life.
func (r *repository) ListMaintenanceDue(ctx context.Context, before time.Time) ([]models.Instance, error) {
	var rows []models.Instance
	err := r.db.WithContext(ctx).
		Where("next_maintenance_at IS NOT NULL AND next_maintenance_at <= ?", before).
		Where("status NOT IN ?", []enums.InstanceStatus{
			enums.InstanceStatusInMaintenance,
			enums.InstanceStatusOutOfService,
			enums.InstanceStatusLost,
		}).
		Order("next_maintenance_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
