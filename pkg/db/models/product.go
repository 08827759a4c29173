package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marcvidal/eventstock-backend/pkg/enums"
)

// Default critical thresholds applied when a product does not set its own.
const (
	DefaultCriticalThresholdSerialized = 2
	DefaultCriticalThresholdPooled     = 5
)

// Product is a catalog entry for rentable event equipment.
//
// AvailableQty is authoritative only for pooled products. For serialized
// products it is a cached projection of the count of AVAILABLE instances and
// must be recomputed, never trusted.
type Product struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Code                string                `gorm:"column:code;not null;uniqueIndex"`
	Name                string                `gorm:"column:name;not null"`
	Category            enums.ProductCategory `gorm:"column:category;type:product_category_enum;not null"`
	Type                enums.ProductType     `gorm:"column:type;type:product_type_enum;not null"`
	UnitPrice           decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	InitialQty          int                   `gorm:"column:initial_qty;not null;default:0"`
	AvailableQty        int                   `gorm:"column:available_qty;not null;default:0"`
	CriticalThreshold   *int                  `gorm:"column:critical_threshold"`
	MaintenanceRequired bool                  `gorm:"column:maintenance_required;not null;default:false"`
	Instances           []Instance            `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveCriticalThreshold resolves the configured threshold or the
// per-type default.
func (p Product) EffectiveCriticalThreshold() int {
	if p.CriticalThreshold != nil {
		return *p.CriticalThreshold
	}
	if p.Type == enums.ProductTypeSerialized {
		return DefaultCriticalThresholdSerialized
	}
	return DefaultCriticalThresholdPooled
}

// IsCriticalStock reports whether the product sits at or below its threshold.
func (p Product) IsCriticalStock() bool {
	return p.AvailableQty <= p.EffectiveCriticalThreshold()
}
