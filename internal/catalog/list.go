package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

type ListParams struct {
	Category *enums.ProductCategory
	Type     *enums.ProductType
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID                  uuid.UUID             `json:"id"`
	Code                string                `json:"code"`
	Name                string                `json:"name"`
	Category            enums.ProductCategory `json:"category"`
	Type                enums.ProductType     `json:"type"`
	UnitPrice           decimal.Decimal       `json:"unit_price"`
	InitialQty          int                   `json:"initial_qty"`
	AvailableQty        int                   `json:"available_qty"`
	CriticalThreshold   int                   `json:"critical_threshold"`
	CriticalStock       bool                  `json:"critical_stock"`
	MaintenanceRequired bool                  `json:"maintenance_required"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

func toListItem(m models.Product) ListItem {
	return ListItem{
		ID:                  m.ID,
		Code:                m.Code,
		Name:                m.Name,
		Category:            m.Category,
		Type:                m.Type,
		UnitPrice:           m.UnitPrice,
		InitialQty:          m.InitialQty,
		AvailableQty:        m.AvailableQty,
		CriticalThreshold:   m.EffectiveCriticalThreshold(),
		CriticalStock:       m.IsCriticalStock(),
		MaintenanceRequired: m.MaintenanceRequired,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
