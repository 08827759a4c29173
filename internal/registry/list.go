package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

type ListParams struct {
	ProductID uuid.UUID
	Status    *enums.InstanceStatus
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID                uuid.UUID               `json:"id"`
	Serial            string                  `json:"serial"`
	ProductID         uuid.UUID               `json:"product_id"`
	Status            enums.InstanceStatus    `json:"status"`
	Condition         enums.InstanceCondition `json:"condition"`
	ReservationLineID *uuid.UUID              `json:"reservation_line_id,omitempty"`
	Observation       *string                 `json:"observation,omitempty"`
	AcquiredOn        *time.Time              `json:"acquired_on,omitempty"`
	LastMaintenanceAt *time.Time              `json:"last_maintenance_at,omitempty"`
	NextMaintenanceAt *time.Time              `json:"next_maintenance_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

func toListItem(m models.Instance) ListItem {
	return ListItem{
		ID:                m.ID,
		Serial:            m.Serial,
		ProductID:         m.ProductID,
		Status:            m.Status,
		Condition:         m.Condition,
		ReservationLineID: m.ReservationLineID,
		Observation:       m.Observation,
		AcquiredOn:        m.AcquiredOn,
		LastMaintenanceAt: m.LastMaintenanceAt,
		NextMaintenanceAt: m.NextMaintenanceAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
