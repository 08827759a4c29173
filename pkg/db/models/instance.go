package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcvidal/eventstock-backend/pkg/enums"
)

// Instance is one physical, individually tracked unit of a serialized
// product. ReservationLineID is a relation back to the line currently
// holding the unit, not ownership; it is non-nil exactly when the status
// requires a binding (reserved, in_delivery, in_use, in_return).
type Instance struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Serial            string                  `gorm:"column:serial;not null;uniqueIndex"`
	ProductID         uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	Status            enums.InstanceStatus    `gorm:"column:status;type:instance_status_enum;not null;default:'available'"`
	Condition         enums.InstanceCondition `gorm:"column:condition;type:instance_condition_enum;not null;default:'good'"`
	ReservationLineID *uuid.UUID              `gorm:"column:reservation_line_id;type:uuid;index"`
	Observation       *string                 `gorm:"column:observation"`
	AcquiredOn        *time.Time              `gorm:"column:acquired_on;type:date"`
	LastMaintenanceAt *time.Time              `gorm:"column:last_maintenance_at;type:date"`
	NextMaintenanceAt *time.Time              `gorm:"column:next_maintenance_at;type:date"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// Bound reports whether the instance currently references a reservation line.
func (i Instance) Bound() bool {
	return i.ReservationLineID != nil
}

// Deletable reports whether the unit may be removed from the registry.
func (i Instance) Deletable() bool {
	return i.ReservationLineID == nil
}
