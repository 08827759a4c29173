package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marcvidal/eventstock-backend/pkg/enums"
)

// Reservation is the parent aggregate of the rental workflow. The inventory
// core only reads its status: pending/confirmed reservations hold pooled
// capacity, confirmed ones hold serialized capacity.
type Reservation struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Reference    string                  `gorm:"column:reference;not null;uniqueIndex"`
	CustomerName string                  `gorm:"column:customer_name;not null"`
	Status       enums.ReservationStatus `gorm:"column:status;type:reservation_status_enum;not null;default:'pending'"`
	Lines        []ReservationLine       `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// ReservationLine is one product entry inside a reservation: a quantity over
// an inclusive date range. UnitPrice is snapshotted at creation and never
// rewritten afterwards. For serialized products the bound instances carry
// the line id as their back-reference.
type ReservationLine struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ReservationID  uuid.UUID            `gorm:"column:reservation_id;type:uuid;not null;index"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	Qty            int                  `gorm:"column:qty;not null"`
	UnitPrice      decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	StartDate      time.Time            `gorm:"column:start_date;type:date;not null"`
	EndDate        time.Time            `gorm:"column:end_date;type:date;not null"`
	DeliveryStatus enums.DeliveryStatus `gorm:"column:delivery_status;type:delivery_status_enum;not null;default:'pending'"`
	Instances      []Instance           `gorm:"foreignKey:ReservationLineID"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Overlaps reports whether the line's inclusive range shares at least one
// day with [start, end].
func (l ReservationLine) Overlaps(start, end time.Time) bool {
	return !l.StartDate.After(end) && !l.EndDate.Before(start)
}
