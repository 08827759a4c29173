package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/marcvidal/eventstock-backend/pkg/enums"
)

// StockMovement is one immutable row of the stock audit ledger. Qty is always
// a positive magnitude; the movement type's family fixes the sign, and
// QtyAfter = QtyBefore + Direction*Qty. Rows are inserted, never updated or
// deleted.
type StockMovement struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	Type          enums.MovementType `gorm:"column:type;type:movement_type_enum;not null"`
	Qty           int                `gorm:"column:qty;not null"`
	QtyBefore     int                `gorm:"column:qty_before;not null"`
	QtyAfter      int                `gorm:"column:qty_after;not null"`
	Motif         string             `gorm:"column:motif;not null"`
	Actor         string             `gorm:"column:actor;not null"`
	CorrelationID *uuid.UUID         `gorm:"column:correlation_id;type:uuid;index"`
	Serials       pq.StringArray     `gorm:"column:serials;type:text"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// Consistent checks the before/after arithmetic against the type's family.
func (m StockMovement) Consistent() bool {
	return m.Qty > 0 && m.QtyAfter == m.QtyBefore+m.Type.Direction()*m.Qty
}
