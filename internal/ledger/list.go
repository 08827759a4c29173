package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

type HistoryParams struct {
	ProductID uuid.UUID
	pkgpagination.Params
}

type HistoryResult struct {
	Items  []HistoryItem `json:"items"`
	Cursor string        `json:"cursor"`
}

type HistoryItem struct {
	ID            uuid.UUID          `json:"id"`
	ProductID     uuid.UUID          `json:"product_id"`
	Type          enums.MovementType `json:"type"`
	Qty           int                `json:"qty"`
	QtyBefore     int                `json:"qty_before"`
	QtyAfter      int                `json:"qty_after"`
	Motif         string             `json:"motif"`
	Actor         string             `json:"actor"`
	CorrelationID *uuid.UUID         `json:"correlation_id,omitempty"`
	Serials       []string           `json:"serials,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toHistoryItem(m models.StockMovement) HistoryItem {
	return HistoryItem{
		ID:            m.ID,
		ProductID:     m.ProductID,
		Type:          m.Type,
		Qty:           m.Qty,
		QtyBefore:     m.QtyBefore,
		QtyAfter:      m.QtyAfter,
		Motif:         m.Motif,
		Actor:         m.Actor,
		CorrelationID: m.CorrelationID,
		Serials:       m.Serials,
		CreatedAt:     m.CreatedAt,
	}
}
