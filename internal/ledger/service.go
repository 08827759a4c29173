package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

// Service records and reads the append-only stock movement ledger. Rows are
// never updated or deleted after insert.
type Service interface {
	// Record appends one movement. When tx is non-nil the row joins the
	// caller's transaction so it commits or rolls back with the stock change
	// it documents.
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.StockMovement, error)
	History(ctx context.Context, params HistoryParams) (*HistoryResult, error)
	Totals(ctx context.Context, params TotalsParams) (*MovementTotals, error)
}

type service struct {
	repo Repository
}

// RecordInput captures the immutable data one ledger row requires. Qty is a
// positive magnitude; the type's family fixes the sign.
type RecordInput struct {
	ProductID     uuid.UUID
	Type          enums.MovementType
	Qty           int
	QtyBefore     int
	Motif         string
	Actor         string
	CorrelationID *uuid.UUID
	Serials       []string
}

// TotalsParams bounds the aggregation; a nil From or To leaves that side
// open.
type TotalsParams struct {
	ProductID uuid.UUID
	From      *time.Time
	To        *time.Time
}

// MovementTotals aggregates a product's ledger by family. The totals are
// reporting figures and are allowed to drift from the live counter.
type MovementTotals struct {
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.StockMovement, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid movement type")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement qty must be positive")
	}
	if strings.TrimSpace(input.Motif) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement motif is required")
	}
	if strings.TrimSpace(input.Actor) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement actor is required")
	}

	movement := &models.StockMovement{
		ID:            uuid.New(),
		ProductID:     input.ProductID,
		Type:          input.Type,
		Qty:           input.Qty,
		QtyBefore:     input.QtyBefore,
		QtyAfter:      input.QtyBefore + input.Type.Direction()*input.Qty,
		Motif:         strings.TrimSpace(input.Motif),
		Actor:         strings.TrimSpace(input.Actor),
		CorrelationID: input.CorrelationID,
		Serials:       input.Serials,
	}

	if err := s.repo.WithTx(tx).Create(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
	}
	return movement, nil
}

func (s *service) History(ctx context.Context, params HistoryParams) (*HistoryResult, error) {
	if params.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		productID: params.ProductID,
		limit:     pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.ListByProductID(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]HistoryItem, len(rows))
	for i, row := range rows {
		items[i] = toHistoryItem(row)
	}
	return &HistoryResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) Totals(ctx context.Context, params TotalsParams) (*MovementTotals, error) {
	if params.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "totals window end precedes start")
	}

	entries, err := s.repo.SumByTypes(ctx, params.ProductID, enums.EntryMovementTypes(), params.From, params.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum entry movements")
	}
	exits, err := s.repo.SumByTypes(ctx, params.ProductID, enums.ExitMovementTypes(), params.From, params.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum exit movements")
	}
	return &MovementTotals{Entries: entries, Exits: exits}, nil
}
