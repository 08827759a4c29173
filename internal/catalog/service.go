package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

// Service exposes the product catalog: creation, edits, stock adjustments
// and the availability counter maintenance that goes with them.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductByCode(ctx context.Context, code string) (*models.Product, error)
	ListProducts(ctx context.Context, params ListParams) (*ListResult, error)
	ListCriticalProducts(ctx context.Context) ([]CriticalItem, error)

	// AdjustStock applies a signed manual correction to a pooled product's
	// counter and records the matching adjustment movement atomically.
	AdjustStock(ctx context.Context, id uuid.UUID, input AdjustStockInput) (*models.Product, error)

	// RecomputeAvailability rebuilds a serialized product's cached counter
	// from its AVAILABLE instances and returns the fresh value.
	RecomputeAvailability(ctx context.Context, id uuid.UUID) (int, error)
}

type service struct {
	client *db.Client
	repo   Repository
	ledger ledger.Service
}

// CreateProductInput captures a new catalog entry. InitialQty only applies
// to pooled products; serialized stock enters through instance registration.
type CreateProductInput struct {
	Code                string
	Name                string
	Category            enums.ProductCategory
	Type                enums.ProductType
	UnitPrice           decimal.Decimal
	InitialQty          int
	CriticalThreshold   *int
	MaintenanceRequired bool
	Actor               string
}

// UpdateProductInput holds the editable fields. The product type is fixed at
// creation: switching between pooled and serialized would orphan either the
// counter or the instance registry.
type UpdateProductInput struct {
	Name                *string
	Category            *enums.ProductCategory
	UnitPrice           *decimal.Decimal
	CriticalThreshold   *int
	MaintenanceRequired *bool
}

type AdjustStockInput struct {
	Delta int
	Motif string
	Actor string
}

// CriticalItem is one low-stock row with its resolved threshold.
type CriticalItem struct {
	Product   models.Product `json:"product"`
	Threshold int            `json:"threshold"`
}

// NewService wires a catalog service with its persistence collaborators.
func NewService(client *db.Client, repo Repository, ledgerSvc ledger.Service) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	if ledgerSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	return &service{client: client, repo: repo, ledger: ledgerSvc}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product type")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.InitialQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial qty cannot be negative")
	}
	if input.CriticalThreshold != nil && *input.CriticalThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "critical threshold cannot be negative")
	}

	product := &models.Product{
		ID:                  uuid.New(),
		Code:                code,
		Name:                strings.TrimSpace(input.Name),
		Category:            input.Category,
		Type:                input.Type,
		UnitPrice:           input.UnitPrice,
		CriticalThreshold:   input.CriticalThreshold,
		MaintenanceRequired: input.MaintenanceRequired,
	}
	if input.Type == enums.ProductTypePooled {
		product.InitialQty = input.InitialQty
		product.AvailableQty = input.InitialQty
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "idx_products_code") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product code already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		if product.Type == enums.ProductTypePooled && product.InitialQty > 0 {
			actor := strings.TrimSpace(input.Actor)
			if actor == "" {
				actor = "system"
			}
			_, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
				ProductID: product.ID,
				Type:      enums.MovementTypeInitialStock,
				Qty:       product.InitialQty,
				QtyBefore: 0,
				Motif:     "initial stock",
				Actor:     actor,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be blank")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category")
		}
		product.Category = *input.Category
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		product.UnitPrice = *input.UnitPrice
	}
	if input.CriticalThreshold != nil {
		if *input.CriticalThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "critical threshold cannot be negative")
		}
		product.CriticalThreshold = input.CriticalThreshold
	}
	if input.MaintenanceRequired != nil {
		product.MaintenanceRequired = *input.MaintenanceRequired
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get product")
	}
	return product, nil
}

func (s *service) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product code is required")
	}
	product, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get product by code")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		category: params.Category,
		prodType: params.Type,
		limit:    pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) ListCriticalProducts(ctx context.Context) ([]CriticalItem, error) {
	rows, err := s.repo.ListCritical(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list critical products")
	}
	items := make([]CriticalItem, len(rows))
	for i, row := range rows {
		items[i] = CriticalItem{Product: row, Threshold: row.EffectiveCriticalThreshold()}
	}
	return items, nil
}

func (s *service) AdjustStock(ctx context.Context, id uuid.UUID, input AdjustStockInput) (*models.Product, error) {
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta cannot be zero")
	}
	if strings.TrimSpace(input.Motif) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment motif is required")
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.Type != enums.ProductTypePooled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "serialized stock changes through instance lifecycle, not manual adjustment")
	}

	movementType := enums.MovementTypeAdjustmentEntry
	magnitude := input.Delta
	if input.Delta < 0 {
		movementType = enums.MovementTypeAdjustmentExit
		magnitude = -input.Delta
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).AdjustAvailableQty(ctx, id, input.Delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust available qty")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientCapacity, "adjustment would drive available qty negative").
				WithDetails(map[string]any{"requested": input.Delta, "available": product.AvailableQty})
		}
		_, err = s.ledger.Record(ctx, tx, ledger.RecordInput{
			ProductID: id,
			Type:      movementType,
			Qty:       magnitude,
			QtyBefore: product.AvailableQty,
			Motif:     input.Motif,
			Actor:     input.Actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

func (s *service) RecomputeAvailability(ctx context.Context, id uuid.UUID) (int, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return 0, err
	}
	if product.Type != enums.ProductTypeSerialized {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "availability recompute applies to serialized products only")
	}

	count, err := s.repo.CountAvailableInstances(ctx, id)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count available instances")
	}
	if err := s.repo.SetAvailableQty(ctx, id, count); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set available qty")
	}
	return count, nil
}
