package allocation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/internal/availability"
	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
)

// Engine commits capacity to reservation lines and takes it back. Every
// call runs in one transaction: the availability re-check, the counter or
// instance mutation, and the ledger append commit together or not at all.
//
// Concurrency control is guarded conditional UPDATEs: the pooled decrement
// carries `available_qty >= ?` and the instance bind carries
// `status = 'available' AND reservation_line_id IS NULL`, both checked via
// RowsAffected. Two racing allocators can both pass the availability read,
// but only one wins the guarded write; the loser rolls back with
// InsufficientCapacity. The overlap-sum read itself is not serialized
// against concurrent line inserts, so a pair of simultaneous calls on
// different lines can still jointly oversubscribe a pooled date range; the
// guard only protects the live counter, not the future window.
type Engine interface {
	Allocate(ctx context.Context, input AllocateInput) (*Result, error)
	Release(ctx context.Context, lineID uuid.UUID, actor string) error
	ReleaseInstance(ctx context.Context, instanceID uuid.UUID, actor string) error
	Resize(ctx context.Context, lineID uuid.UUID, newQuantity int, actor string) (*Result, error)
}

// AllocateInput commits Quantity units of a product to a reservation line
// over the line's date range.
type AllocateInput struct {
	ProductID uuid.UUID
	Quantity  int
	LineID    uuid.UUID
	Actor     string
}

// Result reports what an allocation bound. BoundSerials is empty for pooled
// products.
type Result struct {
	BoundSerials []string `json:"bound_serials"`
}

type engine struct {
	client     *db.Client
	repo       Repository
	calculator availability.Calculator
	ledger     ledger.Service
}

// NewEngine wires an allocation engine.
func NewEngine(client *db.Client, repo Repository, calculator availability.Calculator, ledgerSvc ledger.Service) (Engine, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "allocation repository required")
	}
	if calculator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "availability calculator required")
	}
	if ledgerSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	return &engine{client: client, repo: repo, calculator: calculator, ledger: ledgerSvc}, nil
}

func (e *engine) Allocate(ctx context.Context, input AllocateInput) (*Result, error) {
	if input.LineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation line id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *Result
	err := e.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		line, product, err := e.loadLineAndProduct(ctx, tx, repo, input.LineID)
		if err != nil {
			return err
		}
		if input.ProductID != uuid.Nil && input.ProductID != product.ID {
			return pkgerrors.New(pkgerrors.CodeValidation, "product does not match the reservation line")
		}

		result, err = e.commit(ctx, tx, repo, line, product, input.Quantity, actorOrSystem(input.Actor))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *engine) Release(ctx context.Context, lineID uuid.UUID, actor string) error {
	if lineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation line id is required")
	}

	return e.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		line, product, err := e.loadLineAndProduct(ctx, tx, repo, lineID)
		if err != nil {
			return err
		}

		switch product.Type {
		case enums.ProductTypePooled:
			return e.releasePooled(ctx, tx, repo, line, product, line.Qty, actorOrSystem(actor))
		case enums.ProductTypeSerialized:
			bound, err := repo.BoundInstances(ctx, line.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bound instances")
			}
			return e.releaseSerialized(ctx, tx, repo, line, product, bound, actorOrSystem(actor))
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown product type")
	})
}

func (e *engine) ReleaseInstance(ctx context.Context, instanceID uuid.UUID, actor string) error {
	if instanceID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "instance id is required")
	}

	return e.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		instance, err := repo.GetInstance(ctx, instanceID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "instance not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load instance")
		}
		if instance.ReservationLineID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "instance is not bound to a reservation line")
		}
		lineID := *instance.ReservationLineID

		line, product, err := e.loadLineAndProduct(ctx, tx, repo, lineID)
		if err != nil {
			return err
		}
		return e.releaseSerialized(ctx, tx, repo, line, product, []models.Instance{*instance}, actorOrSystem(actor))
	})
}

func (e *engine) Resize(ctx context.Context, lineID uuid.UUID, newQuantity int, actor string) (*Result, error) {
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation line id is required")
	}
	if newQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new quantity must be positive")
	}

	var result *Result
	err := e.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		line, product, err := e.loadLineAndProduct(ctx, tx, repo, lineID)
		if err != nil {
			return err
		}

		delta := newQuantity - line.Qty
		who := actorOrSystem(actor)

		switch {
		case delta == 0:
			// Quantity unchanged; report the current bindings.
		case delta > 0:
			if _, err := e.commit(ctx, tx, repo, line, product, delta, who); err != nil {
				return err
			}
		default:
			if product.Type == enums.ProductTypePooled {
				if err := e.releasePooled(ctx, tx, repo, line, product, -delta, who); err != nil {
					return err
				}
			} else {
				bound, err := repo.BoundInstances(ctx, line.ID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bound instances")
				}
				if len(bound) < -delta {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "line has fewer bound units than the requested shrink")
				}
				// First bound, first released: bindings are made in serial
				// order, so the head of the list goes back first.
				if err := e.releaseSerialized(ctx, tx, repo, line, product, bound[:-delta], who); err != nil {
					return err
				}
			}
		}

		if err := repo.UpdateLineQty(ctx, line.ID, newQuantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line quantity")
		}

		bound, err := repo.BoundInstances(ctx, line.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bound instances")
		}
		serials := make([]string, len(bound))
		for i, instance := range bound {
			serials[i] = instance.Serial
		}
		result = &Result{BoundSerials: serials}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// commit performs the type-specific allocation of quantity units to the
// line inside the caller's transaction.
func (e *engine) commit(ctx context.Context, tx *gorm.DB, repo Repository, line *models.ReservationLine, product *models.Product, quantity int, actor string) (*Result, error) {
	check, err := e.calculator.CheckTx(ctx, tx, availability.Query{
		ProductID:     product.ID,
		Quantity:      quantity,
		StartDate:     line.StartDate,
		EndDate:       line.EndDate,
		ExcludeLineID: &line.ID,
	})
	if err != nil {
		return nil, err
	}
	if !check.Available {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientCapacity, "not enough capacity for the requested range").
			WithDetails(map[string]any{"requested": quantity, "available": check.Remaining})
	}

	switch product.Type {
	case enums.ProductTypePooled:
		ok, err := repo.DecrementCounter(ctx, product.ID, quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement counter")
		}
		if !ok {
			// Lost the race against a concurrent decrement.
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientCapacity, "capacity was taken by a concurrent allocation").
				WithDetails(map[string]any{"requested": quantity, "available": product.AvailableQty})
		}
		if _, err := e.ledger.Record(ctx, tx, ledger.RecordInput{
			ProductID:     product.ID,
			Type:          enums.MovementTypeReservationExit,
			Qty:           quantity,
			QtyBefore:     product.AvailableQty,
			Motif:         "reservation allocation",
			Actor:         actor,
			CorrelationID: &line.ID,
		}); err != nil {
			return nil, err
		}
		return &Result{BoundSerials: []string{}}, nil

	case enums.ProductTypeSerialized:
		for _, serial := range check.CandidateSerials {
			ok, err := repo.BindInstanceBySerial(ctx, serial, line.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind instance")
			}
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeInsufficientCapacity, "unit was taken by a concurrent allocation").
					WithDetails(map[string]any{"requested": quantity, "serial": serial})
			}
		}
		if _, err := e.ledger.Record(ctx, tx, ledger.RecordInput{
			ProductID:     product.ID,
			Type:          enums.MovementTypeReservationExit,
			Qty:           quantity,
			QtyBefore:     product.AvailableQty,
			Motif:         "reservation allocation",
			Actor:         actor,
			CorrelationID: &line.ID,
			Serials:       check.CandidateSerials,
		}); err != nil {
			return nil, err
		}
		if err := e.refreshCounter(ctx, repo, product.ID); err != nil {
			return nil, err
		}
		return &Result{BoundSerials: check.CandidateSerials}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "unknown product type")
}

func (e *engine) releasePooled(ctx context.Context, tx *gorm.DB, repo Repository, line *models.ReservationLine, product *models.Product, quantity int, actor string) error {
	if quantity <= 0 {
		return nil
	}
	if err := repo.IncrementCounter(ctx, product.ID, quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment counter")
	}
	_, err := e.ledger.Record(ctx, tx, ledger.RecordInput{
		ProductID:     product.ID,
		Type:          enums.MovementTypeReservationReturn,
		Qty:           quantity,
		QtyBefore:     product.AvailableQty,
		Motif:         "reservation release",
		Actor:         actor,
		CorrelationID: &line.ID,
	})
	return err
}

// releaseSerialized unbinds the given instances and writes one return row
// per unit.
func (e *engine) releaseSerialized(ctx context.Context, tx *gorm.DB, repo Repository, line *models.ReservationLine, product *models.Product, instances []models.Instance, actor string) error {
	qtyBefore := product.AvailableQty
	for _, instance := range instances {
		ok, err := repo.UnbindInstance(ctx, instance.ID, line.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unbind instance")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "instance is no longer bound to the line").
				WithDetails(map[string]any{"serial": instance.Serial})
		}
		if _, err := e.ledger.Record(ctx, tx, ledger.RecordInput{
			ProductID:     product.ID,
			Type:          enums.MovementTypeReservationReturn,
			Qty:           1,
			QtyBefore:     qtyBefore,
			Motif:         "reservation release",
			Actor:         actor,
			CorrelationID: &line.ID,
			Serials:       []string{instance.Serial},
		}); err != nil {
			return err
		}
		qtyBefore++
	}
	return e.refreshCounter(ctx, repo, product.ID)
}

func (e *engine) loadLineAndProduct(ctx context.Context, tx *gorm.DB, repo Repository, lineID uuid.UUID) (*models.ReservationLine, *models.Product, error) {
	line, err := repo.GetLine(ctx, lineID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation line not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation line")
	}

	var product models.Product
	if err := tx.WithContext(ctx).First(&product, "id = ?", line.ProductID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return line, &product, nil
}

func (e *engine) refreshCounter(ctx context.Context, repo Repository, productID uuid.UUID) error {
	count, err := repo.CountAvailableInstances(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count available instances")
	}
	if err := repo.SetProductAvailableQty(ctx, productID, count); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set product counter")
	}
	return nil
}

func actorOrSystem(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "system"
	}
	return actor
}
