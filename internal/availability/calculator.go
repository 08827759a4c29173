package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
)

// Calculator answers "how many units of this product are free over this
// inclusive date range". The two product kinds use different rules:
//
//   - POOLED: the counter minus the quantities of overlapping lines whose
//     reservation is PENDING or CONFIRMED;
//   - SERIALIZED: the count of AVAILABLE instances not bound to an
//     overlapping CONFIRMED line. PENDING lines do not reduce serialized
//     availability.
type Calculator interface {
	Check(ctx context.Context, query Query) (*Result, error)

	// CheckBatch answers several independent questions in one call. A bad
	// tuple fails alone; the others still get answers.
	CheckBatch(ctx context.Context, queries []Query) []BatchResult

	// CheckTx runs the same computation inside the caller's transaction so
	// the allocation engine can re-validate before mutating.
	CheckTx(ctx context.Context, tx *gorm.DB, query Query) (*Result, error)
}

// BatchResult pairs one query's answer with its error, if any.
type BatchResult struct {
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// Query describes one availability question. ExcludeLineID removes a
// reservation line's own footprint, which keeps a line edit from blocking
// itself.
type Query struct {
	ProductID     uuid.UUID
	Quantity      int
	StartDate     time.Time
	EndDate       time.Time
	ExcludeLineID *uuid.UUID
}

// Result is the calculator's answer. CandidateSerials is only set for
// serialized products: the free serials ascending, truncated to the
// requested quantity, which the allocation engine binds in that exact order.
type Result struct {
	Available        bool     `json:"available"`
	Remaining        int      `json:"remaining"`
	CandidateSerials []string `json:"candidate_serials,omitempty"`
}

type calculator struct {
	repo Repository
}

// NewCalculator wires an availability calculator.
func NewCalculator(repo Repository) (Calculator, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "availability repository required")
	}
	return &calculator{repo: repo}, nil
}

func (c *calculator) Check(ctx context.Context, query Query) (*Result, error) {
	return c.check(ctx, c.repo, query)
}

func (c *calculator) CheckBatch(ctx context.Context, queries []Query) []BatchResult {
	results := make([]BatchResult, len(queries))
	for i, query := range queries {
		result, err := c.check(ctx, c.repo, query)
		results[i] = BatchResult{Result: result, Err: err}
	}
	return results
}

func (c *calculator) CheckTx(ctx context.Context, tx *gorm.DB, query Query) (*Result, error) {
	return c.check(ctx, c.repo.WithTx(tx), query)
}

func (c *calculator) check(ctx context.Context, repo Repository, query Query) (*Result, error) {
	if query.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if query.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if query.StartDate.IsZero() || query.EndDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start and end dates are required")
	}
	if query.EndDate.Before(query.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date precedes start date")
	}

	product, err := repo.GetProduct(ctx, query.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	switch product.Type {
	case enums.ProductTypePooled:
		held, err := repo.HeldQtyOverlapping(ctx, product.ID, query.StartDate, query.EndDate, query.ExcludeLineID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum held quantities")
		}
		remaining := product.AvailableQty - held
		if remaining < 0 {
			remaining = 0
		}
		return &Result{
			Available: remaining >= query.Quantity,
			Remaining: remaining,
		}, nil

	case enums.ProductTypeSerialized:
		free, err := repo.FreeInstances(ctx, product.ID, query.StartDate, query.EndDate, query.ExcludeLineID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list free instances")
		}
		candidates := make([]string, 0, query.Quantity)
		for _, instance := range free {
			if len(candidates) == query.Quantity {
				break
			}
			candidates = append(candidates, instance.Serial)
		}
		return &Result{
			Available:        len(free) >= query.Quantity,
			Remaining:        len(free),
			CandidateSerials: candidates,
		}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "unknown product type")
}
