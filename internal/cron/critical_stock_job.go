package cron

import (
	"context"
	"fmt"

	"github.com/marcvidal/eventstock-backend/internal/catalog"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
)

type criticalStockLister interface {
	ListCriticalProducts(ctx context.Context) ([]catalog.CriticalItem, error)
}

type CriticalStockJobParams struct {
	Logger  *logger.Logger
	Catalog criticalStockLister
}

// NewCriticalStockJob builds the sweep that surfaces products at or below
// their critical threshold in the worker log.
func NewCriticalStockJob(params CriticalStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &criticalStockJob{logg: params.Logger, catalog: params.Catalog}, nil
}

type criticalStockJob struct {
	logg    *logger.Logger
	catalog criticalStockLister
}

func (j *criticalStockJob) Name() string { return "critical-stock" }

func (j *criticalStockJob) Run(ctx context.Context) error {
	items, err := j.catalog.ListCriticalProducts(ctx)
	if err != nil {
		return fmt.Errorf("critical stock sweep: %w", err)
	}

	for _, item := range items {
		itemCtx := j.logg.WithFields(ctx, map[string]any{
			"code":      item.Product.Code,
			"available": item.Product.AvailableQty,
			"threshold": item.Threshold,
		})
		j.logg.Warn(itemCtx, "product at critical stock level")
	}

	logCtx := j.logg.WithField(ctx, "critical_count", len(items))
	j.logg.Info(logCtx, "critical stock sweep complete")
	return nil
}
