package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/marcvidal/eventstock-backend/internal/catalog"
	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
)

type fakeCriticalLister struct {
	items []catalog.CriticalItem
	err   error
	calls int
}

func (f *fakeCriticalLister) ListCriticalProducts(ctx context.Context) ([]catalog.CriticalItem, error) {
	f.calls++
	return f.items, f.err
}

func TestCriticalStockJob(t *testing.T) {
	fake := &fakeCriticalLister{
		items: []catalog.CriticalItem{
			{Product: models.Product{Code: "LOW-STOCK", AvailableQty: 2}, Threshold: 5},
		},
	}
	job, err := NewCriticalStockJob(CriticalStockJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "sweep-test"}),
		Catalog: fake,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("lister called %d times, want 1", fake.calls)
	}
}

func TestCriticalStockJobPropagatesError(t *testing.T) {
	fake := &fakeCriticalLister{err: errors.New("db down")}
	job, err := NewCriticalStockJob(CriticalStockJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "sweep-test"}),
		Catalog: fake,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
