package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marcvidal/eventstock-backend/internal/registry"
	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
)

type fakeMaintenanceRegistry struct {
	due        []models.Instance
	dispatched []uuid.UUID
	sendErr    error
}

func (f *fakeMaintenanceRegistry) ListMaintenanceDue(ctx context.Context, before time.Time) ([]models.Instance, error) {
	return f.due, nil
}

func (f *fakeMaintenanceRegistry) SendToMaintenance(ctx context.Context, id uuid.UUID, input registry.MaintenanceInput) (*models.Instance, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.dispatched = append(f.dispatched, id)
	return &models.Instance{ID: id, Status: enums.InstanceStatusInMaintenance}, nil
}

func TestMaintenanceDueJobDispatchesAvailableUnitsOnly(t *testing.T) {
	availableID := uuid.New()
	fake := &fakeMaintenanceRegistry{
		due: []models.Instance{
			{ID: availableID, Serial: "GEN-2026-001", Status: enums.InstanceStatusAvailable},
			{ID: uuid.New(), Serial: "GEN-2026-002", Status: enums.InstanceStatusInUse},
		},
	}
	job, err := NewMaintenanceDueJob(MaintenanceDueJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "sweep-test"}),
		Registry: fake,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(fake.dispatched) != 1 || fake.dispatched[0] != availableID {
		t.Fatalf("dispatched = %v, want only the available unit", fake.dispatched)
	}
}

func TestMaintenanceDueJobAggregatesErrors(t *testing.T) {
	fake := &fakeMaintenanceRegistry{
		due: []models.Instance{
			{ID: uuid.New(), Serial: "GEN-2026-001", Status: enums.InstanceStatusAvailable},
			{ID: uuid.New(), Serial: "GEN-2026-002", Status: enums.InstanceStatusAvailable},
		},
		sendErr: errors.New("boom"),
	}
	job, err := NewMaintenanceDueJob(MaintenanceDueJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "sweep-test"}),
		Registry: fake,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected aggregated error")
	}
}
