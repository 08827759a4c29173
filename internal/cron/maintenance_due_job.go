package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/marcvidal/eventstock-backend/internal/registry"
	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
)

const defaultMaintenanceLead = 7 * 24 * time.Hour

type maintenanceRegistry interface {
	ListMaintenanceDue(ctx context.Context, before time.Time) ([]models.Instance, error)
	SendToMaintenance(ctx context.Context, id uuid.UUID, input registry.MaintenanceInput) (*models.Instance, error)
}

type MaintenanceDueJobParams struct {
	Logger   *logger.Logger
	Registry maintenanceRegistry
	Lead     time.Duration
}

// NewMaintenanceDueJob builds the sweep that flags units whose next
// maintenance date falls inside the lead window. Units sitting AVAILABLE
// are dispatched to maintenance directly; units out on rental are only
// flagged in the log, since pulling them mid-reservation is an operator
// decision.
func NewMaintenanceDueJob(params MaintenanceDueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("instance registry required")
	}
	lead := params.Lead
	if lead <= 0 {
		lead = defaultMaintenanceLead
	}
	return &maintenanceDueJob{
		logg:     params.Logger,
		registry: params.Registry,
		lead:     lead,
		now:      time.Now,
	}, nil
}

type maintenanceDueJob struct {
	logg     *logger.Logger
	registry maintenanceRegistry
	lead     time.Duration
	now      func() time.Time
}

func (j *maintenanceDueJob) Name() string { return "maintenance-due" }

func (j *maintenanceDueJob) Run(ctx context.Context) error {
	horizon := j.now().UTC().Add(j.lead)
	due, err := j.registry.ListMaintenanceDue(ctx, horizon)
	if err != nil {
		return fmt.Errorf("maintenance due sweep: %w", err)
	}

	var errs []error
	dispatched := 0
	flagged := 0
	for _, instance := range due {
		unitCtx := j.logg.WithFields(ctx, map[string]any{
			"serial":              instance.Serial,
			"status":              instance.Status,
			"next_maintenance_at": instance.NextMaintenanceAt,
		})
		if instance.Status != enums.InstanceStatusAvailable {
			j.logg.Warn(unitCtx, "unit due for maintenance is out on rental")
			flagged++
			continue
		}
		if _, err := j.registry.SendToMaintenance(ctx, instance.ID, registry.MaintenanceInput{
			Motif: "maintenance due",
			Actor: "sweep",
		}); err != nil {
			errs = append(errs, fmt.Errorf("send %s to maintenance: %w", instance.Serial, err))
			continue
		}
		j.logg.Info(unitCtx, "unit dispatched to maintenance")
		dispatched++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"horizon":    horizon,
		"due":        len(due),
		"dispatched": dispatched,
		"flagged":    flagged,
	})
	j.logg.Info(logCtx, "maintenance due sweep complete")
	return multierr.Combine(errs...)
}
