package registry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

// maintenanceIntervalDays is how long a serviced unit runs before its next
// scheduled maintenance.
const maintenanceIntervalDays = 180

// Service manages the registry of serialized units: registration, the
// status state machine, maintenance round trips and removal. Every stock
// effect is mirrored in the movement ledger and the product's cached
// availability counter inside the same transaction.
type Service interface {
	RegisterInstances(ctx context.Context, input RegisterInput) ([]models.Instance, error)
	GetInstance(ctx context.Context, id uuid.UUID) (*models.Instance, error)
	GetInstanceBySerial(ctx context.Context, serial string) (*models.Instance, error)
	ListInstances(ctx context.Context, params ListParams) (*ListResult, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, input ChangeStatusInput) (*models.Instance, error)
	SendToMaintenance(ctx context.Context, id uuid.UUID, input MaintenanceInput) (*models.Instance, error)
	ReturnFromMaintenance(ctx context.Context, id uuid.UUID, input MaintenanceInput) (*models.Instance, error)
	DeleteInstance(ctx context.Context, id uuid.UUID, actor string) error
	ListMaintenanceDue(ctx context.Context, before time.Time) ([]models.Instance, error)
}

type service struct {
	client *db.Client
	repo   Repository
	ledger ledger.Service
	now    func() time.Time
}

// RegisterInput registers Count new units of a serialized product. Serials
// are generated, never supplied.
type RegisterInput struct {
	ProductID  uuid.UUID
	Count      int
	Condition  enums.InstanceCondition
	AcquiredOn *time.Time
	Actor      string
}

// ChangeStatusInput drives the generic status-change path.
type ChangeStatusInput struct {
	To          enums.InstanceStatus
	Motif       string
	Actor       string
	Condition   *enums.InstanceCondition
	Observation *string
}

type MaintenanceInput struct {
	Motif     string
	Actor     string
	Condition *enums.InstanceCondition

	// NextMaintenanceAt overrides the default interval when completing a
	// maintenance; ignored by SendToMaintenance.
	NextMaintenanceAt *time.Time
}

// NewService wires an instance registry service.
func NewService(client *db.Client, repo Repository, ledgerSvc ledger.Service) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db client required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "registry repository required")
	}
	if ledgerSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	return &service{client: client, repo: repo, ledger: ledgerSvc, now: time.Now}, nil
}

func (s *service) RegisterInstances(ctx context.Context, input RegisterInput) ([]models.Instance, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count must be positive")
	}
	condition := input.Condition
	if condition == "" {
		condition = enums.InstanceConditionNew
	}
	if !condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid instance condition")
	}

	var product models.Product
	if err := s.client.DB().WithContext(ctx).First(&product, "id = ?", input.ProductID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Type != enums.ProductTypeSerialized {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pooled products have no instances; adjust the counter instead")
	}

	var created []models.Instance
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		prefix := serialPrefix(product.Code, s.now())
		last, err := repo.LastSerialWithPrefix(ctx, prefix)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find last serial")
		}
		next, err := nextSerialNumber(prefix, last)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse serial counter")
		}

		created = make([]models.Instance, input.Count)
		serials := make([]string, input.Count)
		for i := 0; i < input.Count; i++ {
			serials[i] = formatSerial(prefix, next+i)
			created[i] = models.Instance{
				ID:         uuid.New(),
				Serial:     serials[i],
				ProductID:  product.ID,
				Status:     enums.InstanceStatusAvailable,
				Condition:  condition,
				AcquiredOn: input.AcquiredOn,
			}
		}
		if err := repo.CreateBatch(ctx, created); err != nil {
			if db.IsUniqueViolation(err, "idx_instances_serial") {
				return pkgerrors.New(pkgerrors.CodeConflict, "serial already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register instances")
		}

		actor := strings.TrimSpace(input.Actor)
		if actor == "" {
			actor = "system"
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			ProductID: product.ID,
			Type:      enums.MovementTypeInitialStock,
			Qty:       input.Count,
			QtyBefore: product.AvailableQty,
			Motif:     "instance registration",
			Actor:     actor,
			Serials:   serials,
		}); err != nil {
			return err
		}
		return s.refreshCounter(ctx, repo, product.ID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) GetInstance(ctx context.Context, id uuid.UUID) (*models.Instance, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "instance id is required")
	}
	instance, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "instance not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get instance")
	}
	return instance, nil
}

func (s *service) GetInstanceBySerial(ctx context.Context, serial string) (*models.Instance, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial is required")
	}
	instance, err := s.repo.GetBySerial(ctx, serial)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "instance not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get instance by serial")
	}
	return instance, nil
}

func (s *service) ListInstances(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid instance status")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		productID: params.ProductID,
		status:    params.Status,
		limit:     pkgpagination.LimitWithBuffer(params.Limit),
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list instances")
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

func (s *service) ChangeStatus(ctx context.Context, id uuid.UUID, input ChangeStatusInput) (*models.Instance, error) {
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if input.Condition != nil && !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid instance condition")
	}

	instance, err := s.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(instance.Status, input.To) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithDetails(map[string]any{"from": instance.Status, "to": input.To})
	}
	if input.To.EndOfLife() && strings.TrimSpace(input.Motif) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a motif is required when writing a unit off")
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		previousStatus := instance.Status
		previousLine := instance.ReservationLineID
		instance.Status = input.To
		if !input.To.RequiresBinding() {
			instance.ReservationLineID = nil
		}
		if input.Condition != nil {
			instance.Condition = *input.Condition
		}
		if input.Observation != nil {
			instance.Observation = input.Observation
		}
		if err := repo.Update(ctx, instance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update instance")
		}

		var product models.Product
		if err := tx.WithContext(ctx).First(&product, "id = ?", instance.ProductID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		actor := strings.TrimSpace(input.Actor)
		if actor == "" {
			actor = "system"
		}
		switch {
		case input.To.EndOfLife():
			// The write-off is one unit regardless of where it was in the
			// rental cycle.
			if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
				ProductID:     instance.ProductID,
				Type:          enums.MovementTypeDamage,
				Qty:           1,
				QtyBefore:     product.AvailableQty,
				Motif:         input.Motif,
				Actor:         actor,
				CorrelationID: previousLine,
				Serials:       []string{instance.Serial},
			}); err != nil {
				return err
			}
		case input.To == enums.InstanceStatusAvailable && previousLine != nil:
			// Return receipt: the unit re-enters stock from a rental.
			motif := strings.TrimSpace(input.Motif)
			if motif == "" {
				motif = "reservation return"
			}
			if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
				ProductID:     instance.ProductID,
				Type:          enums.MovementTypeReservationReturn,
				Qty:           1,
				QtyBefore:     product.AvailableQty,
				Motif:         motif,
				Actor:         actor,
				CorrelationID: previousLine,
				Serials:       []string{instance.Serial},
			}); err != nil {
				return err
			}
		case input.To == enums.InstanceStatusAvailable && previousStatus.EndOfLife():
			// Recovery reverses the write-off: the unit counts as stock again.
			motif := strings.TrimSpace(input.Motif)
			if motif == "" {
				motif = "unit recovered"
			}
			if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
				ProductID: instance.ProductID,
				Type:      enums.MovementTypeAdjustmentEntry,
				Qty:       1,
				QtyBefore: product.AvailableQty,
				Motif:     motif,
				Actor:     actor,
				Serials:   []string{instance.Serial},
			}); err != nil {
				return err
			}
		}

		return s.refreshCounter(ctx, repo, instance.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (s *service) SendToMaintenance(ctx context.Context, id uuid.UUID, input MaintenanceInput) (*models.Instance, error) {
	instance, err := s.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if instance.Status != enums.InstanceStatusAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only available units can go to maintenance").
			WithDetails(map[string]any{"status": instance.Status})
	}
	if input.Condition != nil && !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid instance condition")
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		instance.Status = enums.InstanceStatusInMaintenance
		if input.Condition != nil {
			instance.Condition = *input.Condition
		}
		if err := repo.Update(ctx, instance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update instance")
		}

		var product models.Product
		if err := tx.WithContext(ctx).First(&product, "id = ?", instance.ProductID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		motif := strings.TrimSpace(input.Motif)
		if motif == "" {
			motif = "scheduled maintenance"
		}
		actor := strings.TrimSpace(input.Actor)
		if actor == "" {
			actor = "system"
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			ProductID: instance.ProductID,
			Type:      enums.MovementTypeMaintenanceExit,
			Qty:       1,
			QtyBefore: product.AvailableQty,
			Motif:     motif,
			Actor:     actor,
			Serials:   []string{instance.Serial},
		}); err != nil {
			return err
		}
		return s.refreshCounter(ctx, repo, instance.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (s *service) ReturnFromMaintenance(ctx context.Context, id uuid.UUID, input MaintenanceInput) (*models.Instance, error) {
	instance, err := s.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if instance.Status != enums.InstanceStatusInMaintenance {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "unit is not in maintenance").
			WithDetails(map[string]any{"status": instance.Status})
	}
	if input.Condition != nil && !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid instance condition")
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		today := s.now().Truncate(24 * time.Hour)
		next := today.AddDate(0, 0, maintenanceIntervalDays)
		if input.NextMaintenanceAt != nil {
			if !input.NextMaintenanceAt.After(today) {
				return pkgerrors.New(pkgerrors.CodeValidation, "next maintenance date must be in the future")
			}
			next = *input.NextMaintenanceAt
		}
		instance.Status = enums.InstanceStatusAvailable
		instance.LastMaintenanceAt = &today
		instance.NextMaintenanceAt = &next
		if input.Condition != nil {
			instance.Condition = *input.Condition
		}
		if err := repo.Update(ctx, instance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update instance")
		}

		var product models.Product
		if err := tx.WithContext(ctx).First(&product, "id = ?", instance.ProductID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		motif := strings.TrimSpace(input.Motif)
		if motif == "" {
			motif = "maintenance completed"
		}
		actor := strings.TrimSpace(input.Actor)
		if actor == "" {
			actor = "system"
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			ProductID: instance.ProductID,
			Type:      enums.MovementTypeMaintenanceReturn,
			Qty:       1,
			QtyBefore: product.AvailableQty,
			Motif:     motif,
			Actor:     actor,
			Serials:   []string{instance.Serial},
		}); err != nil {
			return err
		}
		return s.refreshCounter(ctx, repo, instance.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (s *service) DeleteInstance(ctx context.Context, id uuid.UUID, actor string) error {
	instance, err := s.GetInstance(ctx, id)
	if err != nil {
		return err
	}
	if !instance.Deletable() || instance.Status.RequiresBinding() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "unit is bound to a reservation and cannot be removed")
	}

	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var product models.Product
		if err := tx.WithContext(ctx).First(&product, "id = ?", instance.ProductID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if err := repo.Delete(ctx, instance.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete instance")
		}

		// Counted stock only leaves the ledger when an AVAILABLE unit is
		// removed; end-of-life units were already written off.
		if instance.Status == enums.InstanceStatusAvailable {
			if strings.TrimSpace(actor) == "" {
				actor = "system"
			}
			if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
				ProductID: instance.ProductID,
				Type:      enums.MovementTypeAdjustmentExit,
				Qty:       1,
				QtyBefore: product.AvailableQty,
				Motif:     "instance removed from registry",
				Actor:     actor,
				Serials:   []string{instance.Serial},
			}); err != nil {
				return err
			}
		}
		return s.refreshCounter(ctx, repo, instance.ProductID)
	})
}

func (s *service) ListMaintenanceDue(ctx context.Context, before time.Time) ([]models.Instance, error) {
	rows, err := s.repo.ListMaintenanceDue(ctx, before)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list maintenance due")
	}
	return rows, nil
}

// refreshCounter rebuilds the product's cached availability counter from the
// AVAILABLE instance count.
func (s *service) refreshCounter(ctx context.Context, repo Repository, productID uuid.UUID) error {
	count, err := repo.CountAvailable(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count available instances")
	}
	if err := repo.SetProductAvailableQty(ctx, productID, count); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set product counter")
	}
	return nil
}
