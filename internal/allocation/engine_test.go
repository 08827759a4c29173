package allocation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marcvidal/eventstock-backend/internal/availability"
	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:allocation_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{},
		&models.Reservation{},
		&models.ReservationLine{},
		&models.Instance{},
		&models.StockMovement{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return conn
}

func newTestEngine(t *testing.T) (Engine, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	calc, err := availability.NewCalculator(availability.NewRepository(conn))
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	eng, err := NewEngine(db.FromConn(conn), NewRepository(conn), calc, ledgerSvc)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return eng, conn
}

func day(d int) time.Time {
	return time.Date(2026, time.August, d, 0, 0, 0, 0, time.UTC)
}

func mustCreatePooled(t *testing.T, conn *gorm.DB, available int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:           uuid.New(),
		Code:         "POOL-" + uuid.NewString()[:8],
		Name:         "Pooled Fixture",
		Category:     enums.ProductCategorySeating,
		Type:         enums.ProductTypePooled,
		UnitPrice:    decimal.NewFromInt(2),
		InitialQty:   available,
		AvailableQty: available,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func mustCreateSerialized(t *testing.T, conn *gorm.DB, serialCount int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:           uuid.New(),
		Code:         "SER-" + uuid.NewString()[:8],
		Name:         "Serialized Fixture",
		Category:     enums.ProductCategoryVideo,
		Type:         enums.ProductTypeSerialized,
		UnitPrice:    decimal.NewFromInt(50),
		AvailableQty: serialCount,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	for i := 1; i <= serialCount; i++ {
		instance := &models.Instance{
			ID:        uuid.New(),
			Serial:    fmt.Sprintf("P-%02d", i),
			ProductID: product.ID,
			Status:    enums.InstanceStatusAvailable,
			Condition: enums.InstanceConditionGood,
		}
		if err := conn.Create(instance).Error; err != nil {
			t.Fatalf("create instance: %v", err)
		}
	}
	return product
}

func mustCreateLine(t *testing.T, conn *gorm.DB, productID uuid.UUID, status enums.ReservationStatus, qty int, start, end time.Time) *models.ReservationLine {
	t.Helper()
	reservation := &models.Reservation{
		ID:           uuid.New(),
		Reference:    "RES-" + uuid.NewString()[:8],
		CustomerName: "Engine Fixture",
		Status:       status,
	}
	if err := conn.Create(reservation).Error; err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	line := &models.ReservationLine{
		ID:            uuid.New(),
		ReservationID: reservation.ID,
		ProductID:     productID,
		Qty:           qty,
		UnitPrice:     decimal.NewFromInt(2),
		StartDate:     start,
		EndDate:       end,
	}
	if err := conn.Create(line).Error; err != nil {
		t.Fatalf("create line: %v", err)
	}
	return line
}

func availableQty(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.AvailableQty
}

func movementsFor(t *testing.T, conn *gorm.DB, productID uuid.UUID, movementType enums.MovementType) []models.StockMovement {
	t.Helper()
	var rows []models.StockMovement
	if err := conn.Where("product_id = ? AND type = ?", productID, movementType).Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	return rows
}

func TestEngine_AllocatePooled(t *testing.T) {
	eng, conn := newTestEngine(t)
	product := mustCreatePooled(t, conn, 100)
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 30, day(1), day(3))

	result, err := eng.Allocate(context.Background(), AllocateInput{
		ProductID: product.ID, Quantity: 30, LineID: line.ID, Actor: "planner",
	})
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if len(result.BoundSerials) != 0 {
		t.Fatalf("pooled allocation bound serials: %v", result.BoundSerials)
	}
	if got := availableQty(t, conn, product.ID); got != 70 {
		t.Fatalf("counter = %d, want 70", got)
	}

	exits := movementsFor(t, conn, product.ID, enums.MovementTypeReservationExit)
	if len(exits) != 1 {
		t.Fatalf("exit movements = %d, want 1", len(exits))
	}
	if exits[0].Qty != 30 || exits[0].QtyBefore != 100 || exits[0].QtyAfter != 70 {
		t.Fatalf("unexpected exit movement: %+v", exits[0])
	}
	if exits[0].CorrelationID == nil || *exits[0].CorrelationID != line.ID {
		t.Fatalf("exit not correlated to line: %+v", exits[0])
	}
}

func TestEngine_AllocatePooledInsufficientCapacity(t *testing.T) {
	eng, conn := newTestEngine(t)
	product := mustCreatePooled(t, conn, 10)
	// A pending reservation holds most of the range.
	mustCreateLine(t, conn, product.ID, enums.ReservationStatusPending, 8, day(1), day(5))
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 5, day(2), day(4))

	_, err := eng.Allocate(context.Background(), AllocateInput{Quantity: 5, LineID: line.ID, Actor: "planner"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInsufficientCapacity {
		t.Fatalf("expected insufficient capacity, got %v", err)
	}
	details, ok := appErr.Details().(map[string]any)
	if !ok || details["requested"] != 5 || details["available"] != 2 {
		t.Fatalf("details = %v, want requested=5 available=2", appErr.Details())
	}

	// Nothing committed.
	if got := availableQty(t, conn, product.ID); got != 10 {
		t.Fatalf("counter = %d, want 10", got)
	}
	if exits := movementsFor(t, conn, product.ID, enums.MovementTypeReservationExit); len(exits) != 0 {
		t.Fatalf("failed allocation left %d exit movements", len(exits))
	}
}

func TestEngine_ProjectorScenario(t *testing.T) {
	eng, conn := newTestEngine(t)
	calc, err := availability.NewCalculator(availability.NewRepository(conn))
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}

	product := mustCreateSerialized(t, conn, 5)
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 3, day(10), day(12))

	result, err := eng.Allocate(context.Background(), AllocateInput{Quantity: 3, LineID: line.ID, Actor: "planner"})
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	want := []string{"P-01", "P-02", "P-03"}
	if len(result.BoundSerials) != 3 {
		t.Fatalf("bound = %v, want %v", result.BoundSerials, want)
	}
	for i := range want {
		if result.BoundSerials[i] != want[i] {
			t.Fatalf("bound = %v, want lowest serials first %v", result.BoundSerials, want)
		}
	}

	check, err := calc.Check(context.Background(), availability.Query{
		ProductID: product.ID, Quantity: 2, StartDate: day(11), EndDate: day(13),
	})
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !check.Available || check.Remaining != 2 {
		t.Fatalf("after binding 3 of 5: %+v, want available with remaining 2", check)
	}

	resized, err := eng.Resize(context.Background(), line.ID, 1, "planner")
	if err != nil {
		t.Fatalf("Resize error: %v", err)
	}
	if len(resized.BoundSerials) != 1 || resized.BoundSerials[0] != "P-03" {
		t.Fatalf("after shrink bound = %v, want [P-03]", resized.BoundSerials)
	}

	var availableCount int64
	conn.Model(&models.Instance{}).Where("product_id = ? AND status = ?", product.ID, enums.InstanceStatusAvailable).Count(&availableCount)
	if availableCount != 4 {
		t.Fatalf("available instances = %d, want 4", availableCount)
	}
	var reloaded models.ReservationLine
	if err := conn.First(&reloaded, "id = ?", line.ID).Error; err != nil {
		t.Fatalf("reload line: %v", err)
	}
	if reloaded.Qty != 1 {
		t.Fatalf("line qty = %d, want 1", reloaded.Qty)
	}
}

func TestEngine_AllocateSerializedInsufficientCapacity(t *testing.T) {
	eng, conn := newTestEngine(t)
	product := mustCreateSerialized(t, conn, 2)
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 3, day(1), day(2))

	_, err := eng.Allocate(context.Background(), AllocateInput{Quantity: 3, LineID: line.ID, Actor: "planner"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInsufficientCapacity {
		t.Fatalf("expected insufficient capacity, got %v", err)
	}

	// No partial binding survives the rollback.
	var bound int64
	conn.Model(&models.Instance{}).Where("reservation_line_id = ?", line.ID).Count(&bound)
	if bound != 0 {
		t.Fatalf("partial allocation left %d bound instances", bound)
	}
}

func TestEngine_ReleaseRoundTripConservation(t *testing.T) {
	eng, conn := newTestEngine(t)
	product := mustCreatePooled(t, conn, 50)
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 20, day(1), day(3))

	if _, err := eng.Allocate(context.Background(), AllocateInput{Quantity: 20, LineID: line.ID, Actor: "planner"}); err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if err := eng.Release(context.Background(), line.ID, "planner"); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if got := availableQty(t, conn, product.ID); got != 50 {
		t.Fatalf("counter after round trip = %d, want 50", got)
	}

	// Ledger pairing: one exit, one entry, equal magnitudes, same
	// correlation.
	exits := movementsFor(t, conn, product.ID, enums.MovementTypeReservationExit)
	returns := movementsFor(t, conn, product.ID, enums.MovementTypeReservationReturn)
	if len(exits) != 1 || len(returns) != 1 {
		t.Fatalf("movements = %d exits / %d returns, want 1/1", len(exits), len(returns))
	}
	if exits[0].Qty != returns[0].Qty {
		t.Fatalf("pairing broken: exit %d vs return %d", exits[0].Qty, returns[0].Qty)
	}
	if *returns[0].CorrelationID != line.ID {
		t.Fatalf("return not correlated to line")
	}
}

func TestEngine_ReleaseSerializedWritesPerUnitRows(t *testing.T) {
	eng, conn := newTestEngine(t)
	product := mustCreateSerialized(t, conn, 3)
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 3, day(1), day(3))

	if _, err := eng.Allocate(context.Background(), AllocateInput{Quantity: 3, LineID: line.ID, Actor: "planner"}); err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if err := eng.Release(context.Background(), line.ID, "planner"); err != nil {
		t.Fatalf("Release error: %v", err)
	}

	returns := movementsFor(t, conn, product.ID, enums.MovementTypeReservationReturn)
	if len(returns) != 3 {
		t.Fatalf("return rows = %d, want one per unit", len(returns))
	}
	for _, movement := range returns {
		if movement.Qty != 1 || len(movement.Serials) != 1 || !movement.Consistent() {
			t.Fatalf("bad return row: %+v", movement)
		}
	}
	if got := availableQty(t, conn, product.ID); got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}
	var bound int64
	conn.Model(&models.Instance{}).Where("reservation_line_id = ?", line.ID).Count(&bound)
	if bound != 0 {
		t.Fatalf("%d instances still bound after release", bound)
	}
}

func TestEngine_ReleaseInstance(t *testing.T) {
	eng, conn := newTestEngine(t)
	product := mustCreateSerialized(t, conn, 2)
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 2, day(1), day(3))

	result, err := eng.Allocate(context.Background(), AllocateInput{Quantity: 2, LineID: line.ID, Actor: "planner"})
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}

	var first models.Instance
	if err := conn.First(&first, "serial = ?", result.BoundSerials[0]).Error; err != nil {
		t.Fatalf("load instance: %v", err)
	}
	if err := eng.ReleaseInstance(context.Background(), first.ID, "warehouse"); err != nil {
		t.Fatalf("ReleaseInstance error: %v", err)
	}

	var bound int64
	conn.Model(&models.Instance{}).Where("reservation_line_id = ?", line.ID).Count(&bound)
	if bound != 1 {
		t.Fatalf("bound = %d, want 1 after partial release", bound)
	}

	// Releasing an unbound instance is a state conflict.
	err = eng.ReleaseInstance(context.Background(), first.ID, "warehouse")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestEngine_ResizeGrowPooled(t *testing.T) {
	eng, conn := newTestEngine(t)
	product := mustCreatePooled(t, conn, 10)
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 4, day(1), day(3))

	if _, err := eng.Allocate(context.Background(), AllocateInput{Quantity: 4, LineID: line.ID, Actor: "planner"}); err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if _, err := eng.Resize(context.Background(), line.ID, 6, "planner"); err != nil {
		t.Fatalf("Resize error: %v", err)
	}
	if got := availableQty(t, conn, product.ID); got != 4 {
		t.Fatalf("counter = %d, want 4", got)
	}

	// Growing beyond capacity fails whole, leaving the line at its quantity.
	_, err := eng.Resize(context.Background(), line.ID, 20, "planner")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInsufficientCapacity {
		t.Fatalf("expected insufficient capacity, got %v", err)
	}
	var reloaded models.ReservationLine
	if err := conn.First(&reloaded, "id = ?", line.ID).Error; err != nil {
		t.Fatalf("reload line: %v", err)
	}
	if reloaded.Qty != 6 {
		t.Fatalf("failed grow changed line qty to %d, want 6", reloaded.Qty)
	}
	if got := availableQty(t, conn, product.ID); got != 4 {
		t.Fatalf("failed grow changed counter to %d, want 4", got)
	}
}

func TestEngine_ResizeShrinkPooled(t *testing.T) {
	eng, conn := newTestEngine(t)
	product := mustCreatePooled(t, conn, 10)
	line := mustCreateLine(t, conn, product.ID, enums.ReservationStatusConfirmed, 6, day(1), day(3))

	if _, err := eng.Allocate(context.Background(), AllocateInput{Quantity: 6, LineID: line.ID, Actor: "planner"}); err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if _, err := eng.Resize(context.Background(), line.ID, 2, "planner"); err != nil {
		t.Fatalf("Resize error: %v", err)
	}
	if got := availableQty(t, conn, product.ID); got != 8 {
		t.Fatalf("counter = %d, want 8", got)
	}

	returns := movementsFor(t, conn, product.ID, enums.MovementTypeReservationReturn)
	if len(returns) != 1 || returns[0].Qty != 4 {
		t.Fatalf("shrink return rows = %+v, want one row of 4", returns)
	}
}
