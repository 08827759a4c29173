package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:catalog_%s?mode=memory&cache=shared", uuid.NewString())
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

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	svc, err := NewService(db.FromConn(conn), NewRepository(conn), ledgerSvc)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	return svc, conn
}

func TestService_CreatePooledProductRecordsInitialStock(t *testing.T) {
	svc, conn := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code:       "ch-pliante",
		Name:       "Folding Chair",
		Category:   enums.ProductCategorySeating,
		Type:       enums.ProductTypePooled,
		UnitPrice:  decimal.NewFromFloat(2.50),
		InitialQty: 200,
		Actor:      "warehouse",
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}
	if product.Code != "CH-PLIANTE" {
		t.Fatalf("code = %q, want upper-cased CH-PLIANTE", product.Code)
	}
	if product.AvailableQty != 200 || product.InitialQty != 200 {
		t.Fatalf("pooled counters = %d/%d, want 200/200", product.InitialQty, product.AvailableQty)
	}

	var movement models.StockMovement
	if err := conn.First(&movement, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("expected initial stock movement: %v", err)
	}
	if movement.Type != enums.MovementTypeInitialStock || movement.Qty != 200 || movement.QtyAfter != 200 {
		t.Fatalf("unexpected initial movement: %+v", movement)
	}
}

func TestService_CreateSerializedProductStartsEmpty(t *testing.T) {
	svc, conn := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code:      "PRJ-4K",
		Name:      "4K Projector",
		Category:  enums.ProductCategoryVideo,
		Type:      enums.ProductTypeSerialized,
		UnitPrice: decimal.NewFromInt(120),
		// Ignored: serialized stock enters through instance registration.
		InitialQty: 50,
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}
	if product.InitialQty != 0 || product.AvailableQty != 0 {
		t.Fatalf("serialized counters = %d/%d, want 0/0", product.InitialQty, product.AvailableQty)
	}

	var count int64
	if err := conn.Model(&models.StockMovement{}).Where("product_id = ?", product.ID).Count(&count).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != 0 {
		t.Fatalf("serialized creation wrote %d movements, want 0", count)
	}
}

func TestService_CreateProductDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)

	input := CreateProductInput{
		Code:      "TBL-RONDE",
		Name:      "Round Table",
		Category:  enums.ProductCategoryTables,
		Type:      enums.ProductTypePooled,
		UnitPrice: decimal.NewFromInt(8),
	}
	if _, err := svc.CreateProduct(context.Background(), input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateProduct(context.Background(), input)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate code, got %v", err)
	}
}

func TestService_UpdateProductEditableFields(t *testing.T) {
	svc, _ := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code:      "SPK-12",
		Name:      "12in Speaker",
		Category:  enums.ProductCategorySound,
		Type:      enums.ProductTypeSerialized,
		UnitPrice: decimal.NewFromInt(45),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	name := "12in Powered Speaker"
	price := decimal.NewFromInt(55)
	threshold := 1
	maintenance := true
	updated, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{
		Name:                &name,
		UnitPrice:           &price,
		CriticalThreshold:   &threshold,
		MaintenanceRequired: &maintenance,
	})
	if err != nil {
		t.Fatalf("UpdateProduct error: %v", err)
	}
	if updated.Name != name || !updated.UnitPrice.Equal(price) {
		t.Fatalf("unexpected updated fields: %+v", updated)
	}
	if updated.EffectiveCriticalThreshold() != 1 || !updated.MaintenanceRequired {
		t.Fatalf("threshold/maintenance not applied: %+v", updated)
	}
	if updated.Type != enums.ProductTypeSerialized {
		t.Fatalf("type changed unexpectedly: %s", updated.Type)
	}
}

func TestService_AdjustStock(t *testing.T) {
	svc, conn := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code:       "NAP-BLANC",
		Name:       "White Tablecloth",
		Category:   enums.ProductCategoryCatering,
		Type:       enums.ProductTypePooled,
		UnitPrice:  decimal.NewFromInt(3),
		InitialQty: 40,
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	adjusted, err := svc.AdjustStock(context.Background(), product.ID, AdjustStockInput{
		Delta: -5, Motif: "torn during cleaning", Actor: "laundry",
	})
	if err != nil {
		t.Fatalf("AdjustStock error: %v", err)
	}
	if adjusted.AvailableQty != 35 {
		t.Fatalf("available = %d, want 35", adjusted.AvailableQty)
	}

	var movement models.StockMovement
	err = conn.Where("product_id = ? AND type = ?", product.ID, enums.MovementTypeAdjustmentExit).First(&movement).Error
	if err != nil {
		t.Fatalf("expected adjustment_exit movement: %v", err)
	}
	if movement.Qty != 5 || movement.QtyBefore != 40 || movement.QtyAfter != 35 {
		t.Fatalf("unexpected adjustment movement: %+v", movement)
	}

	adjusted, err = svc.AdjustStock(context.Background(), product.ID, AdjustStockInput{
		Delta: 10, Motif: "found in annex warehouse", Actor: "warehouse",
	})
	if err != nil {
		t.Fatalf("AdjustStock entry error: %v", err)
	}
	if adjusted.AvailableQty != 45 {
		t.Fatalf("available = %d, want 45", adjusted.AvailableQty)
	}
}

func TestService_AdjustStockCannotGoNegative(t *testing.T) {
	svc, conn := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code:       "BAR-LED",
		Name:       "LED Bar",
		Category:   enums.ProductCategoryLighting,
		Type:       enums.ProductTypePooled,
		UnitPrice:  decimal.NewFromInt(15),
		InitialQty: 3,
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	_, err = svc.AdjustStock(context.Background(), product.ID, AdjustStockInput{
		Delta: -4, Motif: "write-off", Actor: "auditor",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInsufficientCapacity {
		t.Fatalf("expected insufficient capacity, got %v", err)
	}

	// The guarded update rolled back: counter untouched, no exit movement
	// beyond the initial stock row.
	fresh, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct error: %v", err)
	}
	if fresh.AvailableQty != 3 {
		t.Fatalf("available = %d, want 3", fresh.AvailableQty)
	}
	var count int64
	if err := conn.Model(&models.StockMovement{}).
		Where("product_id = ? AND type = ?", product.ID, enums.MovementTypeAdjustmentExit).
		Count(&count).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed adjustment left %d exit movements", count)
	}
}

func TestService_AdjustStockRejectsSerialized(t *testing.T) {
	svc, _ := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code:      "CAM-PTZ",
		Name:      "PTZ Camera",
		Category:  enums.ProductCategoryVideo,
		Type:      enums.ProductTypeSerialized,
		UnitPrice: decimal.NewFromInt(90),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	_, err = svc.AdjustStock(context.Background(), product.ID, AdjustStockInput{
		Delta: 1, Motif: "manual bump", Actor: "warehouse",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for serialized adjustment, got %v", err)
	}
}

func TestService_RecomputeAvailability(t *testing.T) {
	svc, conn := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code:      "MIC-SM58",
		Name:      "Vocal Microphone",
		Category:  enums.ProductCategorySound,
		Type:      enums.ProductTypeSerialized,
		UnitPrice: decimal.NewFromInt(12),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	statuses := []enums.InstanceStatus{
		enums.InstanceStatusAvailable,
		enums.InstanceStatusAvailable,
		enums.InstanceStatusInMaintenance,
		enums.InstanceStatusOutOfService,
	}
	for i, status := range statuses {
		instance := &models.Instance{
			ID:        uuid.New(),
			Serial:    fmt.Sprintf("MIC-SM58-2026-%03d", i+1),
			ProductID: product.ID,
			Status:    status,
			Condition: enums.InstanceConditionGood,
		}
		if err := conn.Create(instance).Error; err != nil {
			t.Fatalf("create instance: %v", err)
		}
	}

	count, err := svc.RecomputeAvailability(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("RecomputeAvailability error: %v", err)
	}
	if count != 2 {
		t.Fatalf("recomputed count = %d, want 2", count)
	}
	fresh, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct error: %v", err)
	}
	if fresh.AvailableQty != 2 {
		t.Fatalf("available = %d, want 2", fresh.AvailableQty)
	}
}

func TestService_ListCriticalProducts(t *testing.T) {
	svc, _ := newTestService(t)

	low := 0
	if _, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code: "OK-STOCK", Name: "Healthy Stock", Category: enums.ProductCategoryOther,
		Type: enums.ProductTypePooled, UnitPrice: decimal.NewFromInt(1),
		InitialQty: 50, CriticalThreshold: &low,
	}); err != nil {
		t.Fatalf("create healthy product: %v", err)
	}
	critical, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Code: "LOW-STOCK", Name: "Low Stock", Category: enums.ProductCategoryOther,
		Type: enums.ProductTypePooled, UnitPrice: decimal.NewFromInt(1),
		InitialQty: 4, // default pooled threshold is 5
	})
	if err != nil {
		t.Fatalf("create critical product: %v", err)
	}

	items, err := svc.ListCriticalProducts(context.Background())
	if err != nil {
		t.Fatalf("ListCriticalProducts error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("critical items = %d, want 1", len(items))
	}
	if items[0].Product.ID != critical.ID || items[0].Threshold != models.DefaultCriticalThresholdPooled {
		t.Fatalf("unexpected critical item: %+v", items[0])
	}
}

func TestService_ListProductsFilters(t *testing.T) {
	svc, _ := newTestService(t)

	for i, category := range []enums.ProductCategory{
		enums.ProductCategorySeating, enums.ProductCategorySeating, enums.ProductCategorySound,
	} {
		if _, err := svc.CreateProduct(context.Background(), CreateProductInput{
			Code:      fmt.Sprintf("FILT-%d", i),
			Name:      "Filter Fixture",
			Category:  category,
			Type:      enums.ProductTypePooled,
			UnitPrice: decimal.NewFromInt(1),
		}); err != nil {
			t.Fatalf("create product %d: %v", i, err)
		}
	}

	seating := enums.ProductCategorySeating
	result, err := svc.ListProducts(context.Background(), ListParams{Category: &seating})
	if err != nil {
		t.Fatalf("ListProducts error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("filtered items = %d, want 2", len(result.Items))
	}
	for _, item := range result.Items {
		if item.Category != seating {
			t.Fatalf("filter leaked category %s", item.Category)
		}
	}
}
