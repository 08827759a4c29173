package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcvidal/eventstock-backend/pkg/db/models"
	"github.com/marcvidal/eventstock-backend/pkg/enums"
)

func TestRepository_AdjustAvailableQtyGuard(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := &models.Product{
		ID:           uuid.New(),
		Code:         "CHR-PLI",
		Name:         "Folding chair",
		Category:     enums.ProductCategorySeating,
		Type:         enums.ProductTypePooled,
		UnitPrice:    decimal.NewFromInt(3),
		InitialQty:   10,
		AvailableQty: 10,
	}
	require.NoError(t, repo.Create(ctx, product))

	ok, err := repo.AdjustAvailableQty(ctx, product.ID, -4)
	require.NoError(t, err)
	assert.True(t, ok)

	// a decrement past zero must not apply
	ok, err = repo.AdjustAvailableQty(ctx, product.ID, -7)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, fresh.AvailableQty)

	ok, err = repo.AdjustAvailableQty(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	fresh, err = repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, fresh.AvailableQty)
}

func TestRepository_ListCriticalUsesExplicitAndDefaultThresholds(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	three := 3
	critical := &models.Product{
		ID:                uuid.New(),
		Code:              "SPK-12",
		Name:              "12in speaker",
		Category:          enums.ProductCategorySound,
		Type:              enums.ProductTypePooled,
		UnitPrice:         decimal.NewFromInt(80),
		AvailableQty:      3,
		CriticalThreshold: &three,
	}
	require.NoError(t, repo.Create(ctx, critical))

	healthy := &models.Product{
		ID:           uuid.New(),
		Code:         "SPK-15",
		Name:         "15in speaker",
		Category:     enums.ProductCategorySound,
		Type:         enums.ProductTypePooled,
		UnitPrice:    decimal.NewFromInt(120),
		AvailableQty: 40,
	}
	require.NoError(t, repo.Create(ctx, healthy))

	// no explicit threshold: pooled default of 5 applies
	defaulted := &models.Product{
		ID:           uuid.New(),
		Code:         "TBL-BUF",
		Name:         "Buffet table",
		Category:     enums.ProductCategoryTables,
		Type:         enums.ProductTypePooled,
		UnitPrice:    decimal.NewFromInt(25),
		AvailableQty: 5,
	}
	require.NoError(t, repo.Create(ctx, defaulted))

	rows, err := repo.ListCritical(ctx)
	require.NoError(t, err)

	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, row.Code)
	}
	assert.ElementsMatch(t, []string{"SPK-12", "TBL-BUF"}, codes)
}
