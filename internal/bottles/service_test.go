package bottles

import (
	"context"
	"testing"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/db/dbtest"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCategory(t *testing.T, conn *gorm.DB, name string) models.Category {
	t.Helper()
	kind := models.CategoryType{Name: "SPIRIT-" + name}
	require.NoError(t, conn.Create(&kind).Error)
	cat := models.Category{Name: name, TypeID: kind.ID, DesiredStock: 1}
	require.NoError(t, conn.Create(&cat).Error)
	return cat
}

func intPtr(v int) *int { return &v }

func TestBottleCreateDefaultsAndList(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	rum := seedCategory(t, conn, "Rum")

	full, err := svc.Create(ctx, BottleInput{
		Name:          "Havana 3",
		CategoryID:    rum.ID,
		CapacityMl:    700,
		PurchasePrice: decimal.NewNullDecimal(decimal.RequireFromString("18.90")),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, full.RemainingPercent)
	assert.Equal(t, 700.0, full.RemainingMl)
	assert.Equal(t, "Rum", full.CategoryName)
	assert.True(t, full.PurchasePrice.Decimal.Equal(decimal.RequireFromString("18.9")))

	half, err := svc.Create(ctx, BottleInput{Name: "Diplomatico", CategoryID: rum.ID, CapacityMl: 700, RemainingPercent: intPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, 350.0, half.RemainingMl)

	_, err = svc.Empty(ctx, half.ID)
	require.NoError(t, err)

	active, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, full.ID, active[0].ID)

	all, err := svc.List(ctx, ListFilter{CategoryID: &rum.ID, IncludeEmptied: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBottleValidation(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	gin := seedCategory(t, conn, "Gin")

	_, err = svc.Create(ctx, BottleInput{Name: "x", CategoryID: gin.ID, CapacityMl: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, BottleInput{Name: "x", CategoryID: uuid.New(), CapacityMl: 700})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, BottleInput{Name: "x", CategoryID: gin.ID, CapacityMl: 700, RemainingPercent: intPtr(120)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBottleEmptyStampsOpenedAt(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	fixed := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	svc := &service{repo: repo, now: func() time.Time { return fixed }}
	ctx := context.Background()
	gin := seedCategory(t, conn, "Gin")

	created, err := svc.Create(ctx, BottleInput{Name: "Tanqueray", CategoryID: gin.ID, CapacityMl: 1000})
	require.NoError(t, err)
	emptied, err := svc.Empty(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, emptied.IsEmptied)
	require.NotNil(t, emptied.OpenedAt)
	assert.True(t, emptied.OpenedAt.Equal(fixed))
}

func TestBottleDeleteBlockedWhenReferenced(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	gin := seedCategory(t, conn, "Gin")

	bottle, err := svc.Create(ctx, BottleInput{Name: "Hendricks", CategoryID: gin.ID, CapacityMl: 700})
	require.NoError(t, err)

	line := models.CocktailIngredient{SourceType: models.SourceTypeCategory, CategoryID: &gin.ID, Quantity: 4}
	require.NoError(t, conn.Create(&line).Error)
	require.NoError(t, conn.Create(&models.CocktailIngredientPreferredBottle{CocktailIngredientID: line.ID, BottleID: bottle.ID}).Error)

	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, bottle.ID), pkgerrors.CodeConflict))

	require.NoError(t, conn.Where("bottle_id = ?", bottle.ID).Delete(&models.CocktailIngredientPreferredBottle{}).Error)
	require.NoError(t, svc.Delete(ctx, bottle.ID))
}
