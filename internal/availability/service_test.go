package availability

import (
	"context"
	"testing"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/pkg/db/dbtest"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLoadsSnapshotFromDatabase(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	cl := dbtest.Unit(t, conn, "Centiliter", "cl", dbtest.Factor(10))
	gin := dbtest.Category(t, conn, "Gin", "SPIRIT", 1)
	bottle := dbtest.Bottle(t, conn, "Tanqueray", gin, 700, 100)
	tonic := dbtest.Ingredient(t, conn, "Tonic", true)

	cocktail := models.Cocktail{Name: "Gin Tonic", IsAvailable: true, Ingredients: []models.CocktailIngredient{
		{Position: 0, SourceType: models.SourceTypeBottle, BottleID: &bottle.ID, Quantity: 5, UnitID: &cl.ID},
		{Position: 1, SourceType: models.SourceTypeIngredient, IngredientID: &tonic.ID, Quantity: 1},
	}}
	repo := cocktails.NewRepository(conn)
	require.NoError(t, repo.Create(ctx, &cocktail))

	svc, err := NewService(conn, repo, defaultThresholds)
	require.NoError(t, err)

	all, err := svc.ForAll(ctx)
	require.NoError(t, err)
	require.Contains(t, all, cocktail.ID)
	assert.Equal(t, 14, all[cocktail.ID].MaxServings)

	one, err := svc.ForCocktail(ctx, cocktail.ID)
	require.NoError(t, err)
	assert.True(t, one.IsAvailable)

	_, err = svc.ForCocktail(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
