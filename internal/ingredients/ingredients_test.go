package ingredients

import (
	"context"
	"testing"

	"github.com/cartacocktail/carta-backend/pkg/db/dbtest"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientToggleAndDelete(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	icon := "leaf"
	mint, err := svc.Create(ctx, IngredientInput{Name: "Mint", Icon: &icon})
	require.NoError(t, err)
	assert.True(t, mint.IsAvailable)

	toggled, err := svc.Toggle(ctx, mint.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsAvailable)

	reloaded, err := svc.Get(ctx, mint.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsAvailable)

	_, err = svc.Create(ctx, IngredientInput{Name: "MINT"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	line := models.CocktailIngredient{SourceType: models.SourceTypeIngredient, IngredientID: &mint.ID, Quantity: 6}
	require.NoError(t, conn.Create(&line).Error)
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, mint.ID), pkgerrors.CodeConflict))
}

func TestIngredientCreateUnavailable(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)

	off := false
	created, err := svc.Create(context.Background(), IngredientInput{Name: "Egg white", IsAvailable: &off})
	require.NoError(t, err)
	assert.False(t, created.IsAvailable)
}

func TestIngredientNameConflictFoldsAccents(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, IngredientInput{Name: "ÉCORCE"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, IngredientInput{Name: "écorce"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Create(ctx, IngredientInput{Name: "écorces"})
	assert.NoError(t, err)
}
