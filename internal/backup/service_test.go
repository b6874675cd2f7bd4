package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/dbtest"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedBar(t *testing.T, conn *gorm.DB) models.Cocktail {
	t.Helper()
	cl := dbtest.Unit(t, conn, "Centiliter", "cl", dbtest.Factor(10))
	rum := dbtest.Category(t, conn, "Rum", "SPIRIT", 1)
	havana := dbtest.Bottle(t, conn, "Havana 3", rum, 700, 60)
	mint := dbtest.Ingredient(t, conn, "Mint", true)

	cocktail := models.Cocktail{Name: "Mojito", IsAvailable: true, Tags: []string{"classic"}}
	require.NoError(t, conn.Create(&cocktail).Error)
	line := models.CocktailIngredient{
		CocktailID: cocktail.ID,
		SourceType: models.SourceTypeCategory,
		CategoryID: &rum.ID,
		Quantity:   5,
		UnitID:     &cl.ID,
	}
	require.NoError(t, conn.Create(&line).Error)
	require.NoError(t, conn.Create(&models.CocktailIngredientPreferredBottle{CocktailIngredientID: line.ID, BottleID: havana.ID}).Error)
	mintLine := models.CocktailIngredient{CocktailID: cocktail.ID, Position: 1, SourceType: models.SourceTypeIngredient, IngredientID: &mint.ID, Quantity: 6}
	require.NoError(t, conn.Create(&mintLine).Error)
	require.NoError(t, conn.Create(&models.CocktailInstruction{CocktailID: cocktail.ID, Text: "Muddle the mint"}).Error)

	menu := models.Menu{Name: "House", Slug: "house", Kind: models.MenuKindCocktails, IsPublic: true}
	require.NoError(t, conn.Create(&menu).Error)
	require.NoError(t, conn.Create(&models.MenuCocktail{MenuID: menu.ID, CocktailID: cocktail.ID}).Error)
	require.NoError(t, conn.Create(&models.Setting{Key: "bar_name", Value: "Le Zinc"}).Error)
	return cocktail
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestExportThenImportRestoresState(t *testing.T) {
	conn := dbtest.Open(t)
	cocktail := seedBar(t, conn)
	fixed := time.Date(2024, 1, 31, 22, 45, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{DB: db.NewFromGorm(conn), Now: func() time.Time { return fixed }})
	require.NoError(t, err)
	ctx := context.Background()

	exported, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "carta-backup-20240131-224500.json", exported.Filename)
	assert.Len(t, exported.Document.CocktailIngredients, 2)
	raw, err := json.Marshal(exported.Document)
	require.NoError(t, err)

	rum := dbtest.Category(t, conn, "Gin", "SPIRIT", 0)
	dbtest.Bottle(t, conn, "Extra", rum, 700, 100)
	require.NoError(t, conn.Where("cocktail_id = ?", cocktail.ID).Delete(&models.CocktailInstruction{}).Error)

	summary, err := svc.Import(ctx, bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 1, summary["cocktails"])
	assert.Equal(t, 1, summary["bottles"])

	assert.EqualValues(t, 1, countRows(t, conn, &models.Bottle{}))
	assert.EqualValues(t, 1, countRows(t, conn, &models.CocktailInstruction{}))
	assert.EqualValues(t, 1, countRows(t, conn, &models.CocktailIngredientPreferredBottle{}))
	assert.EqualValues(t, 1, countRows(t, conn, &models.MenuCocktail{}))

	var restored models.Cocktail
	require.NoError(t, conn.Where("id = ?", cocktail.ID).First(&restored).Error)
	assert.Equal(t, []string{"classic"}, restored.Tags)
}

func TestImportRejectsDanglingReferences(t *testing.T) {
	conn := dbtest.Open(t)
	seedBar(t, conn)
	svc, err := NewService(ServiceParams{DB: db.NewFromGorm(conn)})
	require.NoError(t, err)
	ctx := context.Background()

	exported, err := svc.Export(ctx)
	require.NoError(t, err)
	doc := exported.Document
	doc.Bottles[0].CategoryID = uuid.New()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = svc.Import(ctx, bytes.NewReader(raw))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["problems"], `bottle "Havana 3" references unknown category`)

	assert.EqualValues(t, 1, countRows(t, conn, &models.Cocktail{}))
}

func TestImportRejectsUnknownVersionAndGarbage(t *testing.T) {
	svc, err := NewService(ServiceParams{DB: dbtest.Client(t)})
	require.NoError(t, err)

	_, err = svc.Import(context.Background(), strings.NewReader(`{"version":7}`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Import(context.Background(), strings.NewReader(`not json`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
