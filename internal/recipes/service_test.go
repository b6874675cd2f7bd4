package recipes

import (
	"context"
	"testing"
	"time"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/dbtest"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) ObserveImport(stage, outcome string, _ time.Duration) {
	o.events = append(o.events, stage+":"+outcome)
}

func newTestService(t *testing.T) (Service, *gorm.DB, *recordingObserver) {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.NewFromGorm(conn)
	cocktailSvc, err := cocktails.NewService(cocktails.ServiceParams{Repo: cocktails.NewRepository(conn), DB: client})
	require.NoError(t, err)
	observer := &recordingObserver{}
	svc, err := NewService(ServiceParams{
		DB:        client,
		Cocktails: cocktailSvc,
		Observer:  observer,
		Now:       func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc, conn, observer
}

func mojito() *Document {
	return &Document{
		Version: 1,
		Cocktail: CocktailDoc{
			Name: "Mojito",
			Tags: []string{"rum", "fresh"},
			Ingredients: []LineDoc{
				{SourceType: "INGREDIENT", Quantity: 8, Ref: Ref{Name: "mint"}},
				{SourceType: "INGREDIENT", Quantity: 2, Ref: Ref{Name: "Lime"}, Unit: &UnitRef{Name: "Centiliter", Abbreviation: "cl", ConversionFactorToMl: dbtest.Factor(10)}},
			},
			Instructions: []InstructionDoc{{Text: "Muddle the mint"}, {Text: "Top with soda"}},
		},
	}
}

func TestMojitoImportEndToEnd(t *testing.T) {
	svc, conn, observer := newTestService(t)
	ctx := context.Background()
	cl := dbtest.Unit(t, conn, "Centiliter", "cl", dbtest.Factor(10))
	dbtest.Ingredient(t, conn, "Lime", true)

	doc := mojito()
	preview, err := svc.Preview(ctx, doc)
	require.NoError(t, err)
	require.Len(t, preview.Units, 1)
	assert.Equal(t, StatusMatched, preview.Units[0].Status)
	assert.Equal(t, cl.ID, preview.Units[0].ExistingMatch.ID)
	require.Len(t, preview.Ingredients, 2)
	assert.Equal(t, "mint", preview.Ingredients[0].Key)
	assert.Equal(t, StatusMissing, preview.Ingredients[0].Status)
	assert.Equal(t, StatusMatched, preview.Ingredients[1].Status)
	assert.Equal(t, 1, preview.MissingCount)

	created, err := svc.Confirm(ctx, ConfirmRequest{Recipe: *doc, Resolutions: AutoResolve(preview)})
	require.NoError(t, err)
	assert.Equal(t, "Mojito", created.Name)
	require.Len(t, created.Ingredients, 2)
	assert.Equal(t, "mint", created.Ingredients[0].Name)
	assert.Equal(t, &cl.ID, created.Ingredients[1].UnitID)
	require.Len(t, created.Instructions, 2)

	var mint models.Ingredient
	require.NoError(t, conn.Where("name = ?", "mint").First(&mint).Error)
	assert.True(t, mint.IsAvailable)

	var units int64
	require.NoError(t, conn.Model(&models.Unit{}).Count(&units).Error)
	assert.EqualValues(t, 1, units)
	assert.Equal(t, []string{"preview:ok", "confirm:ok"}, observer.events)
}

func TestPreviewAllMatched(t *testing.T) {
	svc, conn, _ := newTestService(t)
	dbtest.Unit(t, conn, "Centiliter", "CL", dbtest.Factor(10))
	dbtest.Ingredient(t, conn, "Mint", true)
	dbtest.Ingredient(t, conn, "lime", true)

	preview, err := svc.Preview(context.Background(), mojito())
	require.NoError(t, err)
	assert.Zero(t, preview.MissingCount)

	res := AutoResolve(preview)
	for _, entry := range preview.Ingredients {
		assert.Equal(t, ActionUseExisting, res.Ingredients[entry.Key].Action)
	}
}

func TestPreviewPrefersExactCaseThenOldest(t *testing.T) {
	svc, conn, _ := newTestService(t)
	dbtest.Unit(t, conn, "Centilitre", "CL", dbtest.Factor(10))
	exact := dbtest.Unit(t, conn, "Centiliter", "cl", dbtest.Factor(10))
	oldest := dbtest.Ingredient(t, conn, "MINT", true)
	dbtest.Ingredient(t, conn, "Mint", true)
	dbtest.Ingredient(t, conn, "LIME", true)

	preview, err := svc.Preview(context.Background(), mojito())
	require.NoError(t, err)
	assert.Equal(t, exact.ID, preview.Units[0].ExistingMatch.ID)
	assert.Equal(t, oldest.ID, preview.Ingredients[0].ExistingMatch.ID)
}

func TestPreviewMatchesAccentedNamesAcrossCase(t *testing.T) {
	svc, conn, _ := newTestService(t)
	zest := dbtest.Ingredient(t, conn, "ÉCORCE D'ORANGE", true)

	doc := &Document{
		Version: 1,
		Cocktail: CocktailDoc{
			Name:        "Old Fashioned",
			Ingredients: []LineDoc{{SourceType: "INGREDIENT", Quantity: 1, Ref: Ref{Name: "écorce d'orange"}}},
		},
	}
	preview, err := svc.Preview(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, preview.Ingredients, 1)
	assert.Equal(t, StatusMatched, preview.Ingredients[0].Status)
	assert.Equal(t, zest.ID, preview.Ingredients[0].ExistingMatch.ID)
	assert.Zero(t, preview.MissingCount)
}

func TestPreviewRejectsInvalidDocument(t *testing.T) {
	svc, _, observer := newTestService(t)
	_, err := svc.Preview(context.Background(), &Document{Version: 3})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, []string{"preview:invalid"}, observer.events)
}

func TestConfirmCreatesBottleFullRegardlessOfExport(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	doc := &Document{Version: 1, Cocktail: CocktailDoc{
		Name: "Daiquiri",
		Ingredients: []LineDoc{
			{SourceType: "BOTTLE", Quantity: 6, Ref: Ref{Name: "Havana 3", CategoryName: "Rum"}},
		},
	}}

	preview, err := svc.Preview(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, preview.MissingCount)

	res := AutoResolve(preview)
	bottle := res.Bottles["havana 3"]
	bottle.Data.CapacityMl = 0
	res.Bottles["havana 3"] = bottle

	created, err := svc.Confirm(ctx, ConfirmRequest{Recipe: *doc, Resolutions: res})
	require.NoError(t, err)
	require.Len(t, created.Ingredients, 1)

	var row models.Bottle
	require.NoError(t, conn.Preload("Category.Type").Where("name = ?", "Havana 3").First(&row).Error)
	assert.Equal(t, 700, row.CapacityMl)
	assert.Equal(t, 100, row.RemainingPercent)
	assert.Equal(t, "Rum", row.Category.Name)
	assert.Equal(t, "SPIRIT", row.Category.Type.Name)
	assert.Equal(t, 1, row.Category.DesiredStock)
}

func TestConfirmRejectsNegativeExportedDesiredStock(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	stock := -2
	doc := &Document{Version: 1, Cocktail: CocktailDoc{
		Name: "Rum Punch",
		Ingredients: []LineDoc{
			{SourceType: "CATEGORY", Quantity: 4, Ref: Ref{Name: "Rum", Type: "SPIRIT", DesiredStock: &stock}},
		},
	}}

	preview, err := svc.Preview(ctx, doc)
	require.NoError(t, err)
	res := AutoResolve(preview)
	assert.Equal(t, -2, res.Categories["rum"].Data.DesiredStock)

	_, err = svc.Confirm(ctx, ConfirmRequest{Recipe: *doc, Resolutions: res})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, pkgerrors.As(err).Details(), `category "rum": desiredStock cannot be negative`)

	var count int64
	require.NoError(t, conn.Model(&models.Category{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConfirmSkippedBottleDropsLines(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	rum := dbtest.Category(t, conn, "Rum", "SPIRIT", 1)
	dbtest.Ingredient(t, conn, "Lime", true)
	doc := &Document{Version: 1, Cocktail: CocktailDoc{
		Name: "Daiquiri",
		Ingredients: []LineDoc{
			{SourceType: "BOTTLE", Quantity: 6, Ref: Ref{Name: "Havana 3", CategoryName: "Rum"}},
			{SourceType: "CATEGORY", Quantity: 6, Ref: Ref{Name: "Rum"}, PreferredBottles: []BottleRef{{Name: "Havana 3", CategoryName: "Rum"}}},
			{SourceType: "INGREDIENT", Quantity: 1, Ref: Ref{Name: "Lime"}},
		},
	}}

	preview, err := svc.Preview(ctx, doc)
	require.NoError(t, err)
	res := AutoResolve(preview)
	res.Bottles["havana 3"] = Resolution[BottleData]{Action: ActionSkip}

	created, err := svc.Confirm(ctx, ConfirmRequest{Recipe: *doc, Resolutions: res})
	require.NoError(t, err)
	require.Len(t, created.Ingredients, 2)
	assert.Equal(t, &rum.ID, created.Ingredients[0].CategoryID)
	assert.Empty(t, created.Ingredients[0].PreferredBottleIDs)
	assert.Equal(t, 0, created.Ingredients[0].Position)
}

func TestConfirmFailsWithoutResolutionAndRollsBack(t *testing.T) {
	svc, conn, observer := newTestService(t)
	ctx := context.Background()
	dbtest.Unit(t, conn, "Centiliter", "cl", dbtest.Factor(10))

	res := NewResolutions()
	res.Ingredients["lime"] = Resolution[IngredientData]{Action: ActionCreate, Data: &IngredientData{Name: "Lime"}}

	_, err := svc.Confirm(ctx, ConfirmRequest{Recipe: *mojito(), Resolutions: res})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, []string{`ingredient "mint" has no resolution`}, typed.Details())

	var count int64
	require.NoError(t, conn.Model(&models.Ingredient{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, []string{"confirm:invalid"}, observer.events)
}

func TestConfirmRejectsDuplicateCocktail(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	doc := &Document{Version: 1, Cocktail: CocktailDoc{Name: "Mojito"}}
	require.NoError(t, conn.Create(&models.Cocktail{Name: "Mojito", IsAvailable: true}).Error)

	_, err := svc.Confirm(ctx, ConfirmRequest{Recipe: *doc, Resolutions: NewResolutions()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestConfirmRejectsSkipOutsideBottles(t *testing.T) {
	svc, _, _ := newTestService(t)
	res := NewResolutions()
	res.Ingredients["mint"] = Resolution[IngredientData]{Action: ActionSkip}
	res.Ingredients["lime"] = Resolution[IngredientData]{Action: ActionCreate}
	res.Units["cl"] = Resolution[UnitData]{Action: ActionCreate}

	_, err := svc.Confirm(context.Background(), ConfirmRequest{Recipe: *mojito(), Resolutions: res})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, []string{`ingredient "mint": action "skip" is not allowed`}, typed.Details())
}

func TestExportRoundTripsThroughImport(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	cl := dbtest.Unit(t, conn, "Centiliter", "cl", dbtest.Factor(10))
	rum := dbtest.Category(t, conn, "Rum", "SPIRIT", 2)
	havana := dbtest.Bottle(t, conn, "Havana 3", rum, 700, 40)
	lime := dbtest.Ingredient(t, conn, "Lime", true)

	cocktailSvc, err := cocktails.NewService(cocktails.ServiceParams{Repo: cocktails.NewRepository(conn), DB: db.NewFromGorm(conn)})
	require.NoError(t, err)
	original, err := cocktailSvc.Create(ctx, cocktails.CocktailInput{
		Name: "Daïquiri Spécial",
		Tags: []string{"sour"},
		Ingredients: []cocktails.LineInput{
			{SourceType: models.SourceTypeCategory, CategoryID: &rum.ID, PreferredBottleIDs: []uuid.UUID{havana.ID}, Quantity: 6, UnitID: &cl.ID},
			{SourceType: models.SourceTypeIngredient, IngredientID: &lime.ID, Quantity: 1},
		},
		Instructions: []cocktails.InstructionInput{{Text: "Shake hard"}},
	})
	require.NoError(t, err)

	exported, err := svc.Export(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "daiquiri-special.json", exported.Filename)
	doc := exported.Document
	assert.Equal(t, 1, doc.Version)
	require.Len(t, doc.Cocktail.Ingredients, 2)
	line := doc.Cocktail.Ingredients[0]
	assert.Equal(t, "Rum", line.Ref.Name)
	assert.Equal(t, "SPIRIT", line.Ref.Type)
	assert.Equal(t, 2, *line.Ref.DesiredStock)
	assert.Equal(t, []BottleRef{{Name: "Havana 3", CategoryName: "Rum"}}, line.PreferredBottles)
	assert.Equal(t, "cl", line.Unit.Abbreviation)

	doc.Cocktail.Name = "Daiquiri Copy"
	preview, err := svc.Preview(ctx, doc)
	require.NoError(t, err)
	assert.Zero(t, preview.MissingCount)
	copyDTO, err := svc.Confirm(ctx, ConfirmRequest{Recipe: *doc, Resolutions: AutoResolve(preview)})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{havana.ID}, copyDTO.Ingredients[0].PreferredBottleIDs)
}

func TestExportUnknownCocktail(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Export(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
