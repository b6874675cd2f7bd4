package cocktails

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/dbtest"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubImages struct {
	saved   []string
	deleted []string
}

func (s *stubImages) SaveImage(_ context.Context, folder string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	path := "/uploads/" + folder + "/" + uuid.NewString() + ".png"
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *stubImages) Delete(_ context.Context, path string) error {
	s.deleted = append(s.deleted, path)
	return nil
}

type fixture struct {
	conn   *gorm.DB
	svc    Service
	images *stubImages
	cl     models.Unit
	rum    models.Category
	havana models.Bottle
	lime   models.Ingredient
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	images := &stubImages{}
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), DB: db.NewFromGorm(conn), Images: images})
	require.NoError(t, err)
	rum := dbtest.Category(t, conn, "Rum", "SPIRIT", 1)
	return fixture{
		conn:   conn,
		svc:    svc,
		images: images,
		cl:     dbtest.Unit(t, conn, "Centiliter", "cl", dbtest.Factor(10)),
		rum:    rum,
		havana: dbtest.Bottle(t, conn, "Havana 3", rum, 700, 100),
		lime:   dbtest.Ingredient(t, conn, "Lime", true),
	}
}

func (f fixture) daiquiri(name string) CocktailInput {
	return CocktailInput{
		Name: name,
		Tags: []string{" Sour ", "rum", "sour"},
		Ingredients: []LineInput{
			{SourceType: models.SourceTypeCategory, CategoryID: &f.rum.ID, PreferredBottleIDs: []uuid.UUID{f.havana.ID}, Quantity: 6, UnitID: &f.cl.ID},
			{SourceType: models.SourceTypeIngredient, IngredientID: &f.lime.ID, Quantity: 1},
		},
		Instructions: []InstructionInput{{Text: "Shake"}, {Text: "Strain"}},
	}
}

func TestCreateAndGetCocktail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.daiquiri("Daiquiri"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sour", "rum"}, created.Tags)
	assert.True(t, created.IsAvailable)
	require.Len(t, created.Ingredients, 2)
	assert.Equal(t, "Rum", created.Ingredients[0].Name)
	assert.Equal(t, "cl", created.Ingredients[0].UnitAbbreviation)
	assert.Equal(t, []uuid.UUID{f.havana.ID}, created.Ingredients[0].PreferredBottleIDs)
	assert.Equal(t, "Lime", created.Ingredients[1].Name)
	require.Len(t, created.Instructions, 2)
	assert.Equal(t, "Strain", created.Instructions[1].Text)

	_, err = f.svc.Create(ctx, f.daiquiri("daiquiri"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()
	input := f.daiquiri("Ghost")
	input.Ingredients = append(input.Ingredients, LineInput{SourceType: models.SourceTypeBottle, BottleID: &missing, Quantity: 2})

	_, err := f.svc.Create(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, f.conn.Model(&models.Cocktail{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateReplacesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.daiquiri("Daiquiri"))
	require.NoError(t, err)

	input := f.daiquiri("Daiquiri No. 2")
	input.Ingredients = input.Ingredients[:1]
	input.Instructions = []InstructionInput{{Text: "Blend"}}
	updated, err := f.svc.Update(ctx, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Daiquiri No. 2", updated.Name)
	assert.Len(t, updated.Ingredients, 1)
	assert.Len(t, updated.Instructions, 1)

	var lines int64
	require.NoError(t, f.conn.Model(&models.CocktailIngredient{}).Count(&lines).Error)
	assert.EqualValues(t, 1, lines)
	var preferred int64
	require.NoError(t, f.conn.Model(&models.CocktailIngredientPreferredBottle{}).Count(&preferred).Error)
	assert.EqualValues(t, 1, preferred)
}

func TestListFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Daiquiri", "Mojito", "Hemingway"} {
		_, err := f.svc.Create(ctx, f.daiquiri(name))
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, CocktailInput{Name: "Negroni", Tags: []string{"bitter"}})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, ListInput{Tag: "SOUR", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.List(ctx, ListInput{Tag: "sour", Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)

	seen := map[string]bool{}
	for _, item := range append(page.Items, next.Items...) {
		seen[item.Name] = true
	}
	assert.Len(t, seen, 3)

	search, err := f.svc.List(ctx, ListInput{Search: "groni"})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "Negroni", search.Items[0].Name)

	_, err = f.svc.List(ctx, ListInput{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetImageReplacesPreviousFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.daiquiri("Daiquiri"))
	require.NoError(t, err)

	first, err := f.svc.SetImage(ctx, created.ID, bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	require.NotNil(t, first.ImagePath)

	second, err := f.svc.SetImage(ctx, created.ID, bytes.NewReader([]byte("two")))
	require.NoError(t, err)
	assert.NotEqual(t, *first.ImagePath, *second.ImagePath)
	assert.Equal(t, []string{*first.ImagePath}, f.images.deleted)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	assert.Contains(t, f.images.deleted, *second.ImagePath)

	_, err = f.svc.Get(ctx, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
