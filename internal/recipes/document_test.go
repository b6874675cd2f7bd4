package recipes

import (
	"testing"

	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsMinimalDocument(t *testing.T) {
	doc, err := Parse([]byte(`{"version":1,"cocktail":{"name":"Mojito","ingredients":[],"instructions":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, "Mojito", doc.Cocktail.Name)
}

func TestParseRejectsBrokenJSON(t *testing.T) {
	_, err := Parse([]byte(`{"version":`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestValidateAggregatesProblems(t *testing.T) {
	doc := Document{
		Version: 2,
		Cocktail: CocktailDoc{
			Ingredients: []LineDoc{
				{SourceType: "GARNISH", Ref: Ref{Name: "Mint"}},
				{SourceType: "INGREDIENT"},
			},
		},
	}
	err := doc.Validate()
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().([]string)
	require.True(t, ok)
	assert.Len(t, details, 4)
	assert.Contains(t, details[0], "unsupported version 2")
	assert.Contains(t, details[1], "cocktail.name is required")
	assert.Contains(t, details[2], `unknown sourceType "GARNISH"`)
	assert.Contains(t, details[3], "ingredients[1]: ref.name is required")
}

func TestEntityKeys(t *testing.T) {
	assert.Equal(t, "cl", UnitKey("Centiliter", " CL "))
	assert.Equal(t, "dash", UnitKey(" Dash ", ""))
	assert.Equal(t, "white rum", NameKey(" White Rum"))
	assert.Equal(t, "écorce", NameKey("ÉCORCE"))
}

func TestCollectReferencesFirstReferenceWins(t *testing.T) {
	doc := &Document{Version: 1, Cocktail: CocktailDoc{Name: "Test", Ingredients: []LineDoc{
		{SourceType: "BOTTLE", Ref: Ref{Name: "Havana 3", CategoryName: "Rum"}, Unit: &UnitRef{Name: "Centiliter", Abbreviation: "cl"}},
		{SourceType: "CATEGORY", Ref: Ref{Name: "rum", Type: "SPIRIT"}, Unit: &UnitRef{Name: "centilitre", Abbreviation: "CL"},
			PreferredBottles: []BottleRef{{Name: "Havana 7", CategoryName: "Rum"}}},
		{SourceType: "INGREDIENT", Ref: Ref{Name: "Mint"}},
	}}}

	refs := CollectReferences(doc)
	assert.Equal(t, []string{"cl"}, refs.Units.Keys)
	assert.Equal(t, "Centiliter", refs.Units.Refs["cl"].Name)
	assert.Equal(t, []string{"rum"}, refs.Categories.Keys)
	assert.Equal(t, "Rum", refs.Categories.Refs["rum"].Name)
	assert.Equal(t, []string{"havana 3", "havana 7"}, refs.Bottles.Keys)
	assert.Equal(t, []string{"mint"}, refs.Ingredients.Keys)
}

func TestDefaults(t *testing.T) {
	stock := 3
	assert.Equal(t, CategoryData{Name: "Gin", Type: "SPIRIT", DesiredStock: 1}, DefaultCategory(EntityRef{Name: "Gin"}))
	assert.Equal(t, CategoryData{Name: "Vermouth", Type: "WINE", DesiredStock: 3}, DefaultCategory(EntityRef{Name: "Vermouth", Type: "WINE", DesiredStock: &stock}))
	zero, negative := 0, -2
	assert.Equal(t, 1, DefaultCategory(EntityRef{Name: "Gin", DesiredStock: &zero}).DesiredStock)
	assert.Equal(t, -2, DefaultCategory(EntityRef{Name: "Gin", DesiredStock: &negative}).DesiredStock)
	assert.Equal(t, BottleData{Name: "Havana 7", CategoryName: "Rum", CapacityMl: 700, RemainingPercent: 100}, DefaultBottle(EntityRef{Name: "Havana 7", CategoryName: "Rum"}))
	assert.Nil(t, DefaultIngredient(EntityRef{Name: "Mint"}).Icon)
	assert.Nil(t, DefaultUnit(EntityRef{Name: "Dash"}).ConversionFactorToMl)
}
