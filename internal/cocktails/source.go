package cocktails

import (
	"fmt"
	"sort"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Source is what a recipe line draws from: a bottle, a category of bottles or a
// free-form ingredient.
type Source interface {
	SourceType() string
	isSource()
}

type BottleSource struct {
	BottleID uuid.UUID
}

// CategorySource drains any bottle of the category, PreferredBottleIDs first.
type CategorySource struct {
	CategoryID         uuid.UUID
	PreferredBottleIDs []uuid.UUID
}

type IngredientSource struct {
	IngredientID uuid.UUID
}

func (BottleSource) SourceType() string     { return models.SourceTypeBottle }
func (CategorySource) SourceType() string   { return models.SourceTypeCategory }
func (IngredientSource) SourceType() string { return models.SourceTypeIngredient }

func (BottleSource) isSource()     {}
func (CategorySource) isSource()   {}
func (IngredientSource) isSource() {}

// Line is one ordered ingredient line of a cocktail.
type Line struct {
	ID       uuid.UUID
	Position int
	Source   Source
	Quantity float64
	UnitID   *uuid.UUID
}

// LineFromModel decodes the persisted nullable columns into a Source. Rows that do not
// carry exactly the reference their source_type names are rejected.
func LineFromModel(m models.CocktailIngredient) (Line, error) {
	line := Line{ID: m.ID, Position: m.Position, Quantity: m.Quantity, UnitID: m.UnitID}

	set := 0
	for _, ref := range []*uuid.UUID{m.BottleID, m.CategoryID, m.IngredientID} {
		if ref != nil {
			set++
		}
	}
	if set != 1 {
		return Line{}, fmt.Errorf("cocktail ingredient %s has %d source references", m.ID, set)
	}

	switch m.SourceType {
	case models.SourceTypeBottle:
		if m.BottleID == nil {
			return Line{}, fmt.Errorf("cocktail ingredient %s: bottle source without bottle", m.ID)
		}
		line.Source = BottleSource{BottleID: *m.BottleID}
	case models.SourceTypeCategory:
		if m.CategoryID == nil {
			return Line{}, fmt.Errorf("cocktail ingredient %s: category source without category", m.ID)
		}
		preferred := make([]uuid.UUID, 0, len(m.PreferredBottles))
		for _, p := range sortedPreferred(m.PreferredBottles) {
			preferred = append(preferred, p.BottleID)
		}
		line.Source = CategorySource{CategoryID: *m.CategoryID, PreferredBottleIDs: preferred}
	case models.SourceTypeIngredient:
		if m.IngredientID == nil {
			return Line{}, fmt.Errorf("cocktail ingredient %s: ingredient source without ingredient", m.ID)
		}
		line.Source = IngredientSource{IngredientID: *m.IngredientID}
	default:
		return Line{}, fmt.Errorf("cocktail ingredient %s: unknown source type %q", m.ID, m.SourceType)
	}
	return line, nil
}

// ToModel encodes the line for persistence under cocktailID.
func (l Line) ToModel(cocktailID uuid.UUID) models.CocktailIngredient {
	m := models.CocktailIngredient{
		ID:         l.ID,
		CocktailID: cocktailID,
		Position:   l.Position,
		Quantity:   l.Quantity,
		UnitID:     l.UnitID,
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	switch src := l.Source.(type) {
	case BottleSource:
		id := src.BottleID
		m.SourceType = models.SourceTypeBottle
		m.BottleID = &id
	case CategorySource:
		id := src.CategoryID
		m.SourceType = models.SourceTypeCategory
		m.CategoryID = &id
		for i, bottleID := range src.PreferredBottleIDs {
			m.PreferredBottles = append(m.PreferredBottles, models.CocktailIngredientPreferredBottle{
				CocktailIngredientID: m.ID,
				BottleID:             bottleID,
				Position:             i,
			})
		}
	case IngredientSource:
		id := src.IngredientID
		m.SourceType = models.SourceTypeIngredient
		m.IngredientID = &id
	}
	return m
}

func sortedPreferred(in []models.CocktailIngredientPreferredBottle) []models.CocktailIngredientPreferredBottle {
	out := append([]models.CocktailIngredientPreferredBottle(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
