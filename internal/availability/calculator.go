package availability

import (
	"math"
	"sort"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/internal/units"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Unlimited is the serving count reported for lines and cocktails that stock does not cap.
const Unlimited = 999

type Thresholds struct {
	LowStockServings int
	LowStockPercent  int
}

// Stock is a snapshot of everything a cocktail line can draw from.
type Stock struct {
	Bottles     map[uuid.UUID]models.Bottle
	ByCategory  map[uuid.UUID][]models.Bottle
	Categories  map[uuid.UUID]models.Category
	Ingredients map[uuid.UUID]models.Ingredient
	Units       map[uuid.UUID]models.Unit
}

// NewStock indexes the rows. Emptied bottles stay addressable by id but never count
// towards a category.
func NewStock(bottles []models.Bottle, categories []models.Category, ingredients []models.Ingredient, unitRows []models.Unit) Stock {
	stock := Stock{
		Bottles:     make(map[uuid.UUID]models.Bottle, len(bottles)),
		ByCategory:  map[uuid.UUID][]models.Bottle{},
		Categories:  make(map[uuid.UUID]models.Category, len(categories)),
		Ingredients: make(map[uuid.UUID]models.Ingredient, len(ingredients)),
		Units:       make(map[uuid.UUID]models.Unit, len(unitRows)),
	}
	for _, b := range bottles {
		stock.Bottles[b.ID] = b
		if !b.IsEmptied() {
			stock.ByCategory[b.CategoryID] = append(stock.ByCategory[b.CategoryID], b)
		}
	}
	for _, c := range categories {
		stock.Categories[c.ID] = c
	}
	for _, i := range ingredients {
		stock.Ingredients[i.ID] = i
	}
	for _, u := range unitRows {
		stock.Units[u.ID] = u
	}
	return stock
}

type BottleStock struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	RemainingMl      float64   `json:"remainingMl"`
	RemainingPercent int       `json:"remainingPercent"`
	Preferred        bool      `json:"preferred,omitempty"`
}

type LineResult struct {
	Position    int           `json:"position"`
	SourceType  string        `json:"sourceType"`
	Name        string        `json:"name"`
	RequiredMl  *float64      `json:"requiredMl"`
	AvailableMl *float64      `json:"availableMl"`
	Servings    int           `json:"servings"`
	IsAvailable bool          `json:"isAvailable"`
	LowStock    bool          `json:"lowStock"`
	Bottles     []BottleStock `json:"bottles,omitempty"`
}

type Result struct {
	CocktailID         uuid.UUID    `json:"cocktailId"`
	IsAvailable        bool         `json:"isAvailable"`
	MaxServings        int          `json:"maxServings"`
	Ingredients        []LineResult `json:"ingredients"`
	MissingIngredients []string     `json:"missingIngredients"`
	LowStockWarnings   []string     `json:"lowStockWarnings"`
}

// Calculate derives how many servings of the cocktail the stock allows.
func Calculate(cocktail models.Cocktail, stock Stock, th Thresholds) Result {
	result := Result{
		CocktailID:         cocktail.ID,
		MaxServings:        Unlimited,
		Ingredients:        make([]LineResult, 0, len(cocktail.Ingredients)),
		MissingIngredients: []string{},
		LowStockWarnings:   []string{},
	}

	for _, row := range cocktail.Ingredients {
		line := evaluate(row, stock, th)
		result.Ingredients = append(result.Ingredients, line)
		if line.Servings < result.MaxServings {
			result.MaxServings = line.Servings
		}
		if line.Servings == 0 {
			result.MissingIngredients = append(result.MissingIngredients, line.Name)
		} else if line.LowStock {
			result.LowStockWarnings = append(result.LowStockWarnings, line.Name)
		}
	}
	result.IsAvailable = result.MaxServings > 0
	return result
}

func evaluate(row models.CocktailIngredient, stock Stock, th Thresholds) LineResult {
	out := LineResult{Position: row.Position, SourceType: row.SourceType}

	line, err := cocktails.LineFromModel(row)
	if err != nil {
		out.Name = "unknown ingredient"
		return out
	}

	var availableMl float64
	bottleBacked := false
	lowPercent := false

	switch src := line.Source.(type) {
	case cocktails.BottleSource:
		bottle, ok := stock.Bottles[src.BottleID]
		if !ok {
			out.Name = "unknown bottle"
			return out
		}
		out.Name = bottle.Name
		bottleBacked = true
		availableMl = bottle.RemainingMl()
		out.Bottles = []BottleStock{toBottleStock(bottle, false)}
		lowPercent = !bottle.IsEmptied() && bottle.RemainingPercent <= th.LowStockPercent
	case cocktails.CategorySource:
		out.Name = stock.Categories[src.CategoryID].Name
		if out.Name == "" {
			out.Name = "unknown category"
		}
		bottleBacked = true
		ordered := orderBottles(stock.ByCategory[src.CategoryID], src.PreferredBottleIDs)
		lowPercent = len(ordered) > 0
		for _, b := range ordered {
			availableMl += b.RemainingMl
			if b.RemainingPercent > th.LowStockPercent {
				lowPercent = false
			}
		}
		out.Bottles = ordered
	case cocktails.IngredientSource:
		ingredient, ok := stock.Ingredients[src.IngredientID]
		out.Name = ingredient.Name
		if !ok {
			out.Name = "unknown ingredient"
		}
		out.IsAvailable = ok && ingredient.IsAvailable
		if out.IsAvailable {
			out.Servings = Unlimited
		}
		return out
	}

	out.AvailableMl = &availableMl
	required, ok := requiredMl(line, stock)
	if !ok {
		if availableMl > 0 {
			out.Servings = Unlimited
		}
	} else {
		out.RequiredMl = &required
		out.Servings = int(math.Min(math.Floor(availableMl/required), Unlimited))
	}
	out.IsAvailable = out.Servings > 0
	if bottleBacked && out.IsAvailable {
		out.LowStock = out.Servings < th.LowStockServings || lowPercent
	}
	return out
}

// requiredMl reports false when the line cannot be measured in milliliters; such lines
// only need some stock.
func requiredMl(line cocktails.Line, stock Stock) (float64, bool) {
	if line.UnitID == nil || line.Quantity <= 0 {
		return 0, false
	}
	unit, ok := stock.Units[*line.UnitID]
	if !ok {
		return 0, false
	}
	ml, err := units.ToMillilitersStrict(line.Quantity, unit)
	if err != nil || ml <= 0 {
		return 0, false
	}
	return ml, true
}

// orderBottles lists preferred bottles in their declared order, then the rest by most
// remaining volume.
func orderBottles(bottles []models.Bottle, preferred []uuid.UUID) []BottleStock {
	rank := make(map[uuid.UUID]int, len(preferred))
	for i, id := range preferred {
		rank[id] = i
	}
	out := make([]BottleStock, 0, len(bottles))
	for _, b := range bottles {
		_, isPreferred := rank[b.ID]
		out = append(out, toBottleStock(b, isPreferred))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, pi := rank[out[i].ID]
		rj, pj := rank[out[j].ID]
		switch {
		case pi && pj:
			return ri < rj
		case pi != pj:
			return pi
		case out[i].RemainingMl != out[j].RemainingMl:
			return out[i].RemainingMl > out[j].RemainingMl
		default:
			return out[i].Name < out[j].Name
		}
	})
	return out
}

func toBottleStock(b models.Bottle, preferred bool) BottleStock {
	return BottleStock{
		ID:               b.ID,
		Name:             b.Name,
		RemainingMl:      b.RemainingMl(),
		RemainingPercent: b.RemainingPercent,
		Preferred:        preferred,
	}
}
