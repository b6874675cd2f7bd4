package recipes

import (
	"strings"

	"github.com/cartacocktail/carta-backend/internal/bottles"
	"github.com/google/uuid"
)

type Action string

const (
	ActionCreate      Action = "create"
	ActionUseExisting Action = "use_existing"
	ActionSkip        Action = "skip"
)

// DefaultCategoryType is used when an exported category carries no type.
const DefaultCategoryType = "SPIRIT"

// Resolution tells confirm what to do with one referenced entity.
type Resolution[T any] struct {
	Action     Action     `json:"action"`
	ExistingID *uuid.UUID `json:"existingId,omitempty"`
	Data       *T         `json:"data,omitempty"`
}

type UnitData struct {
	Name                 string   `json:"name"`
	Abbreviation         string   `json:"abbreviation"`
	ConversionFactorToMl *float64 `json:"conversionFactorToMl"`
}

type CategoryData struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	DesiredStock int    `json:"desiredStock"`
}

type BottleData struct {
	Name             string `json:"name"`
	CategoryName     string `json:"categoryName"`
	CapacityMl       int    `json:"capacityMl"`
	RemainingPercent int    `json:"remainingPercent"`
}

type IngredientData struct {
	Name string  `json:"name"`
	Icon *string `json:"icon"`
}

// Resolutions is keyed by the entity keys of the preview.
type Resolutions struct {
	Units       map[string]Resolution[UnitData]       `json:"units"`
	Categories  map[string]Resolution[CategoryData]   `json:"categories"`
	Bottles     map[string]Resolution[BottleData]     `json:"bottles"`
	Ingredients map[string]Resolution[IngredientData] `json:"ingredients"`
}

func NewResolutions() Resolutions {
	return Resolutions{
		Units:       map[string]Resolution[UnitData]{},
		Categories:  map[string]Resolution[CategoryData]{},
		Bottles:     map[string]Resolution[BottleData]{},
		Ingredients: map[string]Resolution[IngredientData]{},
	}
}

func DefaultUnit(ref EntityRef) UnitData {
	return UnitData{Name: ref.Name, Abbreviation: ref.Abbreviation, ConversionFactorToMl: ref.ConversionFactorToMl}
}

// DefaultCategory falls back to a desired stock of 1 only when the export has
// none or zero. A negative value is carried through and rejected at confirm.
func DefaultCategory(ref EntityRef) CategoryData {
	data := CategoryData{Name: ref.Name, Type: strings.TrimSpace(ref.Type), DesiredStock: 1}
	if data.Type == "" {
		data.Type = DefaultCategoryType
	}
	if ref.DesiredStock != nil && *ref.DesiredStock != 0 {
		data.DesiredStock = *ref.DesiredStock
	}
	return data
}

// DefaultBottle always starts the bottle full; capacity is never read from the export.
func DefaultBottle(ref EntityRef) BottleData {
	return BottleData{
		Name:             ref.Name,
		CategoryName:     ref.CategoryName,
		CapacityMl:       bottles.DefaultCapacityMl,
		RemainingPercent: bottles.DefaultRemainingPercent,
	}
}

func DefaultIngredient(ref EntityRef) IngredientData {
	return IngredientData{Name: ref.Name, Icon: ref.Icon}
}

// AutoResolve maps matched entries to their existing row and missing ones to a create
// with default data.
func AutoResolve(p *Preview) Resolutions {
	res := NewResolutions()
	for _, e := range p.Units {
		if e.ExistingMatch != nil {
			res.Units[e.Key] = useExisting[UnitData](e.ExistingMatch.ID)
			continue
		}
		data := DefaultUnit(e.Ref)
		res.Units[e.Key] = Resolution[UnitData]{Action: ActionCreate, Data: &data}
	}
	for _, e := range p.Categories {
		if e.ExistingMatch != nil {
			res.Categories[e.Key] = useExisting[CategoryData](e.ExistingMatch.ID)
			continue
		}
		data := DefaultCategory(e.Ref)
		res.Categories[e.Key] = Resolution[CategoryData]{Action: ActionCreate, Data: &data}
	}
	for _, e := range p.Bottles {
		if e.ExistingMatch != nil {
			res.Bottles[e.Key] = useExisting[BottleData](e.ExistingMatch.ID)
			continue
		}
		data := DefaultBottle(e.Ref)
		res.Bottles[e.Key] = Resolution[BottleData]{Action: ActionCreate, Data: &data}
	}
	for _, e := range p.Ingredients {
		if e.ExistingMatch != nil {
			res.Ingredients[e.Key] = useExisting[IngredientData](e.ExistingMatch.ID)
			continue
		}
		data := DefaultIngredient(e.Ref)
		res.Ingredients[e.Key] = Resolution[IngredientData]{Action: ActionCreate, Data: &data}
	}
	return res
}

func useExisting[T any](id uuid.UUID) Resolution[T] {
	return Resolution[T]{Action: ActionUseExisting, ExistingID: &id}
}

// Has reports whether a resolution is recorded for kind and key.
func (r Resolutions) Has(kind Kind, key string) bool {
	var ok bool
	switch kind {
	case KindUnit:
		_, ok = r.Units[key]
	case KindCategory:
		_, ok = r.Categories[key]
	case KindBottle:
		_, ok = r.Bottles[key]
	case KindIngredient:
		_, ok = r.Ingredients[key]
	}
	return ok
}

// ActionOf returns the recorded action for kind and key, or "" when none is set.
func (r Resolutions) ActionOf(kind Kind, key string) Action {
	switch kind {
	case KindUnit:
		return r.Units[key].Action
	case KindCategory:
		return r.Categories[key].Action
	case KindBottle:
		return r.Bottles[key].Action
	case KindIngredient:
		return r.Ingredients[key].Action
	}
	return ""
}

// Remove drops the resolution for kind and key.
func (r Resolutions) Remove(kind Kind, key string) {
	switch kind {
	case KindUnit:
		delete(r.Units, key)
	case KindCategory:
		delete(r.Categories, key)
	case KindBottle:
		delete(r.Bottles, key)
	case KindIngredient:
		delete(r.Ingredients, key)
	}
}
