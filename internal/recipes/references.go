package recipes

import (
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
)

// EntityRef gathers the export-side fields of one referenced entity.
type EntityRef struct {
	Name                 string   `json:"name"`
	Abbreviation         string   `json:"abbreviation,omitempty"`
	ConversionFactorToMl *float64 `json:"conversionFactorToMl,omitempty"`
	Type                 string   `json:"type,omitempty"`
	DesiredStock         *int     `json:"desiredStock,omitempty"`
	CategoryName         string   `json:"categoryName,omitempty"`
	Icon                 *string  `json:"icon,omitempty"`
}

// RefGroup keeps the first reference seen for each key, in document order.
type RefGroup struct {
	Keys []string
	Refs map[string]EntityRef
}

func newRefGroup() RefGroup {
	return RefGroup{Refs: map[string]EntityRef{}}
}

func (g *RefGroup) add(key string, ref EntityRef) {
	if key == "" {
		return
	}
	if _, ok := g.Refs[key]; ok {
		return
	}
	g.Keys = append(g.Keys, key)
	g.Refs[key] = ref
}

type References struct {
	Units       RefGroup
	Categories  RefGroup
	Bottles     RefGroup
	Ingredients RefGroup
}

// CollectReferences walks the document lines and groups every entity they name.
// Bottle categories and preferred bottles are included.
func CollectReferences(doc *Document) References {
	refs := References{
		Units:       newRefGroup(),
		Categories:  newRefGroup(),
		Bottles:     newRefGroup(),
		Ingredients: newRefGroup(),
	}
	addBottle := func(name, categoryName string) {
		refs.Bottles.add(NameKey(name), EntityRef{Name: strings.TrimSpace(name), CategoryName: strings.TrimSpace(categoryName)})
		if strings.TrimSpace(categoryName) != "" {
			refs.Categories.add(NameKey(categoryName), EntityRef{Name: strings.TrimSpace(categoryName)})
		}
	}

	for _, line := range doc.Cocktail.Ingredients {
		if line.Unit != nil {
			refs.Units.add(UnitKey(line.Unit.Name, line.Unit.Abbreviation), EntityRef{
				Name:                 strings.TrimSpace(line.Unit.Name),
				Abbreviation:         strings.TrimSpace(line.Unit.Abbreviation),
				ConversionFactorToMl: line.Unit.ConversionFactorToMl,
			})
		}
		switch strings.ToUpper(line.SourceType) {
		case models.SourceTypeBottle:
			addBottle(line.Ref.Name, line.Ref.CategoryName)
		case models.SourceTypeCategory:
			refs.Categories.add(NameKey(line.Ref.Name), EntityRef{
				Name:         strings.TrimSpace(line.Ref.Name),
				Type:         strings.TrimSpace(line.Ref.Type),
				DesiredStock: line.Ref.DesiredStock,
			})
			for _, p := range line.PreferredBottles {
				addBottle(p.Name, p.CategoryName)
			}
		case models.SourceTypeIngredient:
			refs.Ingredients.add(NameKey(line.Ref.Name), EntityRef{
				Name: strings.TrimSpace(line.Ref.Name),
				Icon: line.Ref.Icon,
			})
		}
	}
	return refs
}
