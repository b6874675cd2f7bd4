package recipes

import (
	"context"

	"github.com/google/uuid"
)

type Status string

const (
	StatusMatched Status = "matched"
	StatusMissing Status = "missing"
)

// Match describes the live row an entry resolved to.
type Match struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Abbreviation         string    `json:"abbreviation,omitempty"`
	ConversionFactorToMl *float64  `json:"conversionFactorToMl,omitempty"`
	CategoryName         string    `json:"categoryName,omitempty"`
	Type                 string    `json:"type,omitempty"`
	Icon                 *string   `json:"icon,omitempty"`
}

type PreviewEntry struct {
	Key           string    `json:"key"`
	Ref           EntityRef `json:"ref"`
	Status        Status    `json:"status"`
	ExistingMatch *Match    `json:"existingMatch,omitempty"`
}

type Preview struct {
	Units        []PreviewEntry `json:"units"`
	Categories   []PreviewEntry `json:"categories"`
	Bottles      []PreviewEntry `json:"bottles"`
	Ingredients  []PreviewEntry `json:"ingredients"`
	MissingCount int            `json:"missingCount"`
}

// Entries returns the group for kind.
func (p *Preview) Entries(kind Kind) []PreviewEntry {
	switch kind {
	case KindUnit:
		return p.Units
	case KindCategory:
		return p.Categories
	case KindBottle:
		return p.Bottles
	case KindIngredient:
		return p.Ingredients
	}
	return nil
}

// BuildPreview reports, for every referenced entity, whether a live row matches it.
func BuildPreview(ctx context.Context, lookup *Lookup, doc *Document) (*Preview, error) {
	refs := CollectReferences(doc)
	preview := &Preview{
		Units:       []PreviewEntry{},
		Categories:  []PreviewEntry{},
		Bottles:     []PreviewEntry{},
		Ingredients: []PreviewEntry{},
	}

	for _, key := range refs.Units.Keys {
		ref := refs.Units.Refs[key]
		row, err := lookup.Unit(ctx, ref)
		if err != nil {
			return nil, err
		}
		entry := PreviewEntry{Key: key, Ref: ref, Status: StatusMissing}
		if row != nil {
			entry.Status = StatusMatched
			entry.ExistingMatch = &Match{ID: row.ID, Name: row.Name, Abbreviation: row.Abbreviation, ConversionFactorToMl: row.ConversionFactorToMl}
		}
		preview.Units = append(preview.Units, entry)
	}

	for _, key := range refs.Categories.Keys {
		ref := refs.Categories.Refs[key]
		row, err := lookup.Category(ctx, ref.Name)
		if err != nil {
			return nil, err
		}
		entry := PreviewEntry{Key: key, Ref: ref, Status: StatusMissing}
		if row != nil {
			entry.Status = StatusMatched
			entry.ExistingMatch = &Match{ID: row.ID, Name: row.Name}
			if row.Type != nil {
				entry.ExistingMatch.Type = row.Type.Name
			}
		}
		preview.Categories = append(preview.Categories, entry)
	}

	for _, key := range refs.Bottles.Keys {
		ref := refs.Bottles.Refs[key]
		row, err := lookup.Bottle(ctx, ref.Name)
		if err != nil {
			return nil, err
		}
		entry := PreviewEntry{Key: key, Ref: ref, Status: StatusMissing}
		if row != nil {
			entry.Status = StatusMatched
			entry.ExistingMatch = &Match{ID: row.ID, Name: row.Name}
			if row.Category != nil {
				entry.ExistingMatch.CategoryName = row.Category.Name
			}
		}
		preview.Bottles = append(preview.Bottles, entry)
	}

	for _, key := range refs.Ingredients.Keys {
		ref := refs.Ingredients.Refs[key]
		row, err := lookup.Ingredient(ctx, ref.Name)
		if err != nil {
			return nil, err
		}
		entry := PreviewEntry{Key: key, Ref: ref, Status: StatusMissing}
		if row != nil {
			entry.Status = StatusMatched
			entry.ExistingMatch = &Match{ID: row.ID, Name: row.Name, Icon: row.Icon}
		}
		preview.Ingredients = append(preview.Ingredients, entry)
	}

	for _, group := range [][]PreviewEntry{preview.Units, preview.Categories, preview.Bottles, preview.Ingredients} {
		for _, entry := range group {
			if entry.Status == StatusMissing {
				preview.MissingCount++
			}
		}
	}
	return preview, nil
}
