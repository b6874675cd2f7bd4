package backup

import (
	"fmt"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// FormatVersion is bumped whenever the table layout of Document changes.
const FormatVersion = 1

const filenameLayout = "20060102-150405"

// Document is a flat dump of every bar table. Operator accounts are never included.
type Document struct {
	Version             int                                        `json:"version"`
	ExportedAt          time.Time                                  `json:"exportedAt"`
	Settings            []models.Setting                           `json:"settings"`
	Units               []models.Unit                              `json:"units"`
	CategoryTypes       []models.CategoryType                      `json:"categoryTypes"`
	Categories          []models.Category                          `json:"categories"`
	Bottles             []models.Bottle                            `json:"bottles"`
	Ingredients         []models.Ingredient                        `json:"ingredients"`
	Cocktails           []models.Cocktail                          `json:"cocktails"`
	CocktailIngredients []models.CocktailIngredient                `json:"cocktailIngredients"`
	PreferredBottles    []models.CocktailIngredientPreferredBottle `json:"preferredBottles"`
	Instructions        []models.CocktailInstruction               `json:"instructions"`
	Menus               []models.Menu                              `json:"menus"`
	MenuSections        []models.MenuSection                       `json:"menuSections"`
	MenuCocktails       []models.MenuCocktail                      `json:"menuCocktails"`
	MenuBottles         []models.MenuBottle                        `json:"menuBottles"`
}

// Summary counts the rows of each table in a document.
type Summary map[string]int

func (d *Document) Summary() Summary {
	return Summary{
		"settings":            len(d.Settings),
		"units":               len(d.Units),
		"categoryTypes":       len(d.CategoryTypes),
		"categories":          len(d.Categories),
		"bottles":             len(d.Bottles),
		"ingredients":         len(d.Ingredients),
		"cocktails":           len(d.Cocktails),
		"cocktailIngredients": len(d.CocktailIngredients),
		"preferredBottles":    len(d.PreferredBottles),
		"instructions":        len(d.Instructions),
		"menus":               len(d.Menus),
		"menuSections":        len(d.MenuSections),
		"menuCocktails":       len(d.MenuCocktails),
		"menuBottles":         len(d.MenuBottles),
	}
}

// Filename names an export taken at t, e.g. carta-backup-20240131-224500.json.
func Filename(t time.Time) string {
	return "carta-backup-" + t.UTC().Format(filenameLayout) + ".json"
}

type idSet map[uuid.UUID]struct{}

func (s idSet) has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) hasPtr(id *uuid.UUID) bool {
	return id == nil || s.has(*id)
}

func ids[T any](rows []T, id func(T) uuid.UUID) idSet {
	out := make(idSet, len(rows))
	for _, row := range rows {
		out[id(row)] = struct{}{}
	}
	return out
}

// Validate checks the version and that every foreign key points at a row of the
// document, so an import cannot leave dangling references behind.
func (d *Document) Validate() error {
	if d.Version != FormatVersion {
		return fmt.Errorf("unsupported backup version %d", d.Version)
	}

	unitIDs := ids(d.Units, func(r models.Unit) uuid.UUID { return r.ID })
	typeIDs := ids(d.CategoryTypes, func(r models.CategoryType) uuid.UUID { return r.ID })
	categoryIDs := ids(d.Categories, func(r models.Category) uuid.UUID { return r.ID })
	bottleIDs := ids(d.Bottles, func(r models.Bottle) uuid.UUID { return r.ID })
	ingredientIDs := ids(d.Ingredients, func(r models.Ingredient) uuid.UUID { return r.ID })
	cocktailIDs := ids(d.Cocktails, func(r models.Cocktail) uuid.UUID { return r.ID })
	lineIDs := ids(d.CocktailIngredients, func(r models.CocktailIngredient) uuid.UUID { return r.ID })
	menuIDs := ids(d.Menus, func(r models.Menu) uuid.UUID { return r.ID })
	sectionIDs := ids(d.MenuSections, func(r models.MenuSection) uuid.UUID { return r.ID })

	var errs error
	for _, c := range d.Categories {
		if !typeIDs.has(c.TypeID) {
			errs = multierr.Append(errs, fmt.Errorf("category %q references unknown type", c.Name))
		}
	}
	for _, b := range d.Bottles {
		if !categoryIDs.has(b.CategoryID) {
			errs = multierr.Append(errs, fmt.Errorf("bottle %q references unknown category", b.Name))
		}
	}
	for _, line := range d.CocktailIngredients {
		switch {
		case !cocktailIDs.has(line.CocktailID):
			errs = multierr.Append(errs, fmt.Errorf("cocktail line %s references unknown cocktail", line.ID))
		case !bottleIDs.hasPtr(line.BottleID), !categoryIDs.hasPtr(line.CategoryID), !ingredientIDs.hasPtr(line.IngredientID):
			errs = multierr.Append(errs, fmt.Errorf("cocktail line %s references an unknown source", line.ID))
		case !unitIDs.hasPtr(line.UnitID):
			errs = multierr.Append(errs, fmt.Errorf("cocktail line %s references unknown unit", line.ID))
		}
	}
	for _, p := range d.PreferredBottles {
		if !lineIDs.has(p.CocktailIngredientID) || !bottleIDs.has(p.BottleID) {
			errs = multierr.Append(errs, fmt.Errorf("preferred bottle %s has a dangling reference", p.BottleID))
		}
	}
	for _, in := range d.Instructions {
		if !cocktailIDs.has(in.CocktailID) {
			errs = multierr.Append(errs, fmt.Errorf("instruction %s references unknown cocktail", in.ID))
		}
	}
	for _, s := range d.MenuSections {
		if !menuIDs.has(s.MenuID) {
			errs = multierr.Append(errs, fmt.Errorf("menu section %q references unknown menu", s.Name))
		}
	}
	for _, mc := range d.MenuCocktails {
		if !menuIDs.has(mc.MenuID) || !cocktailIDs.has(mc.CocktailID) || !sectionIDs.hasPtr(mc.SectionID) {
			errs = multierr.Append(errs, fmt.Errorf("menu cocktail %s has a dangling reference", mc.ID))
		}
	}
	for _, mb := range d.MenuBottles {
		if !menuIDs.has(mb.MenuID) || !bottleIDs.has(mb.BottleID) || !sectionIDs.hasPtr(mb.SectionID) {
			errs = multierr.Append(errs, fmt.Errorf("menu bottle %s has a dangling reference", mb.ID))
		}
	}
	return errs
}
