// Package seed installs the reference data a fresh bar needs before its first recipe.
package seed

import (
	"context"
	"fmt"

	"github.com/cartacocktail/carta-backend/internal/categories"
	"github.com/cartacocktail/carta-backend/internal/units"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"gorm.io/gorm"
)

type defaultUnit struct {
	name         string
	abbreviation string
	factor       *float64
}

func ml(v float64) *float64 { return &v }

var defaultUnits = []defaultUnit{
	{"Milliliter", "ml", ml(1)},
	{"Centiliter", "cl", ml(10)},
	{"Ounce", "oz", ml(29.5735)},
	{"Teaspoon", "tsp", ml(5)},
	{"Tablespoon", "tbsp", ml(15)},
	{"Bar spoon", "bsp", ml(5)},
	{"Dash", "dash", ml(0.6)},
	{"Drop", "drop", ml(0.05)},
	{"Piece", "pc", nil},
	{"Leaf", "leaf", nil},
	{"Slice", "slice", nil},
	{"Zest", "zest", nil},
}

var defaultCategoryTypes = []string{"SPIRIT", "LIQUEUR", "SYRUP", "JUICE", "SODA", "BITTERS", "WINE", "OTHER"}

// Result reports how many rows each step inserted.
type Result struct {
	Units         int
	CategoryTypes int
}

// Run inserts the default units and category types into empty tables. Tables that
// already hold rows are left untouched, so Run is safe on every boot.
func Run(ctx context.Context, client *db.Client, logg *logger.Logger) (Result, error) {
	if client == nil {
		return Result{}, fmt.Errorf("database client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	var result Result
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		unitRepo := units.NewRepository(tx)
		count, err := unitRepo.Count(ctx)
		if err != nil {
			return fmt.Errorf("count units: %w", err)
		}
		if count == 0 {
			for _, u := range defaultUnits {
				row := &models.Unit{Name: u.name, Abbreviation: u.abbreviation, ConversionFactorToMl: u.factor}
				if err := unitRepo.Create(ctx, row); err != nil {
					return fmt.Errorf("seed unit %s: %w", u.abbreviation, err)
				}
				result.Units++
			}
		}

		categoryRepo := categories.NewRepository(tx)
		count, err = categoryRepo.CountTypes(ctx)
		if err != nil {
			return fmt.Errorf("count category types: %w", err)
		}
		if count == 0 {
			for _, name := range defaultCategoryTypes {
				if err := categoryRepo.CreateType(ctx, &models.CategoryType{Name: name}); err != nil {
					return fmt.Errorf("seed category type %s: %w", name, err)
				}
				result.CategoryTypes++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if result.Units > 0 || result.CategoryTypes > 0 {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"units":          result.Units,
			"category_types": result.CategoryTypes,
		}), "reference data seeded")
	}
	return result, nil
}
