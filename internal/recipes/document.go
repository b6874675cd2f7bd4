// Package recipes exports cocktails as portable JSON documents and imports them back,
// reconciling referenced units, categories, bottles and ingredients with live rows.
package recipes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"go.uber.org/multierr"
)

const DocumentVersion = 1

// Document is the portable export of a single cocktail.
type Document struct {
	Version    int         `json:"version"`
	ExportedAt *time.Time  `json:"exportedAt,omitempty"`
	Cocktail   CocktailDoc `json:"cocktail"`
}

type CocktailDoc struct {
	Name         string           `json:"name"`
	Description  *string          `json:"description"`
	Notes        *string          `json:"notes"`
	Tags         []string         `json:"tags"`
	Ingredients  []LineDoc        `json:"ingredients"`
	Instructions []InstructionDoc `json:"instructions"`
}

// LineDoc references its source by name; Ref carries the fields needed to recreate it.
type LineDoc struct {
	SourceType       string      `json:"sourceType"`
	Quantity         float64     `json:"quantity"`
	Ref              Ref         `json:"ref"`
	Unit             *UnitRef    `json:"unit,omitempty"`
	PreferredBottles []BottleRef `json:"preferredBottles,omitempty"`
}

type Ref struct {
	Name         string  `json:"name"`
	CategoryName string  `json:"categoryName,omitempty"`
	Type         string  `json:"type,omitempty"`
	DesiredStock *int    `json:"desiredStock,omitempty"`
	Icon         *string `json:"icon,omitempty"`
}

type UnitRef struct {
	Name                 string   `json:"name"`
	Abbreviation         string   `json:"abbreviation"`
	ConversionFactorToMl *float64 `json:"conversionFactorToMl"`
}

type BottleRef struct {
	Name         string `json:"name"`
	CategoryName string `json:"categoryName"`
}

type InstructionDoc struct {
	Text string `json:"text"`
}

// Parse decodes and validates an uploaded document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "recipe file is not valid JSON")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate collects every structural problem of the document into one validation error.
func (d *Document) Validate() error {
	var errs error
	if d.Version != DocumentVersion {
		errs = multierr.Append(errs, fmt.Errorf("unsupported version %d, expected %d", d.Version, DocumentVersion))
	}
	if strings.TrimSpace(d.Cocktail.Name) == "" {
		errs = multierr.Append(errs, fmt.Errorf("cocktail.name is required"))
	}
	for i, line := range d.Cocktail.Ingredients {
		switch strings.ToUpper(line.SourceType) {
		case models.SourceTypeBottle, models.SourceTypeCategory, models.SourceTypeIngredient:
		default:
			errs = multierr.Append(errs, fmt.Errorf("ingredients[%d]: unknown sourceType %q", i, line.SourceType))
		}
		if strings.TrimSpace(line.Ref.Name) == "" {
			errs = multierr.Append(errs, fmt.Errorf("ingredients[%d]: ref.name is required", i))
		}
		if line.Quantity < 0 {
			errs = multierr.Append(errs, fmt.Errorf("ingredients[%d]: quantity cannot be negative", i))
		}
		if line.Unit != nil && strings.TrimSpace(line.Unit.Name) == "" && strings.TrimSpace(line.Unit.Abbreviation) == "" {
			errs = multierr.Append(errs, fmt.Errorf("ingredients[%d]: unit needs a name or abbreviation", i))
		}
		for j, p := range line.PreferredBottles {
			if strings.TrimSpace(p.Name) == "" {
				errs = multierr.Append(errs, fmt.Errorf("ingredients[%d].preferredBottles[%d]: name is required", i, j))
			}
		}
	}
	return validationError("invalid recipe document", errs)
}

func validationError(msg string, errs error) error {
	if errs == nil {
		return nil
	}
	problems := multierr.Errors(errs)
	details := make([]string, 0, len(problems))
	for _, p := range problems {
		details = append(details, p.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, errs, msg).WithDetails(details)
}
