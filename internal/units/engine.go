package units

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotConvertible is matched by every *UnitError.
var ErrNotConvertible = errors.New("unit is not convertible to milliliters")

// UnitError reports a conversion attempted on a unit without a milliliter factor.
type UnitError struct {
	UnitID uuid.UUID
	Name   string
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %q (%s) has no conversion factor", e.Name, e.UnitID)
}

func (e *UnitError) Is(target error) bool {
	return target == ErrNotConvertible
}

// IsConvertible reports whether the unit declares a milliliter factor.
func IsConvertible(u models.Unit) bool {
	return u.ConversionFactorToMl != nil
}

// ToMillilitersStrict converts quantity to milliliters or fails with ErrNotConvertible.
func ToMillilitersStrict(quantity float64, u models.Unit) (float64, error) {
	if !IsConvertible(u) {
		return 0, &UnitError{UnitID: u.ID, Name: u.Name}
	}
	return quantity * *u.ConversionFactorToMl, nil
}

// FromMillilitersStrict converts milliliters into the unit or fails with ErrNotConvertible.
func FromMillilitersStrict(ml float64, u models.Unit) (float64, error) {
	if !IsConvertible(u) {
		return 0, &UnitError{UnitID: u.ID, Name: u.Name}
	}
	return ml / *u.ConversionFactorToMl, nil
}

// ConvertStrict converts between two units through milliliters.
func ConvertStrict(quantity float64, from, to models.Unit) (float64, error) {
	ml, err := ToMillilitersStrict(quantity, from)
	if err != nil {
		return 0, err
	}
	return FromMillilitersStrict(ml, to)
}

// FormatQuantity renders quantity with a precision driven by the unit's factor.
// Halves round away from zero.
func FormatQuantity(quantity float64, u models.Unit) string {
	d := decimal.NewFromFloat(quantity)
	if u.ConversionFactorToMl != nil {
		factor := *u.ConversionFactorToMl
		switch {
		case factor < 1:
			return d.StringFixed(1)
		case factor == 1:
			if quantity == math.Trunc(quantity) {
				return d.StringFixed(0)
			}
			return d.StringFixed(1)
		}
	}
	return d.Round(2).String()
}

// Conversion is one entry of AllConversions.
type Conversion struct {
	Unit      UnitDTO `json:"unit"`
	Quantity  float64 `json:"quantity"`
	Formatted string  `json:"formatted"`
}

// AllConversions converts quantity into every other convertible unit of all, keeping
// the order of all. The result is empty when from is not convertible.
func AllConversions(quantity float64, from models.Unit, all []models.Unit) []Conversion {
	out := []Conversion{}
	ml, err := ToMillilitersStrict(quantity, from)
	if err != nil {
		return out
	}
	for _, target := range all {
		if target.ID == from.ID {
			continue
		}
		converted, err := FromMillilitersStrict(ml, target)
		if err != nil {
			continue
		}
		out = append(out, Conversion{
			Unit:      FromModel(target),
			Quantity:  converted,
			Formatted: FormatQuantity(converted, target),
		})
	}
	return out
}

// Converter exposes the lenient conversions: non-convertible units pass the value
// through unchanged and a warning is logged.
type Converter struct {
	logg *logger.Logger
}

func NewConverter(logg *logger.Logger) *Converter {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Converter{logg: logg}
}

func (c *Converter) ToMilliliters(ctx context.Context, quantity float64, u models.Unit) float64 {
	ml, err := ToMillilitersStrict(quantity, u)
	if err != nil {
		c.warn(ctx, u, "to_ml")
		return quantity
	}
	return ml
}

func (c *Converter) FromMilliliters(ctx context.Context, ml float64, u models.Unit) float64 {
	value, err := FromMillilitersStrict(ml, u)
	if err != nil {
		c.warn(ctx, u, "from_ml")
		return ml
	}
	return value
}

// ConvertUnit composes ToMilliliters and FromMilliliters; the factor is the only
// compatibility contract.
func (c *Converter) ConvertUnit(ctx context.Context, quantity float64, from, to models.Unit) float64 {
	return c.FromMilliliters(ctx, c.ToMilliliters(ctx, quantity, from), to)
}

func (c *Converter) warn(ctx context.Context, u models.Unit, direction string) {
	ctx = c.logg.WithFields(ctx, map[string]any{
		"unit_id":   u.ID.String(),
		"unit_name": u.Name,
		"direction": direction,
	})
	c.logg.Warn(ctx, "unit is not convertible, passing quantity through")
}
