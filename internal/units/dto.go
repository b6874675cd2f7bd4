package units

import (
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
)

// UnitDTO is the API representation of a unit.
type UnitDTO struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Abbreviation         string    `json:"abbreviation"`
	ConversionFactorToMl *float64  `json:"conversionFactorToMl"`
	IsConvertible        bool      `json:"isConvertible"`
}

func FromModel(m models.Unit) UnitDTO {
	return UnitDTO{
		ID:                   m.ID,
		Name:                 m.Name,
		Abbreviation:         m.Abbreviation,
		ConversionFactorToMl: m.ConversionFactorToMl,
		IsConvertible:        IsConvertible(m),
	}
}

// UnitInput is the validated payload for creating or replacing a unit.
type UnitInput struct {
	Name                 string   `json:"name" validate:"required,max=64"`
	Abbreviation         string   `json:"abbreviation" validate:"required,max=16"`
	ConversionFactorToMl *float64 `json:"conversionFactorToMl" validate:"omitempty,gt=0"`
}

func (in UnitInput) normalized() UnitInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Abbreviation = strings.TrimSpace(in.Abbreviation)
	return in
}
