package categories

import (
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
)

type CategoryTypeDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CategoryTypeInput struct {
	Name string `json:"name" validate:"required,max=64"`
}

type CategoryDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	TypeID       uuid.UUID `json:"typeId"`
	TypeName     string    `json:"typeName"`
	DesiredStock int       `json:"desiredStock"`
}

type CategoryInput struct {
	Name         string    `json:"name" validate:"required,max=128"`
	TypeID       uuid.UUID `json:"typeId" validate:"required"`
	DesiredStock int       `json:"desiredStock" validate:"gte=0"`
}

func typeFromModel(m models.CategoryType) CategoryTypeDTO {
	return CategoryTypeDTO{ID: m.ID, Name: m.Name}
}

func FromModel(m models.Category) CategoryDTO {
	dto := CategoryDTO{
		ID:           m.ID,
		Name:         m.Name,
		TypeID:       m.TypeID,
		DesiredStock: m.DesiredStock,
	}
	if m.Type != nil {
		dto.TypeName = m.Type.Name
	}
	return dto
}

// NormalizeTypeName upper-cases type names so SPIRIT and Spirit collapse.
func NormalizeTypeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
