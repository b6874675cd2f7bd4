package bottles

import (
	"strings"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultCapacityMl       = 700
	DefaultRemainingPercent = 100
)

type BottleDTO struct {
	ID                uuid.UUID           `json:"id"`
	Name              string              `json:"name"`
	CategoryID        uuid.UUID           `json:"categoryId"`
	CategoryName      string              `json:"categoryName,omitempty"`
	CapacityMl        int                 `json:"capacityMl"`
	RemainingPercent  int                 `json:"remainingPercent"`
	RemainingMl       float64             `json:"remainingMl"`
	OpenedAt          *time.Time          `json:"openedAt"`
	AlcoholPercentage *float64            `json:"alcoholPercentage"`
	PurchasePrice     decimal.NullDecimal `json:"purchasePrice"`
	Location          *string             `json:"location"`
	IsApero           bool                `json:"isApero"`
	IsDigestif        bool                `json:"isDigestif"`
	IsEmptied         bool                `json:"isEmptied"`
}

func FromModel(m models.Bottle) BottleDTO {
	dto := BottleDTO{
		ID:                m.ID,
		Name:              m.Name,
		CategoryID:        m.CategoryID,
		CapacityMl:        m.CapacityMl,
		RemainingPercent:  m.RemainingPercent,
		RemainingMl:       m.RemainingMl(),
		OpenedAt:          m.OpenedAt,
		AlcoholPercentage: m.AlcoholPercentage,
		PurchasePrice:     m.PurchasePrice,
		Location:          m.Location,
		IsApero:           m.IsApero,
		IsDigestif:        m.IsDigestif,
		IsEmptied:         m.IsEmptied(),
	}
	if m.Category != nil {
		dto.CategoryName = m.Category.Name
	}
	return dto
}

// BottleInput creates or replaces a bottle. RemainingPercent defaults to full.
type BottleInput struct {
	Name              string              `json:"name" validate:"required,max=128"`
	CategoryID        uuid.UUID           `json:"categoryId" validate:"required"`
	CapacityMl        int                 `json:"capacityMl" validate:"gt=0"`
	RemainingPercent  *int                `json:"remainingPercent" validate:"omitempty,gte=0,lte=100"`
	OpenedAt          *time.Time          `json:"openedAt"`
	AlcoholPercentage *float64            `json:"alcoholPercentage" validate:"omitempty,gte=0,lte=100"`
	PurchasePrice     decimal.NullDecimal `json:"purchasePrice"`
	Location          *string             `json:"location" validate:"omitempty,max=128"`
	IsApero           bool                `json:"isApero"`
	IsDigestif        bool                `json:"isDigestif"`
}

func (in BottleInput) apply(m *models.Bottle) {
	m.Name = strings.TrimSpace(in.Name)
	m.CategoryID = in.CategoryID
	m.CapacityMl = in.CapacityMl
	m.RemainingPercent = DefaultRemainingPercent
	if in.RemainingPercent != nil {
		m.RemainingPercent = *in.RemainingPercent
	}
	m.OpenedAt = in.OpenedAt
	m.AlcoholPercentage = in.AlcoholPercentage
	m.PurchasePrice = in.PurchasePrice
	m.Location = in.Location
	m.IsApero = in.IsApero
	m.IsDigestif = in.IsDigestif
}

// ListFilter narrows bottle listings.
type ListFilter struct {
	CategoryID     *uuid.UUID
	IncludeEmptied bool
}
