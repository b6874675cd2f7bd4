package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bottle is a physical bottle on the shelf. RemainingPercent == 0 means emptied.
type Bottle struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name              string              `gorm:"column:name;not null" json:"name"`
	CategoryID        uuid.UUID           `gorm:"column:category_id;type:uuid;not null;index" json:"categoryId"`
	Category          *Category           `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	CapacityMl        int                 `gorm:"column:capacity_ml;not null" json:"capacityMl"`
	RemainingPercent  int                 `gorm:"column:remaining_percent;not null" json:"remainingPercent"`
	OpenedAt          *time.Time          `gorm:"column:opened_at" json:"openedAt"`
	AlcoholPercentage *float64            `gorm:"column:alcohol_percentage" json:"alcoholPercentage"`
	PurchasePrice     decimal.NullDecimal `gorm:"column:purchase_price;type:numeric(10,2)" json:"purchasePrice"`
	Location          *string             `gorm:"column:location" json:"location"`
	IsApero           bool                `gorm:"column:is_apero;not null" json:"isApero"`
	IsDigestif        bool                `gorm:"column:is_digestif;not null" json:"isDigestif"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (b *Bottle) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// RemainingMl is the volume left in the bottle.
func (b Bottle) RemainingMl() float64 {
	return float64(b.CapacityMl) * float64(b.RemainingPercent) / 100
}

// IsEmptied reports whether the bottle is kept only for history.
func (b Bottle) IsEmptied() bool {
	return b.RemainingPercent <= 0
}

// IsSealed reports whether the bottle has never been opened.
func (b Bottle) IsSealed() bool {
	return b.OpenedAt == nil && b.RemainingPercent >= 100
}
