package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ingredient is a free-form consumable tracked only by a manual availability flag.
type Ingredient struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Icon        *string   `gorm:"column:icon" json:"icon"`
	IsAvailable bool      `gorm:"column:is_available;not null" json:"isAvailable"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (i *Ingredient) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
