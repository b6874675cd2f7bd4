package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryType classifies categories (SPIRIT, SYRUP, LIQUEUR, ...).
type CategoryType struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:idx_category_types_name" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (c *CategoryType) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Category groups bottles and carries the sealed-bottle stock target.
type Category struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string        `gorm:"column:name;not null" json:"name"`
	TypeID       uuid.UUID     `gorm:"column:type_id;type:uuid;not null;index" json:"typeId"`
	Type         *CategoryType `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	DesiredStock int           `gorm:"column:desired_stock;not null" json:"desiredStock"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
