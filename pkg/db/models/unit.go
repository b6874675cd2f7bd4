package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unit is a measurement unit. A nil ConversionFactorToMl marks it as non-convertible.
type Unit struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                 string    `gorm:"column:name;not null" json:"name"`
	Abbreviation         string    `gorm:"column:abbreviation;not null" json:"abbreviation"`
	ConversionFactorToMl *float64  `gorm:"column:conversion_factor_to_ml" json:"conversionFactorToMl"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (u *Unit) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
