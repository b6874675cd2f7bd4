package models

import (
	"time"

	"github.com/cartacocktail/carta-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SourceTypeBottle     = string(enums.SourceTypeBottle)
	SourceTypeCategory   = string(enums.SourceTypeCategory)
	SourceTypeIngredient = string(enums.SourceTypeIngredient)
)

// Cocktail is a recipe with ordered ingredient lines and instructions.
type Cocktail struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string                `gorm:"column:name;not null;uniqueIndex:idx_cocktails_name" json:"name"`
	Description  *string               `gorm:"column:description" json:"description"`
	Notes        *string               `gorm:"column:notes" json:"notes"`
	Tags         []string              `gorm:"column:tags;serializer:json;type:text;not null" json:"tags"`
	IsAvailable  bool                  `gorm:"column:is_available;not null" json:"isAvailable"`
	ImagePath    *string               `gorm:"column:image_path" json:"imagePath"`
	Ingredients  []CocktailIngredient  `gorm:"foreignKey:CocktailID" json:"ingredients,omitempty"`
	Instructions []CocktailInstruction `gorm:"foreignKey:CocktailID" json:"instructions,omitempty"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (c *Cocktail) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return nil
}

// CocktailIngredient is the persisted form of a recipe line. Exactly one of BottleID,
// CategoryID and IngredientID is set, matching SourceType.
type CocktailIngredient struct {
	ID               uuid.UUID                           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CocktailID       uuid.UUID                           `gorm:"column:cocktail_id;type:uuid;not null;index" json:"cocktailId"`
	Position         int                                 `gorm:"column:position;not null" json:"position"`
	SourceType       string                              `gorm:"column:source_type;not null" json:"sourceType"`
	BottleID         *uuid.UUID                          `gorm:"column:bottle_id;type:uuid;index" json:"bottleId"`
	CategoryID       *uuid.UUID                          `gorm:"column:category_id;type:uuid;index" json:"categoryId"`
	IngredientID     *uuid.UUID                          `gorm:"column:ingredient_id;type:uuid;index" json:"ingredientId"`
	Quantity         float64                             `gorm:"column:quantity;not null" json:"quantity"`
	UnitID           *uuid.UUID                          `gorm:"column:unit_id;type:uuid;index" json:"unitId"`
	PreferredBottles []CocktailIngredientPreferredBottle `gorm:"foreignKey:CocktailIngredientID" json:"preferredBottles,omitempty"`
}

func (c *CocktailIngredient) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CocktailIngredientPreferredBottle orders the bottles a category line drains first.
type CocktailIngredientPreferredBottle struct {
	CocktailIngredientID uuid.UUID `gorm:"column:cocktail_ingredient_id;type:uuid;primaryKey" json:"cocktailIngredientId"`
	BottleID             uuid.UUID `gorm:"column:bottle_id;type:uuid;primaryKey;index" json:"bottleId"`
	Position             int       `gorm:"column:position;not null" json:"position"`
}

func (CocktailIngredientPreferredBottle) TableName() string {
	return "cocktail_preferred_bottles"
}

type CocktailInstruction struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CocktailID uuid.UUID `gorm:"column:cocktail_id;type:uuid;not null;index" json:"cocktailId"`
	Position   int       `gorm:"column:position;not null" json:"position"`
	Text       string    `gorm:"column:text;not null" json:"text"`
}

func (c *CocktailInstruction) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
