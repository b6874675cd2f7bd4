package models

import (
	"time"

	"github.com/cartacocktail/carta-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	MenuKindCocktails = string(enums.MenuKindCocktails)
	MenuKindBottles   = string(enums.MenuKindBottles)
)

// Menu is a public-facing presentation of cocktails or bottles.
type Menu struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	Slug            string         `gorm:"column:slug;not null;uniqueIndex:idx_menus_slug" json:"slug"`
	Kind            string         `gorm:"column:kind;not null" json:"kind"`
	Description     *string        `gorm:"column:description" json:"description"`
	IsPublic        bool           `gorm:"column:is_public;not null" json:"isPublic"`
	HideUnavailable bool           `gorm:"column:hide_unavailable;not null" json:"hideUnavailable"`
	Sections        []MenuSection  `gorm:"foreignKey:MenuID" json:"sections,omitempty"`
	Cocktails       []MenuCocktail `gorm:"foreignKey:MenuID" json:"cocktails,omitempty"`
	Bottles         []MenuBottle   `gorm:"foreignKey:MenuID" json:"bottles,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (m *Menu) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type MenuSection struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MenuID   uuid.UUID `gorm:"column:menu_id;type:uuid;not null;index" json:"menuId"`
	Name     string    `gorm:"column:name;not null" json:"name"`
	Position int       `gorm:"column:position;not null" json:"position"`
}

func (m *MenuSection) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type MenuCocktail struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MenuID     uuid.UUID           `gorm:"column:menu_id;type:uuid;not null;index" json:"menuId"`
	SectionID  *uuid.UUID          `gorm:"column:section_id;type:uuid" json:"sectionId"`
	CocktailID uuid.UUID           `gorm:"column:cocktail_id;type:uuid;not null;index" json:"cocktailId"`
	Position   int                 `gorm:"column:position;not null" json:"position"`
	Price      decimal.NullDecimal `gorm:"column:price;type:numeric(10,2)" json:"price"`
}

func (m *MenuCocktail) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type MenuBottle struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MenuID    uuid.UUID           `gorm:"column:menu_id;type:uuid;not null;index" json:"menuId"`
	SectionID *uuid.UUID          `gorm:"column:section_id;type:uuid" json:"sectionId"`
	BottleID  uuid.UUID           `gorm:"column:bottle_id;type:uuid;not null;index" json:"bottleId"`
	Position  int                 `gorm:"column:position;not null" json:"position"`
	Price     decimal.NullDecimal `gorm:"column:price;type:numeric(10,2)" json:"price"`
}

func (m *MenuBottle) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
