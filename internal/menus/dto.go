package menus

import (
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuInput creates or updates a menu. Cocktails, when provided, replace every cocktail
// placement of the menu.
type MenuInput struct {
	Name            string              `json:"name" validate:"required,max=128"`
	Slug            string              `json:"slug" validate:"omitempty,max=128"`
	Kind            enums.MenuKind      `json:"kind" validate:"omitempty,oneof=COCKTAILS BOTTLES"`
	Description     *string             `json:"description"`
	IsPublic        bool                `json:"isPublic"`
	HideUnavailable bool                `json:"hideUnavailable"`
	Cocktails       []MenuCocktailInput `json:"cocktails" validate:"dive"`
}

type MenuCocktailInput struct {
	CocktailID uuid.UUID           `json:"cocktailId" validate:"required"`
	SectionID  *uuid.UUID          `json:"sectionId"`
	Position   *int                `json:"position"`
	Price      decimal.NullDecimal `json:"price"`
}

type SectionInput struct {
	MenuID   uuid.UUID `json:"menuId"`
	Name     string    `json:"name" validate:"required,max=128"`
	Position *int      `json:"position"`
}

type MenuBottleInput struct {
	MenuID    uuid.UUID           `json:"menuId"`
	SectionID *uuid.UUID          `json:"sectionId"`
	BottleID  uuid.UUID           `json:"bottleId"`
	Position  *int                `json:"position"`
	Price     decimal.NullDecimal `json:"price"`
}

type SectionDTO struct {
	ID       uuid.UUID `json:"id"`
	MenuID   uuid.UUID `json:"menuId"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
}

type MenuCocktailDTO struct {
	ID         uuid.UUID           `json:"id"`
	CocktailID uuid.UUID           `json:"cocktailId"`
	Name       string              `json:"name"`
	SectionID  *uuid.UUID          `json:"sectionId"`
	Position   int                 `json:"position"`
	Price      decimal.NullDecimal `json:"price"`
}

type MenuBottleDTO struct {
	ID        uuid.UUID           `json:"id"`
	MenuID    uuid.UUID           `json:"menuId"`
	BottleID  uuid.UUID           `json:"bottleId"`
	Name      string              `json:"name"`
	SectionID *uuid.UUID          `json:"sectionId"`
	Position  int                 `json:"position"`
	Price     decimal.NullDecimal `json:"price"`
}

type MenuDTO struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Slug            string            `json:"slug"`
	Kind            enums.MenuKind    `json:"kind"`
	Description     *string           `json:"description"`
	IsPublic        bool              `json:"isPublic"`
	HideUnavailable bool              `json:"hideUnavailable"`
	Sections        []SectionDTO      `json:"sections"`
	Cocktails       []MenuCocktailDTO `json:"cocktails"`
	Bottles         []MenuBottleDTO   `json:"bottles"`
}

func sectionFromModel(m models.MenuSection) SectionDTO {
	return SectionDTO{ID: m.ID, MenuID: m.MenuID, Name: m.Name, Position: m.Position}
}

func bottleItemFromModel(m models.MenuBottle, name string) MenuBottleDTO {
	return MenuBottleDTO{
		ID:        m.ID,
		MenuID:    m.MenuID,
		BottleID:  m.BottleID,
		Name:      name,
		SectionID: m.SectionID,
		Position:  m.Position,
		Price:     m.Price,
	}
}

// PublicMenu is the read-only view served to guests.
type PublicMenu struct {
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Kind        enums.MenuKind  `json:"kind"`
	Description *string         `json:"description"`
	Sections    []PublicSection `json:"sections"`
}

// PublicSection groups items; the unsectioned items come last with an empty name.
type PublicSection struct {
	Name  string       `json:"name"`
	Items []PublicItem `json:"items"`
}

type PublicItem struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	ImagePath   *string             `json:"imagePath,omitempty"`
	Category    string              `json:"category,omitempty"`
	Price       decimal.NullDecimal `json:"price"`
	Available   bool                `json:"available"`
}
