package cocktails

import (
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
)

// LineInput is the wire form of a recipe line. Exactly one reference must match
// SourceType.
type LineInput struct {
	SourceType         string      `json:"sourceType" validate:"required,oneof=BOTTLE CATEGORY INGREDIENT"`
	BottleID           *uuid.UUID  `json:"bottleId"`
	CategoryID         *uuid.UUID  `json:"categoryId"`
	IngredientID       *uuid.UUID  `json:"ingredientId"`
	PreferredBottleIDs []uuid.UUID `json:"preferredBottleIds"`
	Quantity           float64     `json:"quantity" validate:"gte=0"`
	UnitID             *uuid.UUID  `json:"unitId"`
}

// ToLine converts the input into a Line positioned at position.
func (in LineInput) ToLine(position int) (Line, error) {
	set := 0
	for _, ref := range []*uuid.UUID{in.BottleID, in.CategoryID, in.IngredientID} {
		if ref != nil && *ref != uuid.Nil {
			set++
		}
	}
	invalid := func(msg string) error {
		return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"line": position})
	}
	if set != 1 {
		return Line{}, invalid("each ingredient line needs exactly one of bottleId, categoryId or ingredientId")
	}
	if in.Quantity < 0 {
		return Line{}, invalid("quantity cannot be negative")
	}

	line := Line{Position: position, Quantity: in.Quantity, UnitID: in.UnitID}
	switch strings.ToUpper(in.SourceType) {
	case models.SourceTypeBottle:
		if in.BottleID == nil {
			return Line{}, invalid("bottle lines need bottleId")
		}
		line.Source = BottleSource{BottleID: *in.BottleID}
	case models.SourceTypeCategory:
		if in.CategoryID == nil {
			return Line{}, invalid("category lines need categoryId")
		}
		line.Source = CategorySource{CategoryID: *in.CategoryID, PreferredBottleIDs: dedupe(in.PreferredBottleIDs)}
	case models.SourceTypeIngredient:
		if in.IngredientID == nil {
			return Line{}, invalid("ingredient lines need ingredientId")
		}
		line.Source = IngredientSource{IngredientID: *in.IngredientID}
	default:
		return Line{}, invalid("unknown source type")
	}
	return line, nil
}

type InstructionInput struct {
	Text string `json:"text" validate:"required"`
}

// CocktailInput creates or fully replaces a cocktail.
type CocktailInput struct {
	Name         string             `json:"name" validate:"required,max=128"`
	Description  *string            `json:"description"`
	Notes        *string            `json:"notes"`
	Tags         []string           `json:"tags" validate:"omitempty,dive,max=32"`
	IsAvailable  *bool              `json:"isAvailable"`
	Ingredients  []LineInput        `json:"ingredients" validate:"dive"`
	Instructions []InstructionInput `json:"instructions" validate:"dive"`
}

// Lines converts every ingredient input, numbering positions from zero.
func (in CocktailInput) Lines() ([]Line, error) {
	lines := make([]Line, 0, len(in.Ingredients))
	for i, li := range in.Ingredients {
		line, err := li.ToLine(i)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

type LineDTO struct {
	ID                 uuid.UUID   `json:"id"`
	Position           int         `json:"position"`
	SourceType         string      `json:"sourceType"`
	BottleID           *uuid.UUID  `json:"bottleId,omitempty"`
	CategoryID         *uuid.UUID  `json:"categoryId,omitempty"`
	IngredientID       *uuid.UUID  `json:"ingredientId,omitempty"`
	PreferredBottleIDs []uuid.UUID `json:"preferredBottleIds,omitempty"`
	Name               string      `json:"name"`
	Quantity           float64     `json:"quantity"`
	UnitID             *uuid.UUID  `json:"unitId"`
	UnitAbbreviation   string      `json:"unitAbbreviation,omitempty"`
}

type InstructionDTO struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

type CocktailDTO struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Description  *string          `json:"description"`
	Notes        *string          `json:"notes"`
	Tags         []string         `json:"tags"`
	IsAvailable  bool             `json:"isAvailable"`
	ImagePath    *string          `json:"imagePath"`
	Ingredients  []LineDTO        `json:"ingredients"`
	Instructions []InstructionDTO `json:"instructions"`
}

// ListInput filters and pages the cocktail list.
type ListInput struct {
	Tag    string
	Search string
	Cursor string
	Limit  int
}

type ListResult struct {
	Items      []CocktailDTO `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// NormalizeTags trims, lower-cases and de-duplicates tags, keeping first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
