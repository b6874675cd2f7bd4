package recipes

import (
	"context"
	"time"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/slug"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// buildDocument renders a stored cocktail as a portable document.
func buildDocument(ctx context.Context, conn *gorm.DB, row *models.Cocktail, exportedAt time.Time) (*Document, error) {
	repo := cocktails.NewRepository(conn)
	refs, err := repo.LoadReferences(ctx, row.Ingredients)
	if err != nil {
		return nil, err
	}
	bottleCategories, err := loadBottleCategories(ctx, conn, refs)
	if err != nil {
		return nil, err
	}
	categoryName := func(b models.Bottle) string {
		if c, ok := bottleCategories[b.CategoryID]; ok {
			return c.Name
		}
		return ""
	}

	doc := &Document{
		Version:    DocumentVersion,
		ExportedAt: &exportedAt,
		Cocktail: CocktailDoc{
			Name:         row.Name,
			Description:  row.Description,
			Notes:        row.Notes,
			Tags:         row.Tags,
			Ingredients:  make([]LineDoc, 0, len(row.Ingredients)),
			Instructions: make([]InstructionDoc, 0, len(row.Instructions)),
		},
	}
	if doc.Cocktail.Tags == nil {
		doc.Cocktail.Tags = []string{}
	}

	for _, line := range row.Ingredients {
		out := LineDoc{SourceType: line.SourceType, Quantity: line.Quantity}
		switch {
		case line.BottleID != nil:
			b := refs.Bottles[*line.BottleID]
			out.Ref = Ref{Name: b.Name, CategoryName: categoryName(b)}
		case line.CategoryID != nil:
			c := refs.Categories[*line.CategoryID]
			desired := c.DesiredStock
			out.Ref = Ref{Name: c.Name, DesiredStock: &desired}
			if c.Type != nil {
				out.Ref.Type = c.Type.Name
			}
			for _, p := range line.PreferredBottles {
				b, ok := refs.Bottles[p.BottleID]
				if !ok {
					continue
				}
				out.PreferredBottles = append(out.PreferredBottles, BottleRef{Name: b.Name, CategoryName: categoryName(b)})
			}
		case line.IngredientID != nil:
			i := refs.Ingredients[*line.IngredientID]
			out.Ref = Ref{Name: i.Name, Icon: i.Icon}
		}
		if line.UnitID != nil {
			if u, ok := refs.Units[*line.UnitID]; ok {
				out.Unit = &UnitRef{Name: u.Name, Abbreviation: u.Abbreviation, ConversionFactorToMl: u.ConversionFactorToMl}
			}
		}
		doc.Cocktail.Ingredients = append(doc.Cocktail.Ingredients, out)
	}
	for _, step := range row.Instructions {
		doc.Cocktail.Instructions = append(doc.Cocktail.Instructions, InstructionDoc{Text: step.Text})
	}
	return doc, nil
}

func loadBottleCategories(ctx context.Context, conn *gorm.DB, refs cocktails.References) (map[uuid.UUID]models.Category, error) {
	out := make(map[uuid.UUID]models.Category, len(refs.Categories))
	var missing []uuid.UUID
	for _, b := range refs.Bottles {
		if c, ok := refs.Categories[b.CategoryID]; ok {
			out[c.ID] = c
			continue
		}
		missing = append(missing, b.CategoryID)
	}
	if len(missing) == 0 {
		return out, nil
	}
	var rows []models.Category
	if err := conn.WithContext(ctx).Where("id IN ?", missing).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// Filename is the download name for an exported cocktail.
func Filename(cocktailName string) string {
	return slug.Make(cocktailName, "cocktail") + ".json"
}
