package menus

import (
	"context"
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/enums"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/visibility"
	"github.com/google/uuid"
)

type placement struct {
	sectionID *uuid.UUID
	item      PublicItem
}

// Public renders a public menu by slug. Cocktails switched off by hand and emptied
// bottles never appear; cocktails the stock cannot serve are dropped when the menu hides
// unavailable items.
func (s *service) Public(ctx context.Context, menuSlug string) (*PublicMenu, error) {
	row, err := s.repo.FindBySlug(ctx, strings.TrimSpace(menuSlug))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu")
	}
	if err := visibility.EnsureMenuVisible(row); err != nil {
		return nil, err
	}

	var placements []placement
	if row.Kind == models.MenuKindBottles {
		placements, err = s.publicBottles(ctx, row)
	} else {
		placements, err = s.publicCocktails(ctx, row)
	}
	if err != nil {
		return nil, err
	}

	return &PublicMenu{
		Name:        row.Name,
		Slug:        row.Slug,
		Kind:        enums.MenuKind(row.Kind),
		Description: row.Description,
		Sections:    group(sortSections(row.Sections), placements),
	}, nil
}

func (s *service) publicCocktails(ctx context.Context, menu *models.Menu) ([]placement, error) {
	ids := make([]uuid.UUID, 0, len(menu.Cocktails))
	for _, item := range menu.Cocktails {
		ids = append(ids, item.CocktailID)
	}
	rows, err := s.repo.CocktailsByID(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu cocktails")
	}
	listed := make([]models.Cocktail, 0, len(rows))
	for _, id := range ids {
		if row, ok := rows[id]; ok && row.IsAvailable {
			listed = append(listed, row)
		}
	}
	results, err := s.availability.ForCocktails(ctx, listed)
	if err != nil {
		return nil, err
	}

	out := make([]placement, 0, len(listed))
	for _, item := range menu.Cocktails {
		row, ok := rows[item.CocktailID]
		if !ok {
			continue
		}
		shown, servable := visibility.Cocktail(visibility.CocktailInput{
			Cocktail:        row,
			MaxServings:     results[row.ID].MaxServings,
			HideUnavailable: menu.HideUnavailable,
		})
		if !shown {
			continue
		}
		out = append(out, placement{
			sectionID: item.SectionID,
			item: PublicItem{
				ID:          row.ID,
				Name:        row.Name,
				Description: row.Description,
				Tags:        row.Tags,
				ImagePath:   row.ImagePath,
				Price:       item.Price,
				Available:   servable,
			},
		})
	}
	return out, nil
}

func (s *service) publicBottles(ctx context.Context, menu *models.Menu) ([]placement, error) {
	ids := make([]uuid.UUID, 0, len(menu.Bottles))
	for _, item := range menu.Bottles {
		ids = append(ids, item.BottleID)
	}
	rows, err := s.repo.BottlesByID(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu bottles")
	}
	out := make([]placement, 0, len(menu.Bottles))
	for _, item := range menu.Bottles {
		row, ok := rows[item.BottleID]
		if !ok || !visibility.Bottle(row) {
			continue
		}
		category := ""
		if row.Category != nil {
			category = row.Category.Name
		}
		out = append(out, placement{
			sectionID: item.SectionID,
			item: PublicItem{
				ID:        row.ID,
				Name:      row.Name,
				Category:  category,
				Price:     item.Price,
				Available: true,
			},
		})
	}
	return out, nil
}

// group keeps section order, drops empty sections and appends unsectioned items last.
func group(sections []models.MenuSection, placements []placement) []PublicSection {
	bySection := make(map[uuid.UUID][]PublicItem, len(sections))
	var loose []PublicItem
	known := make(map[uuid.UUID]struct{}, len(sections))
	for _, sec := range sections {
		known[sec.ID] = struct{}{}
	}
	for _, p := range placements {
		if p.sectionID != nil {
			if _, ok := known[*p.sectionID]; ok {
				bySection[*p.sectionID] = append(bySection[*p.sectionID], p.item)
				continue
			}
		}
		loose = append(loose, p.item)
	}

	out := make([]PublicSection, 0, len(sections)+1)
	for _, sec := range sections {
		if items := bySection[sec.ID]; len(items) > 0 {
			out = append(out, PublicSection{Name: sec.Name, Items: items})
		}
	}
	if len(loose) > 0 {
		out = append(out, PublicSection{Items: loose})
	}
	return out
}
