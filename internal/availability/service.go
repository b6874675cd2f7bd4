package availability

import (
	"context"
	"fmt"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Service answers availability queries from a fresh stock snapshot.
type Service interface {
	ForAll(ctx context.Context) (map[uuid.UUID]Result, error)
	ForCocktail(ctx context.Context, id uuid.UUID) (*Result, error)
	ForCocktails(ctx context.Context, rows []models.Cocktail) (map[uuid.UUID]Result, error)
}

type service struct {
	db         *gorm.DB
	cocktails  *cocktails.Repository
	thresholds Thresholds
}

func NewService(conn *gorm.DB, cocktailRepo *cocktails.Repository, th Thresholds) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("db is required")
	}
	if cocktailRepo == nil {
		return nil, fmt.Errorf("cocktail repository is required")
	}
	return &service{db: conn, cocktails: cocktailRepo, thresholds: th}, nil
}

func (s *service) ForAll(ctx context.Context) (map[uuid.UUID]Result, error) {
	rows, err := s.cocktails.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cocktails")
	}
	return s.ForCocktails(ctx, rows)
}

func (s *service) ForCocktail(ctx context.Context, id uuid.UUID) (*Result, error) {
	row, err := s.cocktails.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cocktail not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cocktail")
	}
	stock, err := s.loadStock(ctx)
	if err != nil {
		return nil, err
	}
	result := Calculate(*row, stock, s.thresholds)
	return &result, nil
}

// ForCocktails evaluates already loaded cocktails against one snapshot.
func (s *service) ForCocktails(ctx context.Context, rows []models.Cocktail) (map[uuid.UUID]Result, error) {
	stock, err := s.loadStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]Result, len(rows))
	for _, row := range rows {
		out[row.ID] = Calculate(row, stock, s.thresholds)
	}
	return out, nil
}

func (s *service) loadStock(ctx context.Context) (Stock, error) {
	var (
		bottleRows     []models.Bottle
		categoryRows   []models.Category
		ingredientRows []models.Ingredient
		unitRows       []models.Unit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Find(&bottleRows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Find(&categoryRows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Find(&ingredientRows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Find(&unitRows).Error
	})
	if err := g.Wait(); err != nil {
		return Stock{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock snapshot")
	}
	return NewStock(bottleRows, categoryRows, ingredientRows, unitRows), nil
}
