package bottles

import (
	"context"
	"fmt"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service manages the bottle inventory.
type Service interface {
	List(ctx context.Context, filter ListFilter) ([]BottleDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*BottleDTO, error)
	Create(ctx context.Context, input BottleInput) (*BottleDTO, error)
	Update(ctx context.Context, id uuid.UUID, input BottleInput) (*BottleDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Empty(ctx context.Context, id uuid.UUID) (*BottleDTO, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bottle repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]BottleDTO, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bottles")
	}
	out := make([]BottleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BottleDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input BottleInput) (*BottleDTO, error) {
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	row := &models.Bottle{}
	input.apply(row)
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bottle")
	}
	return s.Get(ctx, row.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input BottleInput) (*BottleDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	input.apply(row)
	row.Category = nil
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update bottle")
	}
	return s.Get(ctx, id)
}

// Delete removes a bottle nothing references. Referenced bottles must be emptied instead.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count bottle references")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "bottle is used by cocktails; empty it instead").
			WithDetails(map[string]any{"cocktailIngredients": refs})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete bottle")
	}
	return nil
}

// Empty marks the bottle as finished while keeping it for history.
func (s *service) Empty(ctx context.Context, id uuid.UUID) (*BottleDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	row.RemainingPercent = 0
	if row.OpenedAt == nil {
		now := s.now().UTC()
		row.OpenedAt = &now
	}
	row.Category = nil
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "empty bottle")
	}
	return s.Get(ctx, id)
}

func (s *service) validate(ctx context.Context, input BottleInput) error {
	if input.CapacityMl <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}
	if input.RemainingPercent != nil && (*input.RemainingPercent < 0 || *input.RemainingPercent > 100) {
		return pkgerrors.New(pkgerrors.CodeValidation, "remaining percent must be between 0 and 100")
	}
	if input.PurchasePrice.Valid && input.PurchasePrice.Decimal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase price cannot be negative")
	}
	if input.CategoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	ok, err := s.repo.CategoryExists(ctx, input.CategoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Bottle, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bottle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bottle")
	}
	return row, nil
}
