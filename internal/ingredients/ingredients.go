package ingredients

import (
	"context"
	"fmt"
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IngredientDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Icon        *string   `json:"icon"`
	IsAvailable bool      `json:"isAvailable"`
}

func FromModel(m models.Ingredient) IngredientDTO {
	return IngredientDTO{ID: m.ID, Name: m.Name, Icon: m.Icon, IsAvailable: m.IsAvailable}
}

// IngredientInput creates or replaces an ingredient. Availability defaults to true.
type IngredientInput struct {
	Name        string  `json:"name" validate:"required,max=128"`
	Icon        *string `json:"icon" validate:"omitempty,max=64"`
	IsAvailable *bool   `json:"isAvailable"`
}

// Repository persists ingredients.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) List(ctx context.Context) ([]models.Ingredient, error) {
	var rows []models.Ingredient
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var row models.Ingredient
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) NameTaken(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	return db.FoldedValueTaken(ctx, r.db, &models.Ingredient{}, excludeID, map[string]string{"name": name})
}

func (r *Repository) Create(ctx context.Context, row *models.Ingredient) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.Ingredient) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Ingredient{}).Error
}

func (r *Repository) CountUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CocktailIngredient{}).Where("ingredient_id = ?", id).Count(&count).Error
	return count, err
}

// Service manages free-form ingredients.
type Service interface {
	List(ctx context.Context) ([]IngredientDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*IngredientDTO, error)
	Create(ctx context.Context, input IngredientInput) (*IngredientDTO, error)
	Update(ctx context.Context, id uuid.UUID, input IngredientInput) (*IngredientDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Toggle(ctx context.Context, id uuid.UUID) (*IngredientDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ingredient repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]IngredientDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ingredients")
	}
	out := make([]IngredientDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*IngredientDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input IngredientInput) (*IngredientDTO, error) {
	name := strings.TrimSpace(input.Name)
	if err := s.ensureName(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	row := &models.Ingredient{Name: name, Icon: input.Icon, IsAvailable: true}
	if input.IsAvailable != nil {
		row.IsAvailable = *input.IsAvailable
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create ingredient")
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input IngredientInput) (*IngredientDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if err := s.ensureName(ctx, name, id); err != nil {
		return nil, err
	}
	row.Name = name
	row.Icon = input.Icon
	if input.IsAvailable != nil {
		row.IsAvailable = *input.IsAvailable
	}
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update ingredient")
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	used, err := s.repo.CountUsage(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count ingredient usage")
	}
	if used > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "ingredient is used by cocktails").
			WithDetails(map[string]any{"cocktailIngredients": used})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete ingredient")
	}
	return nil
}

// Toggle flips the manual availability flag.
func (s *service) Toggle(ctx context.Context, id uuid.UUID) (*IngredientDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	row.IsAvailable = !row.IsAvailable
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle ingredient")
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) ensureName(ctx context.Context, name string, excludeID uuid.UUID) error {
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	taken, err := s.repo.NameTaken(ctx, name, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check ingredient name")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "an ingredient with this name already exists")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ingredient")
	}
	return row, nil
}
