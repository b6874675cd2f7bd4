package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service manages category types and categories.
type Service interface {
	ListTypes(ctx context.Context) ([]CategoryTypeDTO, error)
	CreateType(ctx context.Context, input CategoryTypeInput) (*CategoryTypeDTO, error)
	UpdateType(ctx context.Context, id uuid.UUID, input CategoryTypeInput) (*CategoryTypeDTO, error)
	DeleteType(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context) ([]CategoryDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	Create(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListTypes(ctx context.Context) ([]CategoryTypeDTO, error) {
	rows, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list category types")
	}
	out := make([]CategoryTypeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, typeFromModel(row))
	}
	return out, nil
}

func (s *service) CreateType(ctx context.Context, input CategoryTypeInput) (*CategoryTypeDTO, error) {
	name := NormalizeTypeName(input.Name)
	if err := s.ensureTypeNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	row := &models.CategoryType{Name: name}
	if err := s.repo.CreateType(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category type already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category type")
	}
	dto := typeFromModel(*row)
	return &dto, nil
}

func (s *service) UpdateType(ctx context.Context, id uuid.UUID, input CategoryTypeInput) (*CategoryTypeDTO, error) {
	row, err := s.loadType(ctx, id)
	if err != nil {
		return nil, err
	}
	name := NormalizeTypeName(input.Name)
	if err := s.ensureTypeNameFree(ctx, name, id); err != nil {
		return nil, err
	}
	row.Name = name
	if err := s.repo.SaveType(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update category type")
	}
	dto := typeFromModel(*row)
	return &dto, nil
}

func (s *service) DeleteType(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadType(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountCategoriesOfType(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count categories")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category type still has categories").
			WithDetails(map[string]any{"categories": count})
	}
	if err := s.repo.DeleteType(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category type")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate(ctx, input, uuid.Nil); err != nil {
		return nil, err
	}
	row := &models.Category{Name: input.Name, TypeID: input.TypeID, DesiredStock: input.DesiredStock}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return s.Get(ctx, row.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate(ctx, input, id); err != nil {
		return nil, err
	}
	row.Name = input.Name
	row.TypeID = input.TypeID
	row.DesiredStock = input.DesiredStock
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update category")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	bottles, lines, err := s.repo.CountDependents(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count category dependents")
	}
	if bottles > 0 || lines > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category is still in use").
			WithDetails(map[string]any{"bottles": bottles, "cocktailIngredients": lines})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
	}
	return nil
}

func (s *service) validate(ctx context.Context, input CategoryInput, excludeID uuid.UUID) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.DesiredStock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "desired stock cannot be negative")
	}
	if input.TypeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "type is required")
	}
	if _, err := s.loadType(ctx, input.TypeID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "category type does not exist")
		}
		return err
	}
	taken, err := s.repo.NameTaken(ctx, input.Name, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check category name")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "a category with this name already exists")
	}
	return nil
}

func (s *service) ensureTypeNameFree(ctx context.Context, name string, excludeID uuid.UUID) error {
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	existing, err := s.repo.FindTypeByName(ctx, name)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check category type name")
	}
	if existing != nil && existing.ID != excludeID {
		return pkgerrors.New(pkgerrors.CodeConflict, "category type already exists")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	return row, nil
}

func (s *service) loadType(ctx context.Context, id uuid.UUID) (*models.CategoryType, error) {
	row, err := s.repo.FindTypeByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category type not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category type")
	}
	return row, nil
}
