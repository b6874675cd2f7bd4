package categories

import (
	"context"
	"errors"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists categories and category types.
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

func (r *Repository) ListTypes(ctx context.Context) ([]models.CategoryType, error) {
	var rows []models.CategoryType
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindTypeByID(ctx context.Context, id uuid.UUID) (*models.CategoryType, error) {
	var row models.CategoryType
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindTypeByName matches case-insensitively; nil when absent.
func (r *Repository) FindTypeByName(ctx context.Context, name string) (*models.CategoryType, error) {
	var row models.CategoryType
	err := r.db.WithContext(ctx).Where("UPPER(name) = UPPER(?)", name).Order("created_at ASC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateType(ctx context.Context, row *models.CategoryType) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) SaveType(ctx context.Context, row *models.CategoryType) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) DeleteType(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CategoryType{}).Error
}

func (r *Repository) CountCategoriesOfType(ctx context.Context, typeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("type_id = ?", typeID).Count(&count).Error
	return count, err
}

func (r *Repository) CountTypes(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CategoryType{}).Count(&count).Error
	return count, err
}

func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Preload("Type").Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var row models.Category
	if err := r.db.WithContext(ctx).Preload("Type").Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// NameTaken reports a case-insensitive name collision, ignoring excludeID.
func (r *Repository) NameTaken(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	return db.FoldedValueTaken(ctx, r.db, &models.Category{}, excludeID, map[string]string{"name": name})
}

func (r *Repository) Create(ctx context.Context, row *models.Category) error {
	return r.db.WithContext(ctx).Omit("Type").Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.Category) error {
	return r.db.WithContext(ctx).Omit("Type").Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Category{}).Error
}

// CountDependents returns the bottles of the category and the cocktail lines sourcing it.
func (r *Repository) CountDependents(ctx context.Context, id uuid.UUID) (bottles int64, lines int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.Bottle{}).Where("category_id = ?", id).Count(&bottles).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.WithContext(ctx).Model(&models.CocktailIngredient{}).Where("category_id = ?", id).Count(&lines).Error; err != nil {
		return 0, 0, err
	}
	return bottles, lines, nil
}
