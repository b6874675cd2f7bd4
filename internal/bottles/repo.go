package bottles

import (
	"context"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists bottles.
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

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Bottle, error) {
	query := r.db.WithContext(ctx).Preload("Category")
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if !filter.IncludeEmptied {
		query = query.Where("remaining_percent > 0")
	}
	var rows []models.Bottle
	err := query.Order("name ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// ListAll returns every bottle, emptied ones included, without associations.
func (r *Repository) ListAll(ctx context.Context) ([]models.Bottle, error) {
	var rows []models.Bottle
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bottle, error) {
	var row models.Bottle
	if err := r.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.Bottle) error {
	return r.db.WithContext(ctx).Omit("Category").Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.Bottle) error {
	return r.db.WithContext(ctx).Omit("Category").Save(row).Error
}

// Delete removes the bottle and its menu placements.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("bottle_id = ?", id).Delete(&models.MenuBottle{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Bottle{}).Error
}

// CountReferences counts cocktail lines sourcing the bottle directly or preferring it.
func (r *Repository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var direct, preferred int64
	if err := r.db.WithContext(ctx).Model(&models.CocktailIngredient{}).Where("bottle_id = ?", id).Count(&direct).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.CocktailIngredientPreferredBottle{}).Where("bottle_id = ?", id).Count(&preferred).Error; err != nil {
		return 0, err
	}
	return direct + preferred, nil
}

func (r *Repository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
