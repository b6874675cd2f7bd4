package units

import (
	"context"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists units.
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

func (r *Repository) List(ctx context.Context) ([]models.Unit, error) {
	var rows []models.Unit
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Unit, error) {
	var rows []models.Unit
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// ExistsByNameOrAbbreviation checks case-insensitive collisions, ignoring excludeID.
func (r *Repository) ExistsByNameOrAbbreviation(ctx context.Context, name, abbreviation string, excludeID uuid.UUID) (bool, error) {
	return db.FoldedValueTaken(ctx, r.db, &models.Unit{}, excludeID, map[string]string{
		"name":         name,
		"abbreviation": abbreviation,
	})
}

func (r *Repository) Create(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *Repository) Save(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Unit{}).Error
}

// CountUsage returns how many cocktail lines reference the unit.
func (r *Repository) CountUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CocktailIngredient{}).
		Where("unit_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Unit{}).Count(&count).Error
	return count, err
}
