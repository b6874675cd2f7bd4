package menus

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists menus, sections and placements.
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

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

func (r *Repository) withGraph(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Sections", byPosition).
		Preload("Cocktails", byPosition).
		Preload("Bottles", byPosition)
}

func (r *Repository) List(ctx context.Context) ([]models.Menu, error) {
	var rows []models.Menu
	err := r.withGraph(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Menu, error) {
	var row models.Menu
	if err := r.withGraph(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Menu, error) {
	var row models.Menu
	if err := r.withGraph(ctx).Where("slug = ?", strings.ToLower(slug)).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) SlugTaken(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Menu{}).Where("slug = ?", slug)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *Repository) Create(ctx context.Context, row *models.Menu) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.Menu) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(row).Error
}

// ReplaceCocktails swaps every cocktail placement of the menu.
func (r *Repository) ReplaceCocktails(ctx context.Context, menuID uuid.UUID, items []models.MenuCocktail) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("menu_id = ?", menuID).Delete(&models.MenuCocktail{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].MenuID = menuID
	}
	return tx.Create(&items).Error
}

// Delete removes the menu with its sections and placements.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("menu_id = ?", id).Delete(&models.MenuCocktail{}).Error; err != nil {
		return err
	}
	if err := tx.Where("menu_id = ?", id).Delete(&models.MenuBottle{}).Error; err != nil {
		return err
	}
	if err := tx.Where("menu_id = ?", id).Delete(&models.MenuSection{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Menu{}).Error
}

func (r *Repository) FindSection(ctx context.Context, id uuid.UUID) (*models.MenuSection, error) {
	var row models.MenuSection
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) NextSectionPosition(ctx context.Context, menuID uuid.UUID) (int, error) {
	return r.nextPosition(ctx, &models.MenuSection{}, menuID)
}

func (r *Repository) NextBottlePosition(ctx context.Context, menuID uuid.UUID) (int, error) {
	return r.nextPosition(ctx, &models.MenuBottle{}, menuID)
}

func (r *Repository) nextPosition(ctx context.Context, model any, menuID uuid.UUID) (int, error) {
	var top sql.NullInt64
	row := r.db.WithContext(ctx).Model(model).Where("menu_id = ?", menuID).Select("MAX(position)").Row()
	if err := row.Scan(&top); err != nil || !top.Valid {
		return 0, err
	}
	return int(top.Int64) + 1, nil
}

func (r *Repository) CreateSection(ctx context.Context, row *models.MenuSection) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) SaveSection(ctx context.Context, row *models.MenuSection) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// DeleteSection removes the section; its items fall back to the unsectioned list.
func (r *Repository) DeleteSection(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Model(&models.MenuCocktail{}).Where("section_id = ?", id).Update("section_id", nil).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.MenuBottle{}).Where("section_id = ?", id).Update("section_id", nil).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.MenuSection{}).Error
}

func (r *Repository) FindBottleItem(ctx context.Context, id uuid.UUID) (*models.MenuBottle, error) {
	var row models.MenuBottle
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateBottleItem(ctx context.Context, row *models.MenuBottle) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) SaveBottleItem(ctx context.Context, row *models.MenuBottle) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) DeleteBottleItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MenuBottle{}).Error
}

// CocktailsByID loads cocktails with their lines so availability can be evaluated.
func (r *Repository) CocktailsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Cocktail, error) {
	out := make(map[uuid.UUID]models.Cocktail, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Cocktail
	err := r.db.WithContext(ctx).
		Preload("Ingredients", byPosition).
		Preload("Ingredients.PreferredBottles", byPosition).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// BottlesByID loads bottles with their category.
func (r *Repository) BottlesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Bottle, error) {
	out := make(map[uuid.UUID]models.Bottle, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Bottle
	if err := r.db.WithContext(ctx).Preload("Category").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
