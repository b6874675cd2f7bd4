package cocktails

import (
	"context"
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists cocktails with their lines and instructions.
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
	return db.Order("position ASC")
}

func (r *Repository) withGraph(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Ingredients", byPosition).
		Preload("Ingredients.PreferredBottles", byPosition).
		Preload("Instructions", byPosition)
}

// List returns up to limit+1 cocktails, newest first, so callers can detect a next page.
func (r *Repository) List(ctx context.Context, in ListInput) ([]models.Cocktail, error) {
	cursor, err := pagination.ParseCursor(in.Cursor)
	if err != nil {
		return nil, err
	}
	query := r.withGraph(ctx)
	if tag := strings.ToLower(strings.TrimSpace(in.Tag)); tag != "" {
		query = query.Where("tags LIKE ?", `%"`+tag+`"%`)
	}
	if search := strings.ToLower(strings.TrimSpace(in.Search)); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+search+"%")
	}
	var rows []models.Cocktail
	err = pagination.Apply(query, cursor, in.Limit).Find(&rows).Error
	return rows, err
}

// ListAll loads every cocktail with its lines, ordered by name.
func (r *Repository) ListAll(ctx context.Context) ([]models.Cocktail, error) {
	var rows []models.Cocktail
	err := r.withGraph(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cocktail, error) {
	var row models.Cocktail
	if err := r.withGraph(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Cocktail, error) {
	var rows []models.Cocktail
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.withGraph(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *Repository) NameTaken(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	return db.FoldedValueTaken(ctx, r.db, &models.Cocktail{}, excludeID, map[string]string{"name": name})
}

// Create inserts the cocktail and its children. Run it inside a transaction.
func (r *Repository) Create(ctx context.Context, cocktail *models.Cocktail) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(cocktail).Error; err != nil {
		return err
	}
	return r.createChildren(ctx, cocktail)
}

// Replace overwrites the cocktail columns and swaps every line and instruction.
func (r *Repository) Replace(ctx context.Context, cocktail *models.Cocktail) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(cocktail).Error; err != nil {
		return err
	}
	if err := r.deleteChildren(ctx, cocktail.ID); err != nil {
		return err
	}
	return r.createChildren(ctx, cocktail)
}

// Delete removes the cocktail, its children and menu placements.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.deleteChildren(ctx, id); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("cocktail_id = ?", id).Delete(&models.MenuCocktail{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Cocktail{}).Error
}

func (r *Repository) SetImagePath(ctx context.Context, id uuid.UUID, path *string) error {
	return r.db.WithContext(ctx).Model(&models.Cocktail{}).Where("id = ?", id).Update("image_path", path).Error
}

// ImagePaths returns every image path still referenced by a cocktail.
func (r *Repository) ImagePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).
		Model(&models.Cocktail{}).
		Where("image_path IS NOT NULL AND image_path <> ''").
		Pluck("image_path", &paths).Error
	return paths, err
}

func (r *Repository) createChildren(ctx context.Context, cocktail *models.Cocktail) error {
	tx := r.db.WithContext(ctx)
	for i := range cocktail.Ingredients {
		line := &cocktail.Ingredients[i]
		line.CocktailID = cocktail.ID
		if err := tx.Omit(clause.Associations).Create(line).Error; err != nil {
			return err
		}
		for j := range line.PreferredBottles {
			line.PreferredBottles[j].CocktailIngredientID = line.ID
		}
		if len(line.PreferredBottles) > 0 {
			if err := tx.Create(&line.PreferredBottles).Error; err != nil {
				return err
			}
		}
	}
	for i := range cocktail.Instructions {
		cocktail.Instructions[i].CocktailID = cocktail.ID
	}
	if len(cocktail.Instructions) > 0 {
		if err := tx.Create(&cocktail.Instructions).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) deleteChildren(ctx context.Context, cocktailID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	lineIDs := tx.Model(&models.CocktailIngredient{}).Select("id").Where("cocktail_id = ?", cocktailID)
	if err := tx.Where("cocktail_ingredient_id IN (?)", lineIDs).Delete(&models.CocktailIngredientPreferredBottle{}).Error; err != nil {
		return err
	}
	if err := tx.Where("cocktail_id = ?", cocktailID).Delete(&models.CocktailIngredient{}).Error; err != nil {
		return err
	}
	return tx.Where("cocktail_id = ?", cocktailID).Delete(&models.CocktailInstruction{}).Error
}

// References holds display names of everything a set of lines points at.
type References struct {
	Bottles     map[uuid.UUID]models.Bottle
	Categories  map[uuid.UUID]models.Category
	Ingredients map[uuid.UUID]models.Ingredient
	Units       map[uuid.UUID]models.Unit
}

// LoadReferences fetches every bottle, category, ingredient and unit the lines use.
func (r *Repository) LoadReferences(ctx context.Context, lines []models.CocktailIngredient) (References, error) {
	var bottleIDs, categoryIDs, ingredientIDs, unitIDs []uuid.UUID
	for _, line := range lines {
		if line.BottleID != nil {
			bottleIDs = append(bottleIDs, *line.BottleID)
		}
		if line.CategoryID != nil {
			categoryIDs = append(categoryIDs, *line.CategoryID)
		}
		if line.IngredientID != nil {
			ingredientIDs = append(ingredientIDs, *line.IngredientID)
		}
		if line.UnitID != nil {
			unitIDs = append(unitIDs, *line.UnitID)
		}
		for _, p := range line.PreferredBottles {
			bottleIDs = append(bottleIDs, p.BottleID)
		}
	}

	refs := References{
		Bottles:     map[uuid.UUID]models.Bottle{},
		Categories:  map[uuid.UUID]models.Category{},
		Ingredients: map[uuid.UUID]models.Ingredient{},
		Units:       map[uuid.UUID]models.Unit{},
	}
	db := r.db.WithContext(ctx)
	if len(bottleIDs) > 0 {
		var rows []models.Bottle
		if err := db.Where("id IN ?", bottleIDs).Find(&rows).Error; err != nil {
			return refs, err
		}
		for _, row := range rows {
			refs.Bottles[row.ID] = row
		}
	}
	if len(categoryIDs) > 0 {
		var rows []models.Category
		if err := db.Preload("Type").Where("id IN ?", categoryIDs).Find(&rows).Error; err != nil {
			return refs, err
		}
		for _, row := range rows {
			refs.Categories[row.ID] = row
		}
	}
	if len(ingredientIDs) > 0 {
		var rows []models.Ingredient
		if err := db.Where("id IN ?", ingredientIDs).Find(&rows).Error; err != nil {
			return refs, err
		}
		for _, row := range rows {
			refs.Ingredients[row.ID] = row
		}
	}
	if len(unitIDs) > 0 {
		var rows []models.Unit
		if err := db.Where("id IN ?", unitIDs).Find(&rows).Error; err != nil {
			return refs, err
		}
		for _, row := range rows {
			refs.Units[row.ID] = row
		}
	}
	return refs, nil
}
