package recipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cartacocktail/carta-backend/internal/bottles"
	"github.com/cartacocktail/carta-backend/internal/categories"
	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/internal/ingredients"
	"github.com/cartacocktail/carta-backend/internal/units"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// ConfirmRequest is the body of the import confirm call.
type ConfirmRequest struct {
	Recipe      Document    `json:"recipe"`
	Resolutions Resolutions `json:"resolutions"`
}

// resolvedBottle remembers the category so preferred lists can be checked.
type resolvedBottle struct {
	id         uuid.UUID
	categoryID uuid.UUID
}

// importer applies resolutions inside one transaction.
type importer struct {
	tx     *gorm.DB
	lookup *Lookup
	refs   References
	res    Resolutions

	units       map[string]uuid.UUID
	categories  map[string]uuid.UUID
	bottles     map[string]resolvedBottle
	skipped     map[string]bool
	ingredients map[string]uuid.UUID

	problems error
}

func newImporter(tx *gorm.DB, doc *Document, res Resolutions) *importer {
	return &importer{
		tx:          tx,
		lookup:      NewLookup(tx),
		refs:        CollectReferences(doc),
		res:         res,
		units:       map[string]uuid.UUID{},
		categories:  map[string]uuid.UUID{},
		bottles:     map[string]resolvedBottle{},
		skipped:     map[string]bool{},
		ingredients: map[string]uuid.UUID{},
	}
}

func (im *importer) problem(format string, args ...any) {
	im.problems = multierr.Append(im.problems, fmt.Errorf(format, args...))
}

// confirmInTx creates every resolved entity then the cocktail. Any returned error
// must roll the transaction back.
func confirmInTx(ctx context.Context, tx *gorm.DB, req ConfirmRequest) (*models.Cocktail, error) {
	if err := req.Recipe.Validate(); err != nil {
		return nil, err
	}
	im := newImporter(tx, &req.Recipe, req.Resolutions)

	steps := []func(context.Context) error{
		im.resolveUnits,
		im.resolveCategories,
		im.resolveBottles,
		im.resolveIngredients,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return nil, err
		}
	}
	if err := validationError("import resolutions are incomplete", im.problems); err != nil {
		return nil, err
	}
	return cocktails.CreateInTx(ctx, tx, im.cocktailInput(&req.Recipe))
}

func (im *importer) resolveUnits(ctx context.Context) error {
	repo := units.NewRepository(im.tx)
	for _, key := range im.refs.Units.Keys {
		ref := im.refs.Units.Refs[key]
		res, ok := im.res.Units[key]
		if !ok {
			row, err := im.lookup.Unit(ctx, ref)
			if err != nil {
				return err
			}
			if row == nil {
				im.problem("unit %q has no resolution", key)
				continue
			}
			im.units[key] = row.ID
			continue
		}

		switch res.Action {
		case ActionUseExisting:
			if res.ExistingID == nil {
				im.problem("unit %q: existingId is required", key)
				continue
			}
			row, err := repo.FindByID(ctx, *res.ExistingID)
			if db.IsNotFound(err) {
				im.problem("unit %q: unit %s does not exist", key, *res.ExistingID)
				continue
			}
			if err != nil {
				return err
			}
			im.units[key] = row.ID
		case ActionCreate:
			data := DefaultUnit(ref)
			if res.Data != nil {
				data = *res.Data
			}
			name := strings.TrimSpace(data.Name)
			abbr := strings.TrimSpace(data.Abbreviation)
			if abbr == "" {
				abbr = name
			}
			if name == "" {
				im.problem("unit %q: name is required", key)
				continue
			}
			if data.ConversionFactorToMl != nil && *data.ConversionFactorToMl <= 0 {
				im.problem("unit %q: conversionFactorToMl must be positive", key)
				continue
			}
			taken, err := repo.ExistsByNameOrAbbreviation(ctx, name, abbr, uuid.Nil)
			if err != nil {
				return err
			}
			if taken {
				im.problem("unit %q: a unit with this name or abbreviation already exists", key)
				continue
			}
			row := &models.Unit{Name: name, Abbreviation: abbr, ConversionFactorToMl: data.ConversionFactorToMl}
			if err := repo.Create(ctx, row); err != nil {
				return err
			}
			im.units[key] = row.ID
		default:
			im.problem("unit %q: action %q is not allowed", key, res.Action)
		}
	}
	return nil
}

func (im *importer) resolveCategories(ctx context.Context) error {
	repo := categories.NewRepository(im.tx)
	for _, key := range im.refs.Categories.Keys {
		ref := im.refs.Categories.Refs[key]
		res, ok := im.res.Categories[key]
		if !ok {
			row, err := im.lookup.Category(ctx, ref.Name)
			if err != nil {
				return err
			}
			if row == nil {
				im.problem("category %q has no resolution", key)
				continue
			}
			im.categories[key] = row.ID
			continue
		}

		switch res.Action {
		case ActionUseExisting:
			if res.ExistingID == nil {
				im.problem("category %q: existingId is required", key)
				continue
			}
			row, err := repo.FindByID(ctx, *res.ExistingID)
			if db.IsNotFound(err) {
				im.problem("category %q: category %s does not exist", key, *res.ExistingID)
				continue
			}
			if err != nil {
				return err
			}
			im.categories[key] = row.ID
		case ActionCreate:
			data := DefaultCategory(ref)
			if res.Data != nil {
				data = *res.Data
			}
			name := strings.TrimSpace(data.Name)
			if name == "" {
				im.problem("category %q: name is required", key)
				continue
			}
			if data.DesiredStock < 0 {
				im.problem("category %q: desiredStock cannot be negative", key)
				continue
			}
			taken, err := repo.NameTaken(ctx, name, uuid.Nil)
			if err != nil {
				return err
			}
			if taken {
				im.problem("category %q: a category with this name already exists", key)
				continue
			}
			typeID, err := im.categoryType(ctx, repo, data.Type)
			if err != nil {
				return err
			}
			row := &models.Category{Name: name, TypeID: typeID, DesiredStock: data.DesiredStock}
			if err := repo.Create(ctx, row); err != nil {
				return err
			}
			im.categories[key] = row.ID
		default:
			im.problem("category %q: action %q is not allowed", key, res.Action)
		}
	}
	return nil
}

// categoryType finds the named type or creates it.
func (im *importer) categoryType(ctx context.Context, repo *categories.Repository, name string) (uuid.UUID, error) {
	name = categories.NormalizeTypeName(name)
	if name == "" {
		name = DefaultCategoryType
	}
	existing, err := repo.FindTypeByName(ctx, name)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	row := &models.CategoryType{Name: name}
	if err := repo.CreateType(ctx, row); err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (im *importer) resolveBottles(ctx context.Context) error {
	repo := bottles.NewRepository(im.tx)
	for _, key := range im.refs.Bottles.Keys {
		ref := im.refs.Bottles.Refs[key]
		res, ok := im.res.Bottles[key]
		if !ok {
			row, err := im.lookup.Bottle(ctx, ref.Name)
			if err != nil {
				return err
			}
			if row == nil {
				im.problem("bottle %q has no resolution", key)
				continue
			}
			im.bottles[key] = resolvedBottle{id: row.ID, categoryID: row.CategoryID}
			continue
		}

		switch res.Action {
		case ActionSkip:
			im.skipped[key] = true
		case ActionUseExisting:
			if res.ExistingID == nil {
				im.problem("bottle %q: existingId is required", key)
				continue
			}
			row, err := repo.FindByID(ctx, *res.ExistingID)
			if db.IsNotFound(err) {
				im.problem("bottle %q: bottle %s does not exist", key, *res.ExistingID)
				continue
			}
			if err != nil {
				return err
			}
			im.bottles[key] = resolvedBottle{id: row.ID, categoryID: row.CategoryID}
		case ActionCreate:
			data := DefaultBottle(ref)
			if res.Data != nil {
				data = *res.Data
			}
			name := strings.TrimSpace(data.Name)
			if name == "" {
				im.problem("bottle %q: name is required", key)
				continue
			}
			categoryID, found, err := im.bottleCategory(ctx, data.CategoryName)
			if err != nil {
				return err
			}
			if !found {
				im.problem("bottle %q: category %q does not exist", key, data.CategoryName)
				continue
			}
			row := &models.Bottle{
				Name:             name,
				CategoryID:       categoryID,
				CapacityMl:       data.CapacityMl,
				RemainingPercent: data.RemainingPercent,
			}
			if row.CapacityMl <= 0 {
				row.CapacityMl = bottles.DefaultCapacityMl
			}
			if row.RemainingPercent < 0 || row.RemainingPercent > 100 {
				row.RemainingPercent = bottles.DefaultRemainingPercent
			}
			if err := repo.Create(ctx, row); err != nil {
				return err
			}
			im.bottles[key] = resolvedBottle{id: row.ID, categoryID: categoryID}
		default:
			im.problem("bottle %q: action %q is not allowed", key, res.Action)
		}
	}
	return nil
}

// bottleCategory prefers a category resolved in this import, then an existing one.
func (im *importer) bottleCategory(ctx context.Context, name string) (uuid.UUID, bool, error) {
	key := NameKey(name)
	if key == "" {
		return uuid.Nil, false, nil
	}
	if id, ok := im.categories[key]; ok {
		return id, true, nil
	}
	row, err := im.lookup.Category(ctx, name)
	if err != nil {
		return uuid.Nil, false, err
	}
	if row == nil {
		return uuid.Nil, false, nil
	}
	return row.ID, true, nil
}

func (im *importer) resolveIngredients(ctx context.Context) error {
	repo := ingredients.NewRepository(im.tx)
	for _, key := range im.refs.Ingredients.Keys {
		ref := im.refs.Ingredients.Refs[key]
		res, ok := im.res.Ingredients[key]
		if !ok {
			row, err := im.lookup.Ingredient(ctx, ref.Name)
			if err != nil {
				return err
			}
			if row == nil {
				im.problem("ingredient %q has no resolution", key)
				continue
			}
			im.ingredients[key] = row.ID
			continue
		}

		switch res.Action {
		case ActionUseExisting:
			if res.ExistingID == nil {
				im.problem("ingredient %q: existingId is required", key)
				continue
			}
			row, err := repo.FindByID(ctx, *res.ExistingID)
			if db.IsNotFound(err) {
				im.problem("ingredient %q: ingredient %s does not exist", key, *res.ExistingID)
				continue
			}
			if err != nil {
				return err
			}
			im.ingredients[key] = row.ID
		case ActionCreate:
			data := DefaultIngredient(ref)
			if res.Data != nil {
				data = *res.Data
			}
			name := strings.TrimSpace(data.Name)
			if name == "" {
				im.problem("ingredient %q: name is required", key)
				continue
			}
			taken, err := repo.NameTaken(ctx, name, uuid.Nil)
			if err != nil {
				return err
			}
			if taken {
				im.problem("ingredient %q: an ingredient with this name already exists", key)
				continue
			}
			row := &models.Ingredient{Name: name, Icon: data.Icon, IsAvailable: true}
			if err := repo.Create(ctx, row); err != nil {
				return err
			}
			im.ingredients[key] = row.ID
		default:
			im.problem("ingredient %q: action %q is not allowed", key, res.Action)
		}
	}
	return nil
}

// cocktailInput rewrites the document lines onto resolved ids. Lines whose bottle was
// skipped are dropped, and so are preferred bottles outside the line's category.
func (im *importer) cocktailInput(doc *Document) cocktails.CocktailInput {
	in := cocktails.CocktailInput{
		Name:        doc.Cocktail.Name,
		Description: doc.Cocktail.Description,
		Notes:       doc.Cocktail.Notes,
		Tags:        doc.Cocktail.Tags,
	}
	for _, line := range doc.Cocktail.Ingredients {
		li := cocktails.LineInput{
			SourceType: strings.ToUpper(line.SourceType),
			Quantity:   line.Quantity,
		}
		if line.Unit != nil {
			if id, ok := im.units[UnitKey(line.Unit.Name, line.Unit.Abbreviation)]; ok {
				li.UnitID = &id
			}
		}
		switch li.SourceType {
		case models.SourceTypeBottle:
			key := NameKey(line.Ref.Name)
			if im.skipped[key] {
				continue
			}
			bottle := im.bottles[key]
			li.BottleID = &bottle.id
		case models.SourceTypeCategory:
			categoryID := im.categories[NameKey(line.Ref.Name)]
			li.CategoryID = &categoryID
			for _, p := range line.PreferredBottles {
				key := NameKey(p.Name)
				bottle, ok := im.bottles[key]
				if !ok || im.skipped[key] || bottle.categoryID != categoryID {
					continue
				}
				li.PreferredBottleIDs = append(li.PreferredBottleIDs, bottle.id)
			}
		case models.SourceTypeIngredient:
			id := im.ingredients[NameKey(line.Ref.Name)]
			li.IngredientID = &id
		}
		in.Ingredients = append(in.Ingredients, li)
	}
	for _, step := range doc.Cocktail.Instructions {
		in.Instructions = append(in.Instructions, cocktails.InstructionInput{Text: step.Text})
	}
	return in
}
