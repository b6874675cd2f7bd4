package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 200

// Export is a document ready to be served as an attachment.
type Export struct {
	Document *Document
	Filename string
}

// Service dumps and restores the whole bar.
type Service interface {
	Export(ctx context.Context) (*Export, error)
	Import(ctx context.Context, r io.Reader) (Summary, error)
}

type ServiceParams struct {
	DB     *db.Client
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	db   *db.Client
	logg *logger.Logger
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{db: params.DB, logg: logg, now: now}, nil
}

func (s *service) Export(ctx context.Context) (*Export, error) {
	exportedAt := s.now().UTC()
	doc := &Document{Version: FormatVersion, ExportedAt: exportedAt}
	conn := s.db.DB().WithContext(ctx)

	loads := []struct {
		dest  any
		order string
	}{
		{&doc.Settings, "key ASC"},
		{&doc.Units, "created_at ASC, id ASC"},
		{&doc.CategoryTypes, "created_at ASC, id ASC"},
		{&doc.Categories, "created_at ASC, id ASC"},
		{&doc.Bottles, "created_at ASC, id ASC"},
		{&doc.Ingredients, "created_at ASC, id ASC"},
		{&doc.Cocktails, "created_at ASC, id ASC"},
		{&doc.CocktailIngredients, "cocktail_id ASC, position ASC"},
		{&doc.PreferredBottles, "cocktail_ingredient_id ASC, position ASC"},
		{&doc.Instructions, "cocktail_id ASC, position ASC"},
		{&doc.Menus, "created_at ASC, id ASC"},
		{&doc.MenuSections, "menu_id ASC, position ASC"},
		{&doc.MenuCocktails, "menu_id ASC, position ASC"},
		{&doc.MenuBottles, "menu_id ASC, position ASC"},
	}
	for _, load := range loads {
		if err := conn.Order(load.order).Find(load.dest).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "export backup")
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"cocktails": len(doc.Cocktails), "bottles": len(doc.Bottles)}), "backup exported")
	return &Export{Document: doc, Filename: Filename(exportedAt)}, nil
}

// Import replaces every bar table with the document content in one transaction.
func (s *service) Import(ctx context.Context, r io.Reader) (Summary, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "backup file is not valid JSON")
	}
	if err := doc.Validate(); err != nil {
		problems := make([]string, 0)
		for _, e := range multierr.Errors(err) {
			problems = append(problems, e.Error())
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backup file is inconsistent").
			WithDetails(map[string]any{"problems": problems})
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := wipe(tx); err != nil {
			return err
		}
		return restore(tx, &doc)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore backup")
	}

	summary := doc.Summary()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"cocktails": summary["cocktails"], "bottles": summary["bottles"]}), "backup imported")
	return summary, nil
}

// wipe deletes children before parents.
func wipe(tx *gorm.DB) error {
	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.MenuBottle{},
		&models.MenuCocktail{},
		&models.MenuSection{},
		&models.Menu{},
		&models.CocktailInstruction{},
		&models.CocktailIngredientPreferredBottle{},
		&models.CocktailIngredient{},
		&models.Cocktail{},
		&models.Ingredient{},
		&models.Bottle{},
		&models.Category{},
		&models.CategoryType{},
		&models.Unit{},
		&models.Setting{},
	} {
		if err := all.Delete(model).Error; err != nil {
			return fmt.Errorf("wipe %T: %w", model, err)
		}
	}
	return nil
}

func restore(tx *gorm.DB, doc *Document) error {
	insert := tx.Omit(clause.Associations)
	steps := []struct {
		name string
		rows any
		n    int
	}{
		{"settings", &doc.Settings, len(doc.Settings)},
		{"units", &doc.Units, len(doc.Units)},
		{"category types", &doc.CategoryTypes, len(doc.CategoryTypes)},
		{"categories", &doc.Categories, len(doc.Categories)},
		{"bottles", &doc.Bottles, len(doc.Bottles)},
		{"ingredients", &doc.Ingredients, len(doc.Ingredients)},
		{"cocktails", &doc.Cocktails, len(doc.Cocktails)},
		{"cocktail lines", &doc.CocktailIngredients, len(doc.CocktailIngredients)},
		{"preferred bottles", &doc.PreferredBottles, len(doc.PreferredBottles)},
		{"instructions", &doc.Instructions, len(doc.Instructions)},
		{"menus", &doc.Menus, len(doc.Menus)},
		{"menu sections", &doc.MenuSections, len(doc.MenuSections)},
		{"menu cocktails", &doc.MenuCocktails, len(doc.MenuCocktails)},
		{"menu bottles", &doc.MenuBottles, len(doc.MenuBottles)},
	}
	for _, step := range steps {
		if step.n == 0 {
			continue
		}
		if err := insert.CreateInBatches(step.rows, insertBatchSize).Error; err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "backup contains duplicate "+step.name)
			}
			return fmt.Errorf("restore %s: %w", step.name, err)
		}
	}
	return nil
}
