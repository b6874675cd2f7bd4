package menus

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cartacocktail/carta-backend/internal/availability"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/enums"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/slug"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service manages menus and renders their public view.
type Service interface {
	List(ctx context.Context) ([]MenuDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*MenuDTO, error)
	Create(ctx context.Context, input MenuInput) (*MenuDTO, error)
	Update(ctx context.Context, id uuid.UUID, input MenuInput) (*MenuDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateSection(ctx context.Context, input SectionInput) (*SectionDTO, error)
	UpdateSection(ctx context.Context, id uuid.UUID, input SectionInput) (*SectionDTO, error)
	DeleteSection(ctx context.Context, id uuid.UUID) error

	AddBottle(ctx context.Context, input MenuBottleInput) (*MenuBottleDTO, error)
	UpdateBottle(ctx context.Context, id uuid.UUID, input MenuBottleInput) (*MenuBottleDTO, error)
	RemoveBottle(ctx context.Context, id uuid.UUID) error

	Public(ctx context.Context, slug string) (*PublicMenu, error)
}

type availabilityChecker interface {
	ForCocktails(ctx context.Context, rows []models.Cocktail) (map[uuid.UUID]availability.Result, error)
}

type ServiceParams struct {
	DB           *db.Client
	Availability availabilityChecker
}

type service struct {
	db           *db.Client
	repo         *Repository
	availability availabilityChecker
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Availability == nil {
		return nil, fmt.Errorf("availability service required")
	}
	return &service{
		db:           params.DB,
		repo:         NewRepository(params.DB.DB()),
		availability: params.Availability,
	}, nil
}

func (s *service) List(ctx context.Context) ([]MenuDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list menus")
	}
	out := make([]MenuDTO, 0, len(rows))
	for _, row := range rows {
		dto, err := s.toDTO(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, *dto)
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MenuDTO, error) {
	row, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, *row)
}

func (s *service) Create(ctx context.Context, input MenuInput) (*MenuDTO, error) {
	kind := input.Kind
	if kind == "" {
		kind = enums.MenuKindCocktails
	}
	if !kind.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown menu kind %q", input.Kind)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	var id uuid.UUID
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		menuSlug, err := uniqueSlug(ctx, repo, input.Slug, name, uuid.Nil)
		if err != nil {
			return err
		}
		row := &models.Menu{
			Name:            name,
			Slug:            menuSlug,
			Kind:            string(kind),
			Description:     input.Description,
			IsPublic:        input.IsPublic,
			HideUnavailable: input.HideUnavailable,
		}
		if err := repo.Create(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "idx_menus_slug") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "menu slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create menu")
		}
		id = row.ID
		return s.replaceCocktails(ctx, tx, row, input.Cocktails)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update rewrites the menu columns. The kind is fixed at creation.
func (s *service) Update(ctx context.Context, id uuid.UUID, input MenuInput) (*MenuDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if input.Kind != "" && string(input.Kind) != row.Kind {
			return pkgerrors.New(pkgerrors.CodeValidation, "menu kind cannot change")
		}
		if input.Slug != "" || name != row.Name {
			requested := input.Slug
			if requested == "" {
				requested = row.Slug
			}
			menuSlug, err := uniqueSlug(ctx, repo, requested, name, id)
			if err != nil {
				return err
			}
			row.Slug = menuSlug
		}
		row.Name = name
		row.Description = input.Description
		row.IsPublic = input.IsPublic
		row.HideUnavailable = input.HideUnavailable
		if err := repo.Save(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "idx_menus_slug") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "menu slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update menu")
		}
		if input.Cocktails == nil {
			return nil
		}
		return s.replaceCocktails(ctx, tx, row, input.Cocktails)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, s.repo, id); err != nil {
		return err
	}
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete menu")
	}
	return nil
}

func (s *service) CreateSection(ctx context.Context, input SectionInput) (*SectionDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if _, err := s.load(ctx, s.repo, input.MenuID); err != nil {
		return nil, err
	}
	position, err := s.position(ctx, input.Position, s.repo.NextSectionPosition, input.MenuID)
	if err != nil {
		return nil, err
	}
	row := &models.MenuSection{MenuID: input.MenuID, Name: name, Position: position}
	if err := s.repo.CreateSection(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create menu section")
	}
	dto := sectionFromModel(*row)
	return &dto, nil
}

func (s *service) UpdateSection(ctx context.Context, id uuid.UUID, input SectionInput) (*SectionDTO, error) {
	row, err := s.loadSection(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	row.Name = name
	if input.Position != nil {
		row.Position = *input.Position
	}
	if err := s.repo.SaveSection(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update menu section")
	}
	dto := sectionFromModel(*row)
	return &dto, nil
}

func (s *service) DeleteSection(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadSection(ctx, id); err != nil {
		return err
	}
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteSection(ctx, id)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete menu section")
	}
	return nil
}

func (s *service) AddBottle(ctx context.Context, input MenuBottleInput) (*MenuBottleDTO, error) {
	menu, err := s.load(ctx, s.repo, input.MenuID)
	if err != nil {
		return nil, err
	}
	if menu.Kind != models.MenuKindBottles {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bottles can only be placed on a bottle menu")
	}
	if err := checkSection(menu, input.SectionID); err != nil {
		return nil, err
	}
	if err := checkPrice(input.Price); err != nil {
		return nil, err
	}
	bottle, err := s.bottle(ctx, input.BottleID)
	if err != nil {
		return nil, err
	}
	position, err := s.position(ctx, input.Position, s.repo.NextBottlePosition, menu.ID)
	if err != nil {
		return nil, err
	}
	row := &models.MenuBottle{
		MenuID:    menu.ID,
		SectionID: input.SectionID,
		BottleID:  bottle.ID,
		Position:  position,
		Price:     input.Price,
	}
	if err := s.repo.CreateBottleItem(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add menu bottle")
	}
	dto := bottleItemFromModel(*row, bottle.Name)
	return &dto, nil
}

// UpdateBottle moves or re-prices a placement; the bottle itself is fixed.
func (s *service) UpdateBottle(ctx context.Context, id uuid.UUID, input MenuBottleInput) (*MenuBottleDTO, error) {
	row, err := s.repo.FindBottleItem(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu bottle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu bottle")
	}
	menu, err := s.load(ctx, s.repo, row.MenuID)
	if err != nil {
		return nil, err
	}
	if err := checkSection(menu, input.SectionID); err != nil {
		return nil, err
	}
	if err := checkPrice(input.Price); err != nil {
		return nil, err
	}
	row.SectionID = input.SectionID
	row.Price = input.Price
	if input.Position != nil {
		row.Position = *input.Position
	}
	if err := s.repo.SaveBottleItem(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update menu bottle")
	}
	bottle, err := s.bottle(ctx, row.BottleID)
	if err != nil {
		return nil, err
	}
	dto := bottleItemFromModel(*row, bottle.Name)
	return &dto, nil
}

func (s *service) RemoveBottle(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindBottleItem(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "menu bottle not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu bottle")
	}
	if err := s.repo.DeleteBottleItem(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove menu bottle")
	}
	return nil
}

func (s *service) replaceCocktails(ctx context.Context, tx *gorm.DB, menu *models.Menu, inputs []MenuCocktailInput) error {
	if len(inputs) > 0 && menu.Kind != models.MenuKindCocktails {
		return pkgerrors.New(pkgerrors.CodeValidation, "cocktails can only be placed on a cocktail menu")
	}
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.CocktailID)
	}
	repo := s.repo.WithTx(tx)
	known, err := repo.CocktailsByID(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu cocktails")
	}

	sections := make(map[uuid.UUID]struct{}, len(menu.Sections))
	for _, sec := range menu.Sections {
		sections[sec.ID] = struct{}{}
	}

	items := make([]models.MenuCocktail, 0, len(inputs))
	for i, in := range inputs {
		if _, ok := known[in.CocktailID]; !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "cocktail %s does not exist", in.CocktailID)
		}
		if in.SectionID != nil {
			if _, ok := sections[*in.SectionID]; !ok {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "section %s is not part of this menu", *in.SectionID)
			}
		}
		if err := checkPrice(in.Price); err != nil {
			return err
		}
		position := i
		if in.Position != nil {
			position = *in.Position
		}
		items = append(items, models.MenuCocktail{
			CocktailID: in.CocktailID,
			SectionID:  in.SectionID,
			Position:   position,
			Price:      in.Price,
		})
	}
	if err := repo.ReplaceCocktails(ctx, menu.ID, items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace menu cocktails")
	}
	return nil
}

func (s *service) toDTO(ctx context.Context, row models.Menu) (*MenuDTO, error) {
	cocktailIDs := make([]uuid.UUID, 0, len(row.Cocktails))
	for _, item := range row.Cocktails {
		cocktailIDs = append(cocktailIDs, item.CocktailID)
	}
	cocktailRows, err := s.repo.CocktailsByID(ctx, cocktailIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu cocktails")
	}
	bottleIDs := make([]uuid.UUID, 0, len(row.Bottles))
	for _, item := range row.Bottles {
		bottleIDs = append(bottleIDs, item.BottleID)
	}
	bottleRows, err := s.repo.BottlesByID(ctx, bottleIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu bottles")
	}

	dto := &MenuDTO{
		ID:              row.ID,
		Name:            row.Name,
		Slug:            row.Slug,
		Kind:            enums.MenuKind(row.Kind),
		Description:     row.Description,
		IsPublic:        row.IsPublic,
		HideUnavailable: row.HideUnavailable,
		Sections:        make([]SectionDTO, 0, len(row.Sections)),
		Cocktails:       make([]MenuCocktailDTO, 0, len(row.Cocktails)),
		Bottles:         make([]MenuBottleDTO, 0, len(row.Bottles)),
	}
	for _, sec := range row.Sections {
		dto.Sections = append(dto.Sections, sectionFromModel(sec))
	}
	for _, item := range row.Cocktails {
		dto.Cocktails = append(dto.Cocktails, MenuCocktailDTO{
			ID:         item.ID,
			CocktailID: item.CocktailID,
			Name:       cocktailRows[item.CocktailID].Name,
			SectionID:  item.SectionID,
			Position:   item.Position,
			Price:      item.Price,
		})
	}
	for _, item := range row.Bottles {
		dto.Bottles = append(dto.Bottles, bottleItemFromModel(item, bottleRows[item.BottleID].Name))
	}
	return dto, nil
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Menu, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu")
	}
	return row, nil
}

func (s *service) loadSection(ctx context.Context, id uuid.UUID) (*models.MenuSection, error) {
	row, err := s.repo.FindSection(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu section not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu section")
	}
	return row, nil
}

func (s *service) bottle(ctx context.Context, id uuid.UUID) (*models.Bottle, error) {
	rows, err := s.repo.BottlesByID(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bottle")
	}
	row, ok := rows[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bottle does not exist")
	}
	return &row, nil
}

func (s *service) position(ctx context.Context, requested *int, next func(context.Context, uuid.UUID) (int, error), menuID uuid.UUID) (int, error) {
	if requested != nil {
		return *requested, nil
	}
	position, err := next(ctx, menuID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute position")
	}
	return position, nil
}

func checkSection(menu *models.Menu, sectionID *uuid.UUID) error {
	if sectionID == nil {
		return nil
	}
	for _, sec := range menu.Sections {
		if sec.ID == *sectionID {
			return nil
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "section %s is not part of this menu", *sectionID)
}

func checkPrice(price decimal.NullDecimal) error {
	if price.Valid && price.Decimal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return nil
}

// uniqueSlug derives the slug from requested (or name) and appends -2, -3... until free.
func uniqueSlug(ctx context.Context, repo *Repository, requested, name string, excludeID uuid.UUID) (string, error) {
	source := strings.TrimSpace(requested)
	if source == "" {
		source = name
	}
	base := slug.Make(source, "menu")
	candidate := base
	for i := 2; ; i++ {
		taken, err := repo.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check menu slug")
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}

func sortSections(sections []models.MenuSection) []models.MenuSection {
	out := append([]models.MenuSection(nil), sections...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
