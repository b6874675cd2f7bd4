package cocktails

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const imageFolder = "cocktails"

// ImageStore persists uploaded cocktail photos and returns their public path.
type ImageStore interface {
	SaveImage(ctx context.Context, folder string, r io.Reader) (string, error)
	Delete(ctx context.Context, publicPath string) error
}

// Service manages cocktail recipes.
type Service interface {
	List(ctx context.Context, in ListInput) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*CocktailDTO, error)
	Create(ctx context.Context, input CocktailInput) (*CocktailDTO, error)
	Update(ctx context.Context, id uuid.UUID, input CocktailInput) (*CocktailDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetImage(ctx context.Context, id uuid.UUID, r io.Reader) (*CocktailDTO, error)
}

type ServiceParams struct {
	Repo   *Repository
	DB     db.TxRunner
	Images ImageStore
	Logger *logger.Logger
}

type service struct {
	repo   *Repository
	db     db.TxRunner
	images ImageStore
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cocktail repository is required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		repo:   params.Repo,
		db:     params.DB,
		images: params.Images,
		logg:   params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	if _, err := pagination.ParseCursor(in.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, in)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cocktails")
	}

	result := &ListResult{}
	rows, result.NextCursor = pagination.Trim(rows, in.Limit, func(c models.Cocktail) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})

	items, err := s.toDTOs(ctx, rows)
	if err != nil {
		return nil, err
	}
	result.Items = items
	return result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CocktailDTO, error) {
	row, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dtos, err := s.toDTOs(ctx, []models.Cocktail{*row})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

func (s *service) Create(ctx context.Context, input CocktailInput) (*CocktailDTO, error) {
	var created uuid.UUID
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := CreateInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = row.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, created)
}

// CreateInTx validates and inserts a cocktail using tx.
func CreateInTx(ctx context.Context, tx *gorm.DB, input CocktailInput) (*models.Cocktail, error) {
	repo := NewRepository(tx)
	row, err := buildModel(ctx, repo, input, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a cocktail with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cocktail")
	}
	return row, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input CocktailInput) (*CocktailDTO, error) {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		row, err := buildModel(ctx, repo, input, id)
		if err != nil {
			return err
		}
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		row.ImagePath = existing.ImagePath
		if err := repo.Replace(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cocktail")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	row, err := s.load(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cocktail")
	}
	s.removeImage(ctx, row.ImagePath)
	return nil
}

// SetImage stores a new photo and drops the previous one.
func (s *service) SetImage(ctx context.Context, id uuid.UUID, r io.Reader) (*CocktailDTO, error) {
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "image storage is not configured")
	}
	row, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	path, err := s.images.SaveImage(ctx, imageFolder, r)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetImagePath(ctx, id, &path); err != nil {
		s.removeImage(ctx, &path)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cocktail image")
	}
	s.removeImage(ctx, row.ImagePath)
	return s.Get(ctx, id)
}

func (s *service) removeImage(ctx context.Context, path *string) {
	if s.images == nil || path == nil || *path == "" {
		return
	}
	if err := s.images.Delete(ctx, *path); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "image_path", *path), "failed to remove cocktail image")
	}
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Cocktail, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cocktail not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cocktail")
	}
	return row, nil
}

func buildModel(ctx context.Context, repo *Repository, input CocktailInput, excludeID uuid.UUID) (*models.Cocktail, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	taken, err := repo.NameTaken(ctx, name, excludeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cocktail name")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a cocktail with this name already exists").
			WithDetails(map[string]any{"name": name})
	}

	lines, err := input.Lines()
	if err != nil {
		return nil, err
	}

	row := &models.Cocktail{
		Name:        name,
		Description: input.Description,
		Notes:       input.Notes,
		Tags:        NormalizeTags(input.Tags),
		IsAvailable: true,
	}
	if input.IsAvailable != nil {
		row.IsAvailable = *input.IsAvailable
	}
	for _, line := range lines {
		row.Ingredients = append(row.Ingredients, line.ToModel(uuid.Nil))
	}
	if err := checkReferences(ctx, repo, row.Ingredients); err != nil {
		return nil, err
	}
	position := 0
	for _, step := range input.Instructions {
		text := strings.TrimSpace(step.Text)
		if text == "" {
			continue
		}
		row.Instructions = append(row.Instructions, models.CocktailInstruction{Position: position, Text: text})
		position++
	}
	return row, nil
}

func checkReferences(ctx context.Context, repo *Repository, lines []models.CocktailIngredient) error {
	refs, err := repo.LoadReferences(ctx, lines)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load line references")
	}
	var problems []string
	for _, line := range lines {
		switch {
		case line.BottleID != nil:
			if _, ok := refs.Bottles[*line.BottleID]; !ok {
				problems = append(problems, fmt.Sprintf("line %d: bottle %s does not exist", line.Position, *line.BottleID))
			}
		case line.CategoryID != nil:
			if _, ok := refs.Categories[*line.CategoryID]; !ok {
				problems = append(problems, fmt.Sprintf("line %d: category %s does not exist", line.Position, *line.CategoryID))
			}
			for _, p := range line.PreferredBottles {
				bottle, ok := refs.Bottles[p.BottleID]
				if !ok || bottle.CategoryID != *line.CategoryID {
					problems = append(problems, fmt.Sprintf("line %d: preferred bottle %s is not in the category", line.Position, p.BottleID))
				}
			}
		case line.IngredientID != nil:
			if _, ok := refs.Ingredients[*line.IngredientID]; !ok {
				problems = append(problems, fmt.Sprintf("line %d: ingredient %s does not exist", line.Position, *line.IngredientID))
			}
		}
		if line.UnitID != nil {
			if _, ok := refs.Units[*line.UnitID]; !ok {
				problems = append(problems, fmt.Sprintf("line %d: unit %s does not exist", line.Position, *line.UnitID))
			}
		}
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cocktail references unknown entities").WithDetails(problems)
	}
	return nil
}

func (s *service) toDTOs(ctx context.Context, rows []models.Cocktail) ([]CocktailDTO, error) {
	var all []models.CocktailIngredient
	for _, row := range rows {
		all = append(all, row.Ingredients...)
	}
	refs, err := s.repo.LoadReferences(ctx, all)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load line references")
	}
	out := make([]CocktailDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row, refs))
	}
	return out, nil
}

// ToDTO renders a cocktail, resolving display names through refs.
func ToDTO(row models.Cocktail, refs References) CocktailDTO {
	dto := CocktailDTO{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		Notes:        row.Notes,
		Tags:         row.Tags,
		IsAvailable:  row.IsAvailable,
		ImagePath:    row.ImagePath,
		Ingredients:  make([]LineDTO, 0, len(row.Ingredients)),
		Instructions: make([]InstructionDTO, 0, len(row.Instructions)),
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	for _, line := range row.Ingredients {
		item := LineDTO{
			ID:           line.ID,
			Position:     line.Position,
			SourceType:   line.SourceType,
			BottleID:     line.BottleID,
			CategoryID:   line.CategoryID,
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			UnitID:       line.UnitID,
		}
		switch {
		case line.BottleID != nil:
			item.Name = refs.Bottles[*line.BottleID].Name
		case line.CategoryID != nil:
			item.Name = refs.Categories[*line.CategoryID].Name
			for _, p := range sortedPreferred(line.PreferredBottles) {
				item.PreferredBottleIDs = append(item.PreferredBottleIDs, p.BottleID)
			}
		case line.IngredientID != nil:
			item.Name = refs.Ingredients[*line.IngredientID].Name
		}
		if line.UnitID != nil {
			item.UnitAbbreviation = refs.Units[*line.UnitID].Abbreviation
		}
		dto.Ingredients = append(dto.Ingredients, item)
	}
	for _, step := range row.Instructions {
		dto.Instructions = append(dto.Instructions, InstructionDTO{Position: step.Position, Text: step.Text})
	}
	return dto
}
