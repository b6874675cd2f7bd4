package units

import (
	"context"
	"fmt"

	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service manages the unit catalogue.
type Service interface {
	List(ctx context.Context) ([]UnitDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UnitDTO, error)
	Create(ctx context.Context, input UnitInput) (*UnitDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UnitInput) (*UnitDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Conversions(ctx context.Context, id uuid.UUID, quantity float64) ([]Conversion, error)
	Convert(ctx context.Context, fromID, toID uuid.UUID, quantity float64) (*ConvertResult, error)
}

// ConvertResult is one lenient conversion. Passthrough is set when either
// unit has no milliliter factor and the quantity came back unchanged.
type ConvertResult struct {
	From        UnitDTO `json:"from"`
	To          UnitDTO `json:"to"`
	Quantity    float64 `json:"quantity"`
	Formatted   string  `json:"formatted"`
	Passthrough bool    `json:"passthrough"`
}

type service struct {
	repo *Repository
	conv *Converter
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("unit repository is required")
	}
	return &service{repo: repo, conv: NewConverter(logg)}, nil
}

func (s *service) List(ctx context.Context) ([]UnitDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list units")
	}
	out := make([]UnitDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UnitDTO, error) {
	unit, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*unit)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input UnitInput) (*UnitDTO, error) {
	input = input.normalized()
	if err := s.ensureUnique(ctx, input, uuid.Nil); err != nil {
		return nil, err
	}
	unit := &models.Unit{
		Name:                 input.Name,
		Abbreviation:         input.Abbreviation,
		ConversionFactorToMl: input.ConversionFactorToMl,
	}
	if err := s.repo.Create(ctx, unit); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "unit already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create unit")
	}
	dto := FromModel(*unit)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UnitInput) (*UnitDTO, error) {
	unit, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	input = input.normalized()
	if err := s.ensureUnique(ctx, input, id); err != nil {
		return nil, err
	}
	unit.Name = input.Name
	unit.Abbreviation = input.Abbreviation
	unit.ConversionFactorToMl = input.ConversionFactorToMl
	if err := s.repo.Save(ctx, unit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update unit")
	}
	dto := FromModel(*unit)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	used, err := s.repo.CountUsage(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unit usage")
	}
	if used > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "unit is used by cocktail ingredients").
			WithDetails(map[string]any{"usage": used})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete unit")
	}
	return nil
}

func (s *service) Conversions(ctx context.Context, id uuid.UUID, quantity float64) ([]Conversion, error) {
	from, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list units")
	}
	return AllConversions(quantity, *from, all), nil
}

func (s *service) Convert(ctx context.Context, fromID, toID uuid.UUID, quantity float64) (*ConvertResult, error) {
	from, err := s.load(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.load(ctx, toID)
	if err != nil {
		return nil, err
	}
	converted := s.conv.ConvertUnit(ctx, quantity, *from, *to)
	return &ConvertResult{
		From:        FromModel(*from),
		To:          FromModel(*to),
		Quantity:    converted,
		Formatted:   FormatQuantity(converted, *to),
		Passthrough: !IsConvertible(*from) || !IsConvertible(*to),
	}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unit")
	}
	return unit, nil
}

func (s *service) ensureUnique(ctx context.Context, input UnitInput, excludeID uuid.UUID) error {
	exists, err := s.repo.ExistsByNameOrAbbreviation(ctx, input.Name, input.Abbreviation, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check unit uniqueness")
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "a unit with this name or abbreviation already exists")
	}
	return nil
}
