package recipes

import (
	"context"
	"fmt"
	"time"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Observer records import outcomes; a nil Observer is ignored.
type Observer interface {
	ObserveImport(stage, outcome string, duration time.Duration)
}

// Exported is a rendered document with its download name.
type Exported struct {
	Document *Document
	Filename string
}

type Service interface {
	Export(ctx context.Context, cocktailID uuid.UUID) (*Exported, error)
	Preview(ctx context.Context, doc *Document) (*Preview, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*cocktails.CocktailDTO, error)
}

type ServiceParams struct {
	DB        *db.Client
	Cocktails cocktails.Service
	Observer  Observer
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	db        *db.Client
	cocktails cocktails.Service
	observer  Observer
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Cocktails == nil {
		return nil, fmt.Errorf("cocktails service is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = db.NowUTC
	}
	return &service{
		db:        params.DB,
		cocktails: params.Cocktails,
		observer:  params.Observer,
		logg:      logg,
		now:       now,
	}, nil
}

func (s *service) Export(ctx context.Context, cocktailID uuid.UUID) (*Exported, error) {
	row, err := cocktails.NewRepository(s.db.DB()).FindByID(ctx, cocktailID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cocktail not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cocktail")
	}
	doc, err := buildDocument(ctx, s.db.DB(), row, s.now().Truncate(time.Second))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build export document")
	}
	return &Exported{Document: doc, Filename: Filename(row.Name)}, nil
}

func (s *service) Preview(ctx context.Context, doc *Document) (*Preview, error) {
	start := time.Now()
	if err := doc.Validate(); err != nil {
		s.observe("preview", "invalid", start)
		return nil, err
	}
	preview, err := BuildPreview(ctx, NewLookup(s.db.DB()), doc)
	if err != nil {
		s.observe("preview", "error", start)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build import preview")
	}
	s.observe("preview", "ok", start)
	return preview, nil
}

func (s *service) Confirm(ctx context.Context, req ConfirmRequest) (*cocktails.CocktailDTO, error) {
	start := time.Now()
	var created *models.Cocktail
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := confirmInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		created = row
		return nil
	})
	if err != nil {
		s.observe("confirm", outcomeOf(err), start)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm import")
		}
		return nil, err
	}
	s.observe("confirm", "ok", start)

	ctx = s.logg.WithFields(ctx, map[string]any{"cocktail_id": created.ID.String(), "cocktail_name": created.Name})
	s.logg.Info(ctx, "recipe imported")
	return s.cocktails.Get(ctx, created.ID)
}

func (s *service) observe(stage, outcome string, start time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveImport(stage, outcome, time.Since(start))
}

func outcomeOf(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return "invalid"
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		return "conflict"
	default:
		return "error"
	}
}
