package cron

import (
	"context"
	"fmt"

	"github.com/cartacocktail/carta-backend/internal/availability"
	"github.com/cartacocktail/carta-backend/internal/shortages"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/google/uuid"
)

type StockReportJobParams struct {
	Logger       *logger.Logger
	Shortages    shortageLister
	Availability availabilityReporter
	Gauges       stockGauges
}

type shortageLister interface {
	List(ctx context.Context) ([]shortages.Shortage, error)
}

type availabilityReporter interface {
	ForAll(ctx context.Context) (map[uuid.UUID]availability.Result, error)
}

type stockGauges interface {
	SetShortages(categories, missingBottles int)
	SetUnavailableCocktails(n int)
}

// NewStockReportJob recomputes shortages and cocktail availability and publishes
// the totals as gauges.
func NewStockReportJob(params StockReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Shortages == nil {
		return nil, fmt.Errorf("shortage service required")
	}
	if params.Availability == nil {
		return nil, fmt.Errorf("availability service required")
	}
	if params.Gauges == nil {
		return nil, fmt.Errorf("stock gauges required")
	}
	return &stockReportJob{
		logg:         params.Logger,
		shortages:    params.Shortages,
		availability: params.Availability,
		gauges:       params.Gauges,
	}, nil
}

type stockReportJob struct {
	logg         *logger.Logger
	shortages    shortageLister
	availability availabilityReporter
	gauges       stockGauges
}

func (j *stockReportJob) Name() string { return "stock-report" }

func (j *stockReportJob) Run(ctx context.Context) error {
	short, err := j.shortages.List(ctx)
	if err != nil {
		return fmt.Errorf("compute shortages: %w", err)
	}
	missing := 0
	for _, s := range short {
		missing += s.Missing
	}

	results, err := j.availability.ForAll(ctx)
	if err != nil {
		return fmt.Errorf("compute availability: %w", err)
	}
	unavailable := 0
	for _, r := range results {
		if r.MaxServings == 0 {
			unavailable++
		}
	}

	j.gauges.SetShortages(len(short), missing)
	j.gauges.SetUnavailableCocktails(unavailable)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"short_categories":      len(short),
		"missing_bottles":       missing,
		"cocktails":             len(results),
		"cocktails_unavailable": unavailable,
	})
	if len(short) > 0 {
		j.logg.Warn(logCtx, "stock below desired levels")
		return nil
	}
	j.logg.Info(logCtx, "stock report complete")
	return nil
}
