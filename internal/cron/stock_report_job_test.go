package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/cartacocktail/carta-backend/internal/availability"
	"github.com/cartacocktail/carta-backend/internal/shortages"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/google/uuid"
)

type fakeShortages struct {
	rows []shortages.Shortage
	err  error
}

func (f fakeShortages) List(context.Context) ([]shortages.Shortage, error) {
	return f.rows, f.err
}

type fakeAvailability struct {
	results map[uuid.UUID]availability.Result
}

func (f fakeAvailability) ForAll(context.Context) (map[uuid.UUID]availability.Result, error) {
	return f.results, nil
}

type recordingGauges struct {
	categories, missing, unavailable int
}

func (r *recordingGauges) SetShortages(categories, missingBottles int) {
	r.categories = categories
	r.missing = missingBottles
}

func (r *recordingGauges) SetUnavailableCocktails(n int) { r.unavailable = n }

func TestStockReportPublishesTotals(t *testing.T) {
	gauges := &recordingGauges{}
	job, err := NewStockReportJob(StockReportJobParams{
		Logger: logger.Nop(),
		Shortages: fakeShortages{rows: []shortages.Shortage{
			{CategoryName: "Gin", DesiredStock: 2, SealedCount: 0, Missing: 2},
			{CategoryName: "Rum", DesiredStock: 1, SealedCount: 0, Missing: 1},
		}},
		Availability: fakeAvailability{results: map[uuid.UUID]availability.Result{
			uuid.New(): {IsAvailable: true, MaxServings: 4},
			uuid.New(): {IsAvailable: false, MaxServings: 0},
		}},
		Gauges: gauges,
	})
	if err != nil {
		t.Fatalf("NewStockReportJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gauges.categories != 2 || gauges.missing != 3 {
		t.Fatalf("unexpected shortage gauges %+v", gauges)
	}
	if gauges.unavailable != 1 {
		t.Fatalf("expected 1 unavailable cocktail, got %d", gauges.unavailable)
	}
}

func TestStockReportPropagatesErrors(t *testing.T) {
	job, err := NewStockReportJob(StockReportJobParams{
		Logger:       logger.Nop(),
		Shortages:    fakeShortages{err: errors.New("boom")},
		Availability: fakeAvailability{},
		Gauges:       &recordingGauges{},
	})
	if err != nil {
		t.Fatalf("NewStockReportJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
