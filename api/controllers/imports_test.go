package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/internal/recipes"
	"github.com/cartacocktail/carta-backend/pkg/types"
)

type stubRecipeService struct {
	previewed *recipes.Document
	confirmed *recipes.ConfirmRequest
}

func (s *stubRecipeService) Export(ctx context.Context, id uuid.UUID) (*recipes.Exported, error) {
	return &recipes.Exported{
		Document: &recipes.Document{Version: recipes.DocumentVersion, Cocktail: recipes.CocktailDoc{Name: "Negroni"}},
		Filename: "negroni.json",
	}, nil
}

func (s *stubRecipeService) Preview(ctx context.Context, doc *recipes.Document) (*recipes.Preview, error) {
	s.previewed = doc
	return &recipes.Preview{MissingCount: 0}, nil
}

func (s *stubRecipeService) Confirm(ctx context.Context, req recipes.ConfirmRequest) (*cocktails.CocktailDTO, error) {
	s.confirmed = &req
	return &cocktails.CocktailDTO{ID: uuid.New(), Name: req.Recipe.Cocktail.Name}, nil
}

const negroniDoc = `{"version":1,"cocktail":{"name":"Negroni","ingredients":[{"sourceType":"bottle","quantity":3,"ref":{"name":"Campari","categoryName":"Bitter"}}]}}`

func TestCocktailImportPreviewValidatesDocument(t *testing.T) {
	stub := &stubRecipeService{}

	rec := serve(CocktailImportPreview(stub, testLogger()), httptest.NewRequest(http.MethodPost, "/api/cocktails/import/preview", strings.NewReader(`{"version":2,"cocktail":{}}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected the list of document problems in details")
	}
	if stub.previewed != nil {
		t.Fatalf("invalid document reached the service")
	}

	rec = serve(CocktailImportPreview(stub, testLogger()), httptest.NewRequest(http.MethodPost, "/api/cocktails/import/preview", strings.NewReader(negroniDoc)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.previewed == nil || stub.previewed.Cocktail.Name != "Negroni" {
		t.Fatalf("document not forwarded: %+v", stub.previewed)
	}
}

func TestCocktailImportPreviewRejectsOversizedBody(t *testing.T) {
	big := strings.Repeat(" ", int(maxRecipeBytes)+1)
	rec := serve(CocktailImportPreview(&stubRecipeService{}, testLogger()), httptest.NewRequest(http.MethodPost, "/api/cocktails/import/preview", strings.NewReader(big)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", rec.Code)
	}
}

func TestCocktailImportConfirmCreates(t *testing.T) {
	stub := &stubRecipeService{}
	payload := `{"recipe":` + negroniDoc + `,"resolutions":{"bottles":{"campari":{"action":"skip"}}}}`

	rec := serve(CocktailImportConfirm(stub, testLogger()), httptest.NewRequest(http.MethodPost, "/api/cocktails/import/confirm", strings.NewReader(payload)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.confirmed == nil {
		t.Fatalf("confirm not called")
	}
	if got := stub.confirmed.Resolutions.Bottles["campari"].Action; got != recipes.ActionSkip {
		t.Fatalf("expected skip resolution, got %q", got)
	}
}

func TestCocktailImportConfirmRejectsMalformedJSON(t *testing.T) {
	stub := &stubRecipeService{}
	rec := serve(CocktailImportConfirm(stub, testLogger()), httptest.NewRequest(http.MethodPost, "/api/cocktails/import/confirm", strings.NewReader(`{"recipe":`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if stub.confirmed != nil {
		t.Fatalf("confirm should not run")
	}
}

func TestCocktailExportSetsFilename(t *testing.T) {
	id := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/cocktails/"+id.String()+"/export", nil), "id", id.String())
	rec := serve(CocktailExport(&stubRecipeService{}, testLogger()), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=negroni.json" {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Negroni"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
