package controllers

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/cartacocktail/carta-backend/api/responses"
	"github.com/cartacocktail/carta-backend/api/validators"
	"github.com/cartacocktail/carta-backend/internal/recipes"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

// maxRecipeBytes bounds a single exported recipe; real exports are a few KB.
const maxRecipeBytes int64 = 1 << 20

// CocktailExport returns the portable recipe document and suggests a download name.
func CocktailExport(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("recipe"))
			return
		}
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		exported, err := svc.Export(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exported.Filename}))
		responses.WriteSuccess(w, exported.Document)
	}
}

// CocktailImportPreview matches every entity the document references against the bar.
func CocktailImportPreview(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("recipe"))
			return
		}
		data, err := validators.ReadBody(w, r, maxRecipeBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := recipes.Parse(data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preview, err := svc.Preview(r.Context(), doc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

// CocktailImportConfirm applies the resolutions and creates the cocktail in one transaction.
func CocktailImportConfirm(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("recipe"))
			return
		}
		data, err := validators.ReadBody(w, r, maxRecipeBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// decoded leniently; the recipe is validated by Confirm
		var req recipes.ConfirmRequest
		if err := json.Unmarshal(data, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		created, err := svc.Confirm(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}
