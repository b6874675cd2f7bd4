package controllers

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cartacocktail/carta-backend/api/responses"
	"github.com/cartacocktail/carta-backend/internal/menus"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

// PublicMenu renders a public menu by slug for guests. Private menus answer NOT_FOUND.
func PublicMenu(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("menu"))
			return
		}
		slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slug")))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug required"))
			return
		}
		out, err := svc.Public(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=30")
		responses.WriteSuccess(w, out)
	}
}

// Uploads serves stored cocktail images from root under prefix.
func Uploads(prefix, root string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") || strings.HasPrefix(path.Base(r.URL.Path), ".") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fs.ServeHTTP(w, r)
	})
}
