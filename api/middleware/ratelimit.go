package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/cartacocktail/carta-backend/api/responses"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

// RateLimit throttles each client IP to requests per window across the
// authenticated API. A non-positive limit disables it.
func RateLimit(requests int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
		}),
	)
}
