package middleware

import (
	"net/http"
	"slices"

	"github.com/cartacocktail/carta-backend/api/responses"
	"github.com/cartacocktail/carta-backend/pkg/enums"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

// RequireRole lets the request through when the caller holds role or any of
// the extra roles. It must sit behind Auth.
func RequireRole(role enums.UserRole, logg *logger.Logger, extra ...enums.UserRole) func(http.Handler) http.Handler {
	allowed := append([]enums.UserRole{role}, extra...)
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			switch {
			case !ok:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			case !slices.Contains(allowed, actor.Role):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role").
					WithDetails(map[string]any{"required": names, "role": string(actor.Role)}))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
