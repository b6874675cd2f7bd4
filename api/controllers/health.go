package controllers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cartacocktail/carta-backend/api/responses"
	"github.com/cartacocktail/carta-backend/pkg/config"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

const (
	envHeader    = "X-Carta-Env"
	readyTimeout = 2 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and Redis concurrently.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]pinger{"database": dbP, "redis": redisP}
		g, gctx := errgroup.WithContext(ctx)
		for name, p := range checks {
			if p == nil {
				continue
			}
			g.Go(func() error {
				if err := p.Ping(gctx); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(map[string]any{"dependency": name})
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
