package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cartacocktail/carta-backend/api/routes"
	"github.com/cartacocktail/carta-backend/internal/auth"
	"github.com/cartacocktail/carta-backend/internal/availability"
	"github.com/cartacocktail/carta-backend/internal/backup"
	"github.com/cartacocktail/carta-backend/internal/bottles"
	"github.com/cartacocktail/carta-backend/internal/categories"
	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/internal/ingredients"
	"github.com/cartacocktail/carta-backend/internal/menus"
	"github.com/cartacocktail/carta-backend/internal/recipes"
	"github.com/cartacocktail/carta-backend/internal/seed"
	"github.com/cartacocktail/carta-backend/internal/settings"
	"github.com/cartacocktail/carta-backend/internal/shortages"
	"github.com/cartacocktail/carta-backend/internal/units"
	"github.com/cartacocktail/carta-backend/internal/users"
	"github.com/cartacocktail/carta-backend/pkg/auth/session"
	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/metrics"
	"github.com/cartacocktail/carta-backend/pkg/migrate"
	"github.com/cartacocktail/carta-backend/pkg/redis"
	"github.com/cartacocktail/carta-backend/pkg/storage"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.SeedDefaults {
		res, err := seed.Run(context.Background(), dbClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to seed defaults", err)
			os.Exit(1)
		}
		if res.Units > 0 || res.CategoryTypes > 0 {
			logg.Info(logg.WithFields(context.Background(), map[string]any{
				"units":          res.Units,
				"category_types": res.CategoryTypes,
			}), "seeded default reference data")
		}
	}

	userRepo := users.NewRepository(dbClient.DB())
	if _, err := users.EnsureBootstrapAdmin(context.Background(), userRepo, cfg.Bootstrap, cfg.Password, logg); err != nil {
		logg.Error(context.Background(), "failed to bootstrap admin account", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	store, err := storage.NewLocalStore(cfg.Media.UploadDir, cfg.Media.MaxUploadBytes(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open upload store", err)
		os.Exit(1)
	}

	params, err := buildParams(cfg, logg, dbClient, userRepo, sessionManager, store)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	params.DB = dbClient
	params.Redis = redisClient
	params.Store = redisClient
	params.Sessions = sessionManager
	params.HTTPMetrics = metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}

func buildParams(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	userRepo *users.Repository,
	sessions *session.Manager,
	store *storage.LocalStore,
) (routes.Params, error) {
	p := routes.Params{Config: cfg, Logger: logg, UploadDir: store.Root()}
	conn := dbClient.DB()
	var err error

	if p.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: &cfg.Password,
	}); err != nil {
		return p, fmt.Errorf("auth service: %w", err)
	}
	if p.Accounts, err = auth.NewAccountService(auth.AccountServiceParams{DB: dbClient, PasswordConfig: cfg.Password}); err != nil {
		return p, fmt.Errorf("account service: %w", err)
	}
	if p.Units, err = units.NewService(units.NewRepository(conn), logg); err != nil {
		return p, fmt.Errorf("unit service: %w", err)
	}
	if p.Categories, err = categories.NewService(categories.NewRepository(conn)); err != nil {
		return p, fmt.Errorf("category service: %w", err)
	}
	if p.Bottles, err = bottles.NewService(bottles.NewRepository(conn)); err != nil {
		return p, fmt.Errorf("bottle service: %w", err)
	}
	if p.Ingredients, err = ingredients.NewService(ingredients.NewRepository(conn)); err != nil {
		return p, fmt.Errorf("ingredient service: %w", err)
	}

	cocktailRepo := cocktails.NewRepository(conn)
	if p.Cocktails, err = cocktails.NewService(cocktails.ServiceParams{
		Repo:   cocktailRepo,
		DB:     dbClient,
		Images: store,
		Logger: logg,
	}); err != nil {
		return p, fmt.Errorf("cocktail service: %w", err)
	}
	if p.Recipes, err = recipes.NewService(recipes.ServiceParams{
		DB:        dbClient,
		Cocktails: p.Cocktails,
		Observer:  metrics.NewImportMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
	}); err != nil {
		return p, fmt.Errorf("recipe service: %w", err)
	}
	if p.Availability, err = availability.NewService(conn, cocktailRepo, availability.Thresholds{
		LowStockServings: cfg.Availability.LowStockServings,
		LowStockPercent:  cfg.Availability.LowStockPercent,
	}); err != nil {
		return p, fmt.Errorf("availability service: %w", err)
	}
	if p.Shortages, err = shortages.NewService(conn); err != nil {
		return p, fmt.Errorf("shortage service: %w", err)
	}
	if p.Menus, err = menus.NewService(menus.ServiceParams{DB: dbClient, Availability: p.Availability}); err != nil {
		return p, fmt.Errorf("menu service: %w", err)
	}
	if p.Settings, err = settings.NewService(settings.ServiceParams{DB: dbClient, PasswordConfig: cfg.Password}); err != nil {
		return p, fmt.Errorf("settings service: %w", err)
	}
	if p.Backup, err = backup.NewService(backup.ServiceParams{DB: dbClient, Logger: logg}); err != nil {
		return p, fmt.Errorf("backup service: %w", err)
	}
	return p, nil
}
