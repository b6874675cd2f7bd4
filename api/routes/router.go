package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cartacocktail/carta-backend/api/controllers"
	"github.com/cartacocktail/carta-backend/api/middleware"
	"github.com/cartacocktail/carta-backend/internal/auth"
	"github.com/cartacocktail/carta-backend/internal/availability"
	"github.com/cartacocktail/carta-backend/internal/backup"
	"github.com/cartacocktail/carta-backend/internal/bottles"
	"github.com/cartacocktail/carta-backend/internal/categories"
	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/internal/ingredients"
	"github.com/cartacocktail/carta-backend/internal/menus"
	"github.com/cartacocktail/carta-backend/internal/recipes"
	"github.com/cartacocktail/carta-backend/internal/settings"
	"github.com/cartacocktail/carta-backend/internal/shortages"
	"github.com/cartacocktail/carta-backend/internal/units"
	"github.com/cartacocktail/carta-backend/pkg/auth/session"
	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/enums"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/redis"
	"github.com/cartacocktail/carta-backend/pkg/storage"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type requestObserver interface {
	Observe(method, route string, status int, duration time.Duration)
}

// rateLimitStore backs the login throttle and the idempotency replay cache.
type rateLimitStore interface {
	redis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// Params lists everything the router mounts. Nil services answer INTERNAL_ERROR.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          pinger
	Redis       pinger
	Store       rateLimitStore
	Sessions    session.AccessSessionChecker
	HTTPMetrics requestObserver
	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler
	UploadDir      string

	Auth         auth.Service
	Accounts     auth.AccountService
	Units        units.Service
	Categories   categories.Service
	Bottles      bottles.Service
	Ingredients  ingredients.Service
	Cocktails    cocktails.Service
	Recipes      recipes.Service
	Availability availability.Service
	Shortages    shortages.Service
	Menus        menus.Service
	Settings     settings.Service
	Backup       backup.Service
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	loginThrottle := middleware.LoginThrottle{
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}

	metricsHandler := p.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.UploadDir != "" {
		r.Method(http.MethodGet, storage.PublicPrefix+"/*", controllers.Uploads(storage.PublicPrefix, p.UploadDir))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/menus/{slug}", controllers.PublicMenu(p.Menus, logg))
		r.Get("/settings", controllers.SettingsGet(p.Settings, logg))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(loginThrottle.Guard(p.Store, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).Get("/me", controllers.AuthMe(p.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.RateLimit(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, logg))
		r.Use(middleware.Idempotency(p.Store, logg))

		r.Route("/category-types", func(r chi.Router) {
			r.Get("/", controllers.CategoryTypeList(p.Categories, logg))
			r.Post("/", controllers.CategoryTypeCreate(p.Categories, logg))
			r.Put("/{id}", controllers.CategoryTypeUpdate(p.Categories, logg))
			r.Delete("/{id}", controllers.CategoryTypeDelete(p.Categories, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(p.Categories, logg))
			r.Post("/", controllers.CategoryCreate(p.Categories, logg))
			r.Get("/{id}", controllers.CategoryGet(p.Categories, logg))
			r.Put("/{id}", controllers.CategoryUpdate(p.Categories, logg))
			r.Delete("/{id}", controllers.CategoryDelete(p.Categories, logg))
		})

		r.Route("/bottles", func(r chi.Router) {
			r.Get("/", controllers.BottleList(p.Bottles, logg))
			r.Post("/", controllers.BottleCreate(p.Bottles, logg))
			r.Get("/{id}", controllers.BottleGet(p.Bottles, logg))
			r.Put("/{id}", controllers.BottleUpdate(p.Bottles, logg))
			r.Delete("/{id}", controllers.BottleDelete(p.Bottles, logg))
			r.Post("/{id}/empty", controllers.BottleEmpty(p.Bottles, logg))
		})

		r.Route("/units", func(r chi.Router) {
			r.Get("/", controllers.UnitList(p.Units, logg))
			r.Post("/", controllers.UnitCreate(p.Units, logg))
			r.Get("/{id}", controllers.UnitGet(p.Units, logg))
			r.Put("/{id}", controllers.UnitUpdate(p.Units, logg))
			r.Delete("/{id}", controllers.UnitDelete(p.Units, logg))
			r.Get("/{id}/conversions", controllers.UnitConversions(p.Units, logg))
			r.Get("/{id}/convert", controllers.UnitConvert(p.Units, logg))
		})

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", controllers.IngredientList(p.Ingredients, logg))
			r.Post("/", controllers.IngredientCreate(p.Ingredients, logg))
			r.Get("/{id}", controllers.IngredientGet(p.Ingredients, logg))
			r.Put("/{id}", controllers.IngredientUpdate(p.Ingredients, logg))
			r.Delete("/{id}", controllers.IngredientDelete(p.Ingredients, logg))
			r.Post("/{id}/toggle", controllers.IngredientToggle(p.Ingredients, logg))
		})

		r.Route("/cocktails", func(r chi.Router) {
			r.Get("/", controllers.CocktailList(p.Cocktails, logg))
			r.Post("/", controllers.CocktailCreate(p.Cocktails, logg))
			r.Post("/import/preview", controllers.CocktailImportPreview(p.Recipes, logg))
			r.Post("/import/confirm", controllers.CocktailImportConfirm(p.Recipes, logg))
			r.Get("/{id}", controllers.CocktailGet(p.Cocktails, logg))
			r.Put("/{id}", controllers.CocktailUpdate(p.Cocktails, logg))
			r.Delete("/{id}", controllers.CocktailDelete(p.Cocktails, logg))
			r.Get("/{id}/export", controllers.CocktailExport(p.Recipes, logg))
			r.Post("/{id}/image", controllers.CocktailImage(p.Cocktails, cfg.Media.MaxUploadBytes(), logg))
		})

		r.Route("/menus", func(r chi.Router) {
			r.Get("/", controllers.MenuList(p.Menus, logg))
			r.Post("/", controllers.MenuCreate(p.Menus, logg))
			r.Get("/{id}", controllers.MenuGet(p.Menus, logg))
			r.Put("/{id}", controllers.MenuUpdate(p.Menus, logg))
			r.Delete("/{id}", controllers.MenuDelete(p.Menus, logg))
		})
		r.Route("/menu-sections", func(r chi.Router) {
			r.Post("/", controllers.MenuSectionCreate(p.Menus, logg))
			r.Put("/{id}", controllers.MenuSectionUpdate(p.Menus, logg))
			r.Delete("/{id}", controllers.MenuSectionDelete(p.Menus, logg))
		})
		r.Route("/menu-bottles", func(r chi.Router) {
			r.Post("/", controllers.MenuBottleAdd(p.Menus, logg))
			r.Put("/{id}", controllers.MenuBottleUpdate(p.Menus, logg))
			r.Delete("/{id}", controllers.MenuBottleRemove(p.Menus, logg))
		})

		r.Route("/availability", func(r chi.Router) {
			r.Get("/cocktails", controllers.AvailabilityList(p.Availability, logg))
			r.Get("/cocktails/{id}", controllers.AvailabilityGet(p.Availability, logg))
		})
		r.Get("/shortages", controllers.ShortageList(p.Shortages, logg))

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.SettingsGet(p.Settings, logg))
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).Put("/", controllers.SettingsUpdate(p.Settings, logg))
			r.Get("/profile", controllers.ProfileGet(p.Settings, logg))
			r.Put("/profile", controllers.ProfileUpdate(p.Settings, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Get("/backup/export", controllers.BackupExport(p.Backup, logg))
			r.Post("/backup/import", controllers.BackupImport(p.Backup, logg))
			r.Get("/users", controllers.UserList(p.Accounts, logg))
			r.Post("/users", controllers.UserCreate(p.Accounts, logg))
		})
	})

	return r
}
