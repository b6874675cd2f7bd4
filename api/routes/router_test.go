package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cartacocktail/carta-backend/api/middleware"
	"github.com/cartacocktail/carta-backend/internal/backup"
	"github.com/cartacocktail/carta-backend/internal/menus"
	"github.com/cartacocktail/carta-backend/internal/units"
	pkgAuth "github.com/cartacocktail/carta-backend/pkg/auth"
	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/enums"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/redis"
	"github.com/cartacocktail/carta-backend/pkg/storage"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubUnitService struct {
	units.Service
	created int
}

func (s *stubUnitService) List(ctx context.Context) ([]units.UnitDTO, error) {
	ml := 1.0
	return []units.UnitDTO{{ID: uuid.New(), Name: "Millilitre", Abbreviation: "ml", ConversionFactorToMl: &ml, IsConvertible: true}}, nil
}

func (s *stubUnitService) Create(ctx context.Context, input units.UnitInput) (*units.UnitDTO, error) {
	s.created++
	return &units.UnitDTO{ID: uuid.New(), Name: "Dash", Abbreviation: "dash"}, nil
}

type stubMenuService struct {
	menus.Service
}

func (stubMenuService) Public(ctx context.Context, slug string) (*menus.PublicMenu, error) {
	if slug != "house" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu not found")
	}
	return &menus.PublicMenu{Name: "House", Slug: "house", Kind: enums.MenuKindCocktails}, nil
}

type stubBackupService struct {
	backup.Service
}

func (stubBackupService) Export(ctx context.Context) (*backup.Export, error) {
	return &backup.Export{
		Document: &backup.Document{Version: 1},
		Filename: "carta-backup-20240131-224500.json",
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		HTTP: config.HTTPConfig{RateLimitRequests: 100, RateLimitWindow: time.Minute},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginEmailLimit: 5,
			LoginIPLimit:    20,
		},
	}
}

type testDeps struct {
	units *stubUnitService
}

func newTestRouter(t *testing.T, cfg *config.Config, uploadDir string) (http.Handler, *testDeps) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromRaw(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	deps := &testDeps{units: &stubUnitService{}}
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	router := NewRouter(Params{
		Config:         cfg,
		Logger:         logg,
		DB:             stubPinger{},
		Redis:          stubPinger{},
		Store:          client,
		Sessions:       stubSessionChecker{},
		MetricsHandler: http.NotFoundHandler(),
		UploadDir:      uploadDir,
		Units:          deps.units,
		Menus:          stubMenuService{},
		Backup:         stubBackupService{},
	})
	return router, deps
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(), "")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(), "")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/units", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(t, cfg, "")
	req := httptest.NewRequest(http.MethodGet, "/api/units", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"abbreviation":"ml"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestCartaTokenHeaderAuthenticates(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(t, cfg, "")
	req := httptest.NewRequest(http.MethodGet, "/api/units", nil)
	req.Header.Set(middleware.TokenHeader, strings.TrimPrefix(bearer(t, cfg, enums.UserRoleStaff), "Bearer "))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(t, cfg, "")

	staff := httptest.NewRequest(http.MethodGet, "/api/backup/export", nil)
	staff.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/backup/export", nil)
	admin.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Disposition"); !strings.Contains(got, "carta-backup-20240131-224500.json") {
		t.Fatalf("missing attachment filename, got %q", got)
	}
	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	if doc["version"] != float64(1) {
		t.Fatalf("backup should not be enveloped: %v", doc)
	}
}

func TestSettingsUpdateRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(t, cfg, "")
	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"barName":"x"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPublicMenuNeedsNoToken(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(), "")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/public/menus/HOUSE", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/public/menus/missing", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestUnwiredServiceAnswersInternalError(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(t, cfg, "")
	req := httptest.NewRequest(http.MethodGet, "/api/shortages", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestIdempotencyIgnoresUnlistedRoutes(t *testing.T) {
	cfg := testConfig()
	router, deps := newTestRouter(t, cfg, "")
	token := bearer(t, cfg, enums.UserRoleAdmin)

	// units are not on the replay list, so both requests reach the service
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/units", strings.NewReader(`{"name":"Dash","abbreviation":"dash"}`))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "unit-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
		}
	}
	if deps.units.created != 2 {
		t.Fatalf("expected 2 creates got %d", deps.units.created)
	}
}

func TestUploadsServeStoredFilesOnly(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "cocktails"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cocktails", "negroni.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".secret"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	router, _ := newTestRouter(t, testConfig(), dir)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, storage.PublicPrefix+"/cocktails/negroni.png", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "png" {
		t.Fatalf("expected stored file, got %d %q", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, storage.PublicPrefix+"/.secret", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected dotfile to be hidden, got %d", resp.Code)
	}
}

func TestUnitConvertRequiresTarget(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(t, cfg, "")
	req := httptest.NewRequest(http.MethodGet, "/api/units/"+uuid.NewString()+"/convert?quantity=2", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}
