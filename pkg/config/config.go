package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Media         MediaConfig
	Availability  AvailabilityConfig
	Bootstrap     BootstrapConfig
	Worker        WorkerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTA_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARTA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTA_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CARTA_LOG_FORMAT" default:"json"`
}

// ConsoleLogs reports whether logs should be pretty-printed.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(a.LogFormat, "console")
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	CORSOrigins       []string      `envconfig:"CARTA_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	RateLimitRequests int           `envconfig:"CARTA_RATE_LIMIT_REQUESTS" default:"300"`
	RateLimitWindow   time.Duration `envconfig:"CARTA_RATE_LIMIT_WINDOW" default:"1m"`
	ShutdownTimeout   time.Duration `envconfig:"CARTA_SHUTDOWN_TIMEOUT" default:"10s"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARTA_DB_DSN"`
	Driver string `envconfig:"CARTA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARTA_DB_HOST"`
	LegacyPort     int    `envconfig:"CARTA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARTA_DB_USER"`
	LegacyPassword string `envconfig:"CARTA_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARTA_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARTA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARTA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// queries slower than this are logged at warn; zero disables it
	SlowQueryThreshold time.Duration `envconfig:"CARTA_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite backend.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARTA_REDIS_ADDR"`
	Password     string        `envconfig:"CARTA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CARTA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CARTA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CARTA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CARTA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARTA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARTA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARTA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARTA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARTA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"CARTA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"CARTA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"CARTA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"CARTA_AUTO_MIGRATE" default:"false"`
	SeedDefaults bool `envconfig:"CARTA_SEED_DEFAULTS" default:"true"`
}

type MediaConfig struct {
	UploadDir   string `envconfig:"CARTA_UPLOAD_DIR" default:"uploads"`
	MaxUploadMB int    `envconfig:"CARTA_MAX_UPLOAD_MB" default:"5"`
}

// MaxUploadBytes converts the configured upload ceiling into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 5 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type AvailabilityConfig struct {
	LowStockServings int `envconfig:"CARTA_AVAILABILITY_LOW_STOCK_SERVINGS" default:"3"`
	LowStockPercent  int `envconfig:"CARTA_AVAILABILITY_LOW_STOCK_PERCENT" default:"15"`
}

type BootstrapConfig struct {
	AdminEmail    string `envconfig:"CARTA_BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"CARTA_BOOTSTRAP_ADMIN_PASSWORD"`
	AdminName     string `envconfig:"CARTA_BOOTSTRAP_ADMIN_NAME" default:"Admin"`
}

// Enabled reports whether a bootstrap admin email was supplied.
func (b BootstrapConfig) Enabled() bool {
	return strings.TrimSpace(b.AdminEmail) != ""
}

// WorkerConfig drives the maintenance worker loop.
type WorkerConfig struct {
	Interval          time.Duration `envconfig:"CARTA_WORKER_INTERVAL" default:"1h"`
	OrphanImageMinAge time.Duration `envconfig:"CARTA_WORKER_ORPHAN_IMAGE_MIN_AGE" default:"24h"`
	JobTimeout        time.Duration `envconfig:"CARTA_WORKER_JOB_TIMEOUT" default:"10m"`
	// MetricsAddr serves /metrics from the worker when set, e.g. ":9100".
	MetricsAddr string `envconfig:"CARTA_WORKER_METRICS_ADDR"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
