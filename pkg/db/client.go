package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Client owns the process-wide GORM handle. Postgres is the production
// backend; SQLite serves single-bar installs and tests.
type Client struct {
	conn   *gorm.DB
	driver string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// TxRunner is the transactional surface services depend on.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	driver, dialector := config.DBDriverPostgres, gorm.Dialector(nil)
	if cfg.IsSQLite() {
		driver, dialector = config.DBDriverSQLite, sqlite.Open(cfg.DSN)
	} else {
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLog(logg, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		NowFunc:                NowUTC,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	configurePool(sqlDB, driver, cfg)

	if driver == config.DBDriverSQLite {
		for _, pragma := range sqlitePragmas {
			if err := conn.WithContext(ctx).Exec(pragma).Error; err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":        driver,
			"max_open_conn": sqlDB.Stats().MaxOpenConnections,
		}), "database connection established")
	}
	return &Client{conn: conn, driver: driver}, nil
}

// NewFromGorm wraps an already opened GORM handle, e.g. one from dbtest.
func NewFromGorm(conn *gorm.DB) *Client {
	driver := config.DBDriverPostgres
	if conn != nil && conn.Dialector != nil && conn.Dialector.Name() == "sqlite" {
		driver = config.DBDriverSQLite
	}
	return &Client{conn: conn, driver: driver}
}

// NowUTC stamps autoCreateTime/autoUpdateTime columns; cursors compare in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

func configurePool(sqlDB *sql.DB, driver string, cfg config.DBConfig) {
	if driver == config.DBDriverSQLite {
		// one long-lived connection: sqlite allows a single writer and the
		// pragmas above are per connection
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Driver is config.DBDriverPostgres or config.DBDriverSQLite.
func (c *Client) Driver() string {
	return c.driver
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction that commits when fn returns nil and rolls
// back on an error or panic. Called with a tx already open, gorm nests it as
// a savepoint.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
