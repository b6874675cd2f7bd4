package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

const usage = `carta schema migrations

  -cmd up        apply pending migrations (sqlite: gorm auto-migrate)
  -cmd down      roll back the newest migration
  -cmd status    list applied and pending migrations
  -cmd to        migrate up or down to -version
  -cmd create    write a new empty migration named -name into -dir
  -cmd validate  check migration filenames and goose annotations

By default the migrations compiled into this binary are used; -dir points
at a checkout instead.
`

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|to|create|validate")
	dir := flag.String("dir", "", "migrations directory (default: bundled; create defaults to "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd to")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// offline commands need neither config nor a database
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		if *name == "" {
			fail("-cmd create needs -name")
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.Validate(migrate.Source(*dir)); err != nil {
			fail("invalid migrations: %v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if dbClient.Driver() == config.DBDriverSQLite {
		// goose files are PostgreSQL dialect; sqlite gets the gorm schema instead
		if *cmd != "up" {
			fail("-cmd %s is not supported on sqlite", *cmd)
		}
		if err := models.AutoMigrate(dbClient.DB().WithContext(ctx)); err != nil {
			fail("sqlite auto-migrate: %v", err)
		}
		logg.Info(ctx, "sqlite schema up to date")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)
	source := migrate.Source(*dir)

	switch *cmd {
	case "up":
		err = migrate.Up(ctx, sqlDB, source, os.Stdout)
	case "down":
		err = migrate.Down(ctx, sqlDB, source, os.Stdout)
	case "status":
		err = migrate.Status(ctx, sqlDB, source, os.Stdout)
	case "to":
		target, parseErr := strconv.ParseInt(*version, 10, 64)
		if parseErr != nil || len(*version) != 14 {
			fail("-cmd to needs -version as YYYYMMDDHHMMSS, got %q", *version)
		}
		err = migrate.To(ctx, sqlDB, source, target, os.Stdout)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
