package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cartacocktail/carta-backend/internal/availability"
	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/internal/cron"
	"github.com/cartacocktail/carta-backend/internal/shortages"
	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/metrics"
	"github.com/cartacocktail/carta-backend/pkg/migrate"
	"github.com/cartacocktail/carta-backend/pkg/redis"
	"github.com/cartacocktail/carta-backend/pkg/storage"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run one maintenance cycle and exit")
	var only jobList
	flag.Var(&only, "job", "limit -once to this job; repeatable")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
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

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 2*cfg.Worker.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Worker.Interval,
		JobTimeout: cfg.Worker.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Worker.Interval.String(),
	})
	if *once {
		if err := service.RunOnce(ctx, only...); err != nil {
			logg.Error(ctx, "maintenance cycle failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "maintenance cycle complete")
		return
	}
	logg.Info(ctx, "starting maintenance worker")

	if cfg.Worker.MetricsAddr != "" {
		metricsServer := serveMetrics(ctx, logg, cfg.Worker.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "maintenance worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	store, err := storage.NewLocalStore(cfg.Media.UploadDir, cfg.Media.MaxUploadBytes(), logg)
	if err != nil {
		return nil, err
	}
	cocktailRepo := cocktails.NewRepository(dbClient.DB())

	orphans, err := cron.NewOrphanImageCleanupJob(cron.OrphanImageCleanupJobParams{
		Logger: logg,
		Images: cocktailRepo,
		Store:  store,
		MinAge: cfg.Worker.OrphanImageMinAge,
	})
	if err != nil {
		return nil, fmt.Errorf("orphan image job: %w", err)
	}

	shortageSvc, err := shortages.NewService(dbClient.DB())
	if err != nil {
		return nil, err
	}
	availabilitySvc, err := availability.NewService(dbClient.DB(), cocktailRepo, availability.Thresholds{
		LowStockServings: cfg.Availability.LowStockServings,
		LowStockPercent:  cfg.Availability.LowStockPercent,
	})
	if err != nil {
		return nil, err
	}
	stock, err := cron.NewStockReportJob(cron.StockReportJobParams{
		Logger:       logg,
		Shortages:    shortageSvc,
		Availability: availabilitySvc,
		Gauges:       metrics.NewStockMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return nil, fmt.Errorf("stock report job: %w", err)
	}

	return cron.NewRegistry(orphans, stock)
}

type jobList []string

func (j *jobList) String() string { return strings.Join(*j, ",") }

func (j *jobList) Set(v string) error {
	*j = append(*j, strings.TrimSpace(v))
	return nil
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "worker metrics listener stopped", err)
		}
	}()
	return server
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "worker:" + env
}
