package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/solacemind/clinic-scheduling/internal/api"
	"github.com/solacemind/clinic-scheduling/internal/appointment"
	"github.com/solacemind/clinic-scheduling/internal/availability"
	"github.com/solacemind/clinic-scheduling/internal/config"
	"github.com/solacemind/clinic-scheduling/internal/db"
	"github.com/solacemind/clinic-scheduling/internal/eventlog"
	"github.com/solacemind/clinic-scheduling/internal/identity"
	"github.com/solacemind/clinic-scheduling/internal/notify"
	redisclient "github.com/solacemind/clinic-scheduling/internal/redis"
	"github.com/solacemind/clinic-scheduling/internal/screening"
	"github.com/solacemind/clinic-scheduling/internal/triage"
)

const version = "0.3.0"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	logger.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PgMaxConns)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	migrateCtx, cancelMigrate := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migrateCtx, pgPool)
	cancelMigrate()
	if err != nil {
		logger.Fatal().Err(err).Msg("schema migration error")
	}

	// Connect Redis
	rdb, err := redisclient.NewClient(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	events := eventlog.NewPgRecorder(pgPool)
	notifier := notify.NewLogPublisher(logger)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)

	availabilitySvc := availability.NewService(availability.NewPgRepository(pgPool), logger)
	triageSvc := triage.NewService(triage.NewPgRepository(pgPool), identity.NewPgProvisioner(pgPool), logger)
	screeningSvc := screening.NewService(screening.NewPgRepository(pgPool), locker, triageSvc, events, notifier, logger)
	appointmentSvc := appointment.NewService(appointment.NewPgRepository(pgPool), events, notifier, logger)

	router := api.NewRouter(api.RouterConfig{
		Availability: availabilitySvc,
		Triage:       triageSvc,
		Screening:    screeningSvc,
		Appointments: appointmentSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
