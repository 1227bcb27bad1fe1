package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/solacemind/clinic-scheduling/internal/appointment"
	"github.com/solacemind/clinic-scheduling/internal/config"
	"github.com/solacemind/clinic-scheduling/internal/db"
	"github.com/solacemind/clinic-scheduling/internal/eventlog"
	"github.com/solacemind/clinic-scheduling/internal/identity"
	"github.com/solacemind/clinic-scheduling/internal/notify"
	redisclient "github.com/solacemind/clinic-scheduling/internal/redis"
	"github.com/solacemind/clinic-scheduling/internal/screening"
	"github.com/solacemind/clinic-scheduling/internal/triage"
)

// The reminder worker is advisory only: it publishes reminders for
// upcoming confirmed screenings and surfaces sessions awaiting review.
// It never mutates booking or appointment state.
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "reminder-worker").Logger()
	logger.Info().Msg("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.ReminderInterval).
		Dur("window", cfg.ReminderWindow).
		Msg("configuration loaded")

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

	triageSvc := triage.NewService(triage.NewPgRepository(pgPool), identity.NewPgProvisioner(pgPool), logger)
	screeningSvc := screening.NewService(screening.NewPgRepository(pgPool), locker, triageSvc, events, notifier, logger)
	appointmentSvc := appointment.NewService(appointment.NewPgRepository(pgPool), events, notifier, logger)

	w := &worker{
		cfg:          cfg,
		screenings:   screeningSvc,
		appointments: appointmentSvc,
		notifier:     notifier,
		log:          logger,
	}

	// Run once at startup
	w.runOnce(rootCtx)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			w.runOnce(rootCtx)
		}
	}
}

type worker struct {
	cfg          config.Config
	screenings   *screening.Service
	appointments *appointment.Service
	notifier     notify.Publisher
	log          zerolog.Logger
}

func (w *worker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	w.remindScreenings(runCtx, start)
	w.reportPendingReview(runCtx)
	w.log.Info().Dur("elapsed", time.Since(start)).Msg("reminder run complete")
}

func (w *worker) remindScreenings(ctx context.Context, now time.Time) {
	upcoming, err := w.screenings.UpcomingConfirmed(ctx, now, w.cfg.ReminderWindow)
	if err != nil {
		w.log.Error().Err(err).Msg("list upcoming screenings")
		return
	}

	for i := range upcoming {
		appt := &upcoming[i]
		ev := notify.Event{
			Type:      "screening_reminder",
			Channel:   notify.ChannelWhatsApp,
			Recipient: fmt.Sprintf("triage:%s", appt.TriageRecordID),
			Payload: map[string]any{
				"screening_id": appt.ID.String(),
				"start_time":   appt.StartTime,
				"meeting_link": appt.MeetingLink,
				"booking_page": w.cfg.BookingPageURL,
			},
		}
		if err := w.notifier.Publish(ctx, ev); err != nil {
			w.log.Error().Err(err).Str("screening_id", appt.ID.String()).Msg("publish reminder")
		}
	}

	w.log.Info().Int("count", len(upcoming)).Msg("screening reminders published")
}

func (w *worker) reportPendingReview(ctx context.Context) {
	pending, err := w.appointments.PendingReview(ctx, nil)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending review appointments")
		return
	}
	if len(pending) == 0 {
		return
	}

	byProfessional := make(map[string]int)
	for i := range pending {
		byProfessional[pending[i].ProfessionalID.String()]++
	}

	w.log.Warn().
		Int("total", len(pending)).
		Interface("by_professional", byProfessional).
		Msg("appointments awaiting review")
}
