package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/cliniclink/record-bridge/internal/adapters/cache"
	"github.com/cliniclink/record-bridge/internal/adapters/database"
	"github.com/cliniclink/record-bridge/internal/adapters/recordsource"
	"github.com/cliniclink/record-bridge/internal/application/services"
	"github.com/cliniclink/record-bridge/internal/domain/providers"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/postgres"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/redis"
	"github.com/cliniclink/record-bridge/internal/infrastructure/notifications"
	"github.com/cliniclink/record-bridge/internal/infrastructure/observability"
	"github.com/cliniclink/record-bridge/pkg/config"
)

// syncd is the standalone periodic reconciliation daemon. It runs the same
// sweeps the api binary exposes manually, on the configured interval.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger("record-bridge-syncd", cfg.Environment)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	scheduleRepo := database.NewScheduleAdapter(pgClient)
	source := recordsource.NewRecordSource(&cfg.HospitalAPI)

	var sender providers.MessageSender
	if whatsapp, err := notifications.NewWhatsAppCloudSender(&cfg.WhatsApp); err != nil {
		log.Warn().Err(err).Msg("whatsapp not configured, using log-only sender")
		sender = notifications.NewLogSender()
	} else {
		sender = whatsapp
	}

	sqlxDB := sqlx.NewDb(pgClient.DB(), "postgres")
	flags := services.NewFeatureFlags(&cfg.Sync)
	notifier := services.NewNotificationService(sqlxDB, sender, appointmentRepo, scheduleRepo, flags)
	reconciler := services.NewReconcileService(appointmentRepo, source, notifier, cacheProvider, cfg.Sync.LookaheadDays)
	differ := services.NewScheduleDiffer(scheduleRepo, source, notifier, reconciler, appointmentRepo)

	scheduler := services.NewSyncScheduler(reconciler, differ, cfg.Sync.Interval)
	scheduler.Start()
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
}
