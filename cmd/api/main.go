package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/cliniclink/record-bridge/internal/adapters/cache"
	"github.com/cliniclink/record-bridge/internal/adapters/database"
	"github.com/cliniclink/record-bridge/internal/adapters/recordsource"
	"github.com/cliniclink/record-bridge/internal/api/handlers"
	"github.com/cliniclink/record-bridge/internal/api/routes"
	"github.com/cliniclink/record-bridge/internal/application/services"
	"github.com/cliniclink/record-bridge/internal/domain/providers"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/postgres"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/redis"
	"github.com/cliniclink/record-bridge/internal/infrastructure/notifications"
	"github.com/cliniclink/record-bridge/internal/infrastructure/observability"
	"github.com/cliniclink/record-bridge/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger("record-bridge-api", cfg.Environment)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	var cacheProvider providers.CacheProvider
	var cachePinger routes.Pinger
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		// The engine works without a cache; pre-sync invalidation is skipped.
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		cachePinger = redisClient
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

	syncHandler := handlers.NewSyncHandler(reconciler, differ)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentRepo, notifier)

	router := routes.NewRouter(syncHandler, appointmentHandler, pgClient, cachePinger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("api server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
