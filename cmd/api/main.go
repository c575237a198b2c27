package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vetcare/vetclinic-platform/internal/api/router"
	"github.com/vetcare/vetclinic-platform/internal/appointments"
	"github.com/vetcare/vetclinic-platform/internal/catalog"
	"github.com/vetcare/vetclinic-platform/internal/clinic"
	appconfig "github.com/vetcare/vetclinic-platform/internal/config"
	"github.com/vetcare/vetclinic-platform/internal/healthrecords"
	"github.com/vetcare/vetclinic-platform/internal/loyalty"
	"github.com/vetcare/vetclinic-platform/internal/notify"
	"github.com/vetcare/vetclinic-platform/internal/observability/metrics"
	"github.com/vetcare/vetclinic-platform/internal/reminders"
	"github.com/vetcare/vetclinic-platform/internal/scheduling"
	"github.com/vetcare/vetclinic-platform/internal/vaccinations"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting vetclinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	workflowMetrics := metrics.NewWorkflowMetrics(nil)

	// Catalog with a redis read-through cache in front of postgres.
	catalogStore := catalog.NewStore(pool)
	catalogCache := catalog.NewCache(redisClient, catalogStore, 5*time.Minute, logger)

	// Vaccination catalog and dose engine.
	vaccStore := vaccinations.NewStore(pool)
	vaccSyncer := vaccinations.NewSyncer(vaccStore, logger)
	doseEngine := vaccinations.NewEngine(vaccStore, nil, logger)

	// Health records.
	recordStore := healthrecords.NewStore(pool)
	deriver := healthrecords.NewDeriver(recordStore, catalogCache, doseEngine, logger)

	// Clinic config and notifications.
	clinicStore := clinic.NewStore(redisClient)
	emailSender := buildEmailSender(ctx, cfg, logger)
	notifier := notify.NewService(emailSender, clinicStore, logger)

	// Appointments.
	calc := scheduling.NewCalculator(cfg.DefaultSubServiceMins, cfg.DefaultExtraServiceMins, cfg.SessionBufferMins)
	apptStore := appointments.NewStore(pool)
	apptService := appointments.NewService(apptStore, catalogCache, calc, deriver, notifier, workflowMetrics, logger)

	// Loyalty.
	cardStore := loyalty.NewRedisCardStore(redisClient)
	detector := loyalty.NewDetector(cardStore, logger)
	visitHistory := func(ctx context.Context, ownerID uuid.UUID) ([]time.Time, error) {
		appts, err := apptService.CompletedHistory(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		dates := make([]time.Time, 0, len(appts))
		for _, appt := range appts {
			dates = append(dates, appt.Date)
		}
		return dates, nil
	}

	// Catalog writes reconcile the vaccination catalog synchronously and
	// drop the stale cache entry.
	syncCatalog := func(ctx context.Context, svc *catalog.Service) error {
		catalogCache.Invalidate(ctx, svc.ID)
		return vaccSyncer.Sync(ctx, svc)
	}

	routerCfg := &router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(apptService, recordStore, logger),
		CatalogHandler:      catalog.NewHandler(catalogStore, syncCatalog, logger),
		ClinicHandler:       clinic.NewHandler(clinicStore, logger),
		LoyaltyHandler:      loyalty.NewHandler(detector, visitHistory, logger),
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Reminder sweep runs alongside the server and stops with it.
	worker := reminders.NewWorker(apptStore, notifier, nil, reminders.Config{
		Interval:   cfg.ReminderSweepInterval,
		DayWindow:  cfg.ReminderDayWindow,
		HourWindow: cfg.ReminderHourWindow,
	}, workflowMetrics, logger)
	go worker.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the configured provider, falling back to the
// logging stub when none is configured.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but not configured, emails disabled")
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, emails disabled", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}
