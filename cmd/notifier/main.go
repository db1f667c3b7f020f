// cmd/notifier/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"assettrack-notifier/internal/common/aws"
	"assettrack-notifier/internal/common/config"
	"assettrack-notifier/internal/common/database"
	"assettrack-notifier/internal/common/logger"
	"assettrack-notifier/internal/common/observability"
	expirationscan "assettrack-notifier/internal/jobs/expiration-scan"
	weeklydigest "assettrack-notifier/internal/jobs/weekly-digest"
	"assettrack-notifier/internal/notify"
	"assettrack-notifier/internal/server"
	"assettrack-notifier/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// logTransport stands in for SES when email delivery is disabled. Every
// send is logged and acknowledged so the rest of the pipeline, guard
// flags included, behaves exactly as in production.
type logTransport struct {
	log logger.Logger
}

func (lt *logTransport) Send(_ context.Context, req *notify.SendRequest) (string, error) {
	lt.log.Info("Email delivery disabled, dropping message", map[string]interface{}{
		"to":      req.To,
		"subject": req.Subject,
	})
	return "disabled-" + time.Now().UTC().Format("20060102T150405.000000000"), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notifier...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init mail transport ---
	var transport notify.Transport
	if cfg.Notifications.Email.Enabled {
		sesTransport, err := aws.NewSESTransport(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		transport = sesTransport
		zapLog.Info("SES transport initialized", zap.String("region", cfg.Notifications.AWS.Region))
	} else {
		transport = &logTransport{log: log}
		zapLog.Warn("Email delivery disabled, using log transport")
	}

	// --- Stores ---
	assets := store.NewAssetStore(pg.GetDB())
	recipients := store.NewRecipientStore(pg.GetDB())
	organizations := store.NewOrganizationStore(pg.GetDB())
	delivery := store.NewDeliveryStore(pg.GetDB())

	// --- Dispatcher ---
	dispatcher := notify.NewDispatcher(transport, delivery, cfg.Notifications.Email.FromEmail, log)

	if cfg.Notifications.Audit.IndexEnabled {
		// The Elasticsearch mirror is optional; a failed connection only
		// costs the search index, never deliveries.
		esClient, esErr := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if esErr == nil {
			esErr = esClient.Ping()
		}
		if esErr != nil {
			zapLog.Warn("elasticsearch unavailable, audit mirror disabled", zap.Error(esErr))
		} else {
			dispatcher.WithIndexer(store.NewAuditIndex(esClient, cfg.Notifications.Audit.Index))
			zapLog.Info("Audit mirror enabled", zap.String("index", cfg.Notifications.Audit.Index))
		}
	}

	resolver := notify.NewResolver(recipients, notify.DefaultPolicy(), log)

	// --- Jobs ---
	scanJob := expirationscan.NewService(
		&expirationscan.Config{
			AppURL: cfg.App.BaseURL,
		},
		assets, recipients, resolver, dispatcher, log,
	)

	digestJob := weeklydigest.NewService(
		&weeklydigest.Config{
			AppURL:           cfg.App.BaseURL,
			TopExpiring:      cfg.Notifications.Digest.TopExpiring,
			IncludeContracts: cfg.Notifications.Digest.IncludeContracts,
		},
		organizations, assets, recipients, resolver, dispatcher, log,
	)

	// --- HTTP server ---
	srv := server.New(cfg, scanJob, digestJob, redisClient, pg, log).WithObservability(obs)

	if cfg.Notifications.Alerts.Enabled {
		alerts, err := aws.NewAlertPublisher(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Alerts.TopicARN)
		if err != nil {
			zapLog.Warn("sns client init failed, failure alerts disabled", zap.Error(err))
		} else {
			srv.WithAlerter(alerts)
			zapLog.Info("Failure alerts enabled", zap.String("topic", cfg.Notifications.Alerts.TopicARN))
		}
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Notifier stopped")
}
