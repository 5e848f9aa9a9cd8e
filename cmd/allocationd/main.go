// cmd/allocationd/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bto-allocation/internal/auth"
	awsclients "bto-allocation/internal/common/aws"
	"bto-allocation/internal/common/config"
	"bto-allocation/internal/common/database"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/common/observability"
	"bto-allocation/internal/core/access"
	"bto-allocation/internal/core/application"
	"bto-allocation/internal/core/assignment"
	"bto-allocation/internal/core/enquiry"
	"bto-allocation/internal/core/inventory"
	"bto-allocation/internal/httpapi"
	"bto-allocation/internal/notify"
	"bto-allocation/internal/search"
	"bto-allocation/internal/store"
	"bto-allocation/internal/tables"
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

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting allocation server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("allocationd")
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
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	st := store.NewPostgres(pg.DB)
	if err := st.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry, only when search is enabled ---
	var esClient *database.ElasticsearchClient
	if cfg.Search.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			// Test the connection
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Hydrate the in-memory tables from the store ---
	tbls := tables.New(st, log)
	if err := tbls.Hydrate(ctx); err != nil {
		zapLog.Fatal("table hydration failed", zap.Error(err))
	}

	// --- Project search index ---
	var index *search.ProjectIndex
	var indexer inventory.ProjectIndexer
	if esClient != nil {
		index = search.NewProjectIndex(esClient.Client, cfg.Search.ProjectIndex, log)
		if err := index.Rebuild(ctx, tbls.Projects()); err != nil {
			zapLog.Warn("search index rebuild failed", zap.Error(err))
		}
		indexer = index
	}

	// --- Applicant notifications over SES/SNS ---
	var notifier application.Notifier = notify.Noop{}
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		sesClient, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		notifier = notify.NewService(notify.Config{
			EmailEnabled: cfg.Notifications.Email.Enabled,
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
		}, sesClient, snsClient, log)
		zapLog.Info("Notification clients initialized")
	}

	// --- Wire the services ---
	sessions := auth.NewSessionManager(redis.Client, cfg.Auth.SessionTTL())
	authSvc := auth.NewService(tbls, sessions, cfg.Auth.BcryptCost, log)
	gate := access.NewGate(tbls)
	projects := inventory.NewService(tbls, indexer, log)
	applications := application.NewService(tbls, notifier, log)
	assignments := assignment.NewService(tbls, log)
	enquiries := enquiry.NewService(tbls, log)

	server := httpapi.NewServer(httpapi.Deps{
		Auth:         authSvc,
		Gate:         gate,
		Projects:     projects,
		Applications: applications,
		Assignments:  assignments,
		Enquiries:    enquiries,
		Index:        index,
		Logger:       log,
	})

	// --- Metrics and pprof server ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("addr", cfg.Server.MetricsAddr))
		if err := http.ListenAndServe(cfg.Server.MetricsAddr, nil); err != nil {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	// --- API server ---
	apiServer := &http.Server{
		Addr:         cfg.Server.APIAddr,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zapLog.Info("API server listening", zap.String("addr", cfg.Server.APIAddr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("api server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("api server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Allocation server stopped gracefully")
}
