package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parceldesk/backend/internal/config"
	"github.com/parceldesk/backend/internal/event"
	"github.com/parceldesk/backend/internal/handler"
	"github.com/parceldesk/backend/internal/logging"
	"github.com/parceldesk/backend/internal/middleware"
	"github.com/parceldesk/backend/internal/notify"
	"github.com/parceldesk/backend/internal/receipt"
	"github.com/parceldesk/backend/internal/repository"
	"github.com/parceldesk/backend/internal/service/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("parceldesk-api", cfg.LogLevel, cfg.AppEnv)

	ctx := context.Background()
	db, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	customers := repository.NewCustomerRepository(db)
	packages := repository.NewPackageRepository(db)
	distributions := repository.NewDistributionRepository(db)
	transactions := repository.NewTransactionRepository(db)
	admins := repository.NewAdminRepository(db)

	publisher := event.NewPublisher(logger,
		receipt.NewGenerator(distributions),
		notify.NewClient(cfg.NotifyWebhookURL),
	)

	settlements := settlement.NewService(
		customers, packages, distributions, transactions, publisher, db,
		settlement.Options{
			MaxRetries:   cfg.SettlementMaxRetries,
			RetryBackoff: time.Duration(cfg.SettlementRetryBackoffMS) * time.Millisecond,
		},
	)

	authHandler := handler.NewAuthHandler(admins, cfg.JWTSecret, time.Duration(cfg.JWTExpiryH)*time.Hour)
	settlementHandler := handler.NewSettlementHandler(settlements)
	customerHandler := handler.NewCustomerHandler(settlements)
	healthHandler := handler.NewHealthHandler(db)

	requireAuth := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Check)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("POST /api/v1/distributions", requireAuth(http.HandlerFunc(settlementHandler.Create)))
	mux.Handle("GET /api/v1/distributions/{id}", requireAuth(http.HandlerFunc(settlementHandler.Get)))
	mux.Handle("GET /api/v1/customers/{id}", requireAuth(http.HandlerFunc(customerHandler.Get)))
	mux.Handle("GET /api/v1/customers/{id}/transactions", requireAuth(http.HandlerFunc(customerHandler.Transactions)))
	mux.Handle("GET /api/v1/customers/{id}/distributions", requireAuth(http.HandlerFunc(customerHandler.Distributions)))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var lastErr error
	for i := range 30 {
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", lastErr)
}
