package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nebulacloud/console/internal/app/migrate"
	httpx "github.com/nebulacloud/console/internal/http"
	"github.com/nebulacloud/console/internal/provider"
	"github.com/nebulacloud/console/internal/repository/postgres"
	"github.com/nebulacloud/console/internal/service/auth"
	"github.com/nebulacloud/console/internal/service/credit"
	"github.com/nebulacloud/console/internal/service/database"
	"github.com/nebulacloud/console/internal/service/iam"
	"github.com/nebulacloud/console/internal/service/notification"
	"github.com/nebulacloud/console/internal/service/pipeline"
	"github.com/nebulacloud/console/internal/service/profile"
	"github.com/nebulacloud/console/internal/service/security"
	"github.com/nebulacloud/console/internal/service/storage"
	"github.com/nebulacloud/console/internal/service/vps"
	"github.com/nebulacloud/console/internal/ws"
	"github.com/nebulacloud/console/pkg/config"
	"github.com/nebulacloud/console/pkg/crypto"
	"github.com/nebulacloud/console/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = pool.Ping(pingCtx)
	cancel()
	if err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	if err := runner.Up(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	box, err := crypto.NewBox(cfg.SecretsKey)
	if err != nil {
		log.Error("secrets key invalid", "error", err)
		os.Exit(1)
	}

	fixtures := provider.Fixtures{}
	var files provider.FileListing = fixtures
	if bucket := strings.TrimSpace(cfg.FileListingS3Bucket); bucket != "" {
		s3Files, err := provider.NewS3FileListing(ctx, bucket, cfg.FileListingS3Region, cfg.FileListingS3Endpoint)
		if err != nil {
			log.Warn("s3 file listing unavailable, using fixtures", "error", err)
		} else {
			files = s3Files
			log.Info("s3 file listing enabled", "bucket", bucket)
		}
	}

	repo := postgres.New(pool)
	notificationHub := ws.NewHub(cfg.NotificationBuffer)
	defer notificationHub.Stop()

	services := httpx.Services{
		Auth:          auth.New(repo, log, cfg),
		VPS:           vps.New(repo, log),
		Databases:     database.New(repo, box, log),
		Storage:       storage.New(repo, files, log),
		Security:      security.New(repo, log),
		Credits:       credit.New(repo, log),
		Notifications: notification.New(repo, notificationHub, log),
		Pipelines:     pipeline.New(repo, fixtures, log),
		Profile:       profile.New(repo, box, cfg.TOTPIssuer, log),
		IAM:           iam.New(fixtures, fixtures),
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	if cfg.ServiceToken == "" {
		log.Warn("SERVICE_TOKEN not set; internal event endpoints will reject all calls")
	}

	router := httpx.NewRouter(log, services, limiter, cfg.ServiceToken, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
