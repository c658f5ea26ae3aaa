package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	gojwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Nakkasenp65/register-item-delivery/config"
	"github.com/Nakkasenp65/register-item-delivery/internal/api/handler"
	"github.com/Nakkasenp65/register-item-delivery/internal/api/router"
	"github.com/Nakkasenp65/register-item-delivery/internal/repository"
	"github.com/Nakkasenp65/register-item-delivery/internal/service"
	"github.com/Nakkasenp65/register-item-delivery/pkg/database"
	"github.com/Nakkasenp65/register-item-delivery/pkg/events"
	"github.com/Nakkasenp65/register-item-delivery/pkg/jwt"
	"github.com/Nakkasenp65/register-item-delivery/pkg/line"
	applogger "github.com/Nakkasenp65/register-item-delivery/pkg/logger"
	"github.com/Nakkasenp65/register-item-delivery/pkg/mongodb"
	"github.com/Nakkasenp65/register-item-delivery/pkg/redis"
	"github.com/Nakkasenp65/register-item-delivery/pkg/upload"
)

func main() {
	// 1. configuration
	cfg, err := config.Load(os.Getenv("DELIVERY_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("upload_provider", cfg.Upload.Provider),
	)

	// 3. reference data (PostgreSQL)
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	// 4. delivery records (MongoDB)
	mongoClient, err := mongodb.NewClient(&cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("connect mongo", zap.Error(err))
	}
	repo := repository.NewRepository(db, mongodb.Collection(mongoClient, &cfg.Mongo))

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.Delivery.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		logger.Fatal("ensure delivery indexes", zap.Error(err))
	}
	cancelIndex()

	// 5. Redis is optional; without it creation is not rate limited
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		rdb = nil
	}

	// 6. slip uploads
	uploader, closeUploader := newUploader(cfg, logger)

	// 7. delivery events
	var publisher events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("kafka publisher enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 8. LINE push; a nil *line.Client must not become a non-nil Pusher
	var pusher line.Pusher
	lineClient, err := line.NewClient(&cfg.LINE)
	if err != nil {
		logger.Fatal("create line client", zap.Error(err))
	}
	if lineClient != nil {
		pusher = lineClient
	} else {
		logger.Info("line channel access token not set, server-side push disabled")
	}

	// 9. LIFF identity; the key set refreshes until shutdown
	keysCtx, stopKeys := context.WithCancel(context.Background())
	defer stopKeys()
	var lineKeys gojwt.Keyfunc
	if cfg.LIFF.ChannelID != "" && cfg.LIFF.JWKSURL != "" {
		lineKeys, err = jwt.NewLINEKeys(keysCtx, cfg.LIFF.JWKSURL)
		if err != nil {
			logger.Warn("line jwks unavailable, only HS256 ID tokens are accepted", zap.Error(err))
			lineKeys = nil
		}
	}
	verifier := jwt.NewVerifier(&cfg.LIFF, lineKeys)
	if verifier == nil {
		logger.Warn("liff channel not configured, ID tokens are not verified")
	}

	// 10. DI: Repository → Service → Handler
	svc := service.NewService(cfg, repo, uploader, publisher, pusher, logger)
	h := handler.NewHandler(svc, cfg.Upload.MaxSizeMB<<20)

	checks := map[string]router.HealthCheck{
		"mongo":    repo.Delivery.Ping,
		"postgres": repo.Location.Ping,
	}
	engine := router.Setup(cfg, h, verifier, rdb, checks, logger)

	// 11. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}

	if err := publisher.Close(); err != nil {
		logger.Error("close event publisher", zap.Error(err))
	}
	closeUploader()
	if err := mongoClient.Disconnect(ctx); err != nil {
		logger.Error("disconnect mongo", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("close database", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("server stopped")
}

// newUploader builds the configured slip uploader and its cleanup func
func newUploader(cfg *config.Config, logger *zap.Logger) (upload.Uploader, func()) {
	switch cfg.Upload.Provider {
	case "http":
		logger.Info("slip uploads via http service", zap.String("url", cfg.Upload.HTTP.URL))
		return upload.NewHTTPUploader(cfg.Upload.HTTP.URL, cfg.Upload.HTTP.Timeout), func() {}
	case "gcs":
		// the client keeps ctx for credential refresh, so it must not be cancelled
		u, err := upload.NewGCSUploader(context.Background(), cfg.Upload.GCS.Bucket, cfg.Upload.GCS.CredentialsFile, cfg.Upload.GCS.PublicBaseURL)
		if err != nil {
			logger.Fatal("create gcs uploader", zap.Error(err))
		}
		logger.Info("slip uploads to gcs", zap.String("bucket", cfg.Upload.GCS.Bucket))
		return u, func() {
			if err := u.Close(); err != nil {
				logger.Error("close gcs uploader", zap.Error(err))
			}
		}
	default:
		logger.Info("slip uploads disabled")
		return upload.Disabled{}, func() {}
	}
}
