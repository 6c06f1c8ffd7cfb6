package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/ditechted/healthlink/internal/config"
	"github.com/ditechted/healthlink/internal/http"
	"github.com/ditechted/healthlink/internal/log"
	"github.com/ditechted/healthlink/internal/metrics"
	"github.com/ditechted/healthlink/internal/oauth"
	"github.com/ditechted/healthlink/internal/queue"
	"github.com/ditechted/healthlink/internal/repo"
	"github.com/ditechted/healthlink/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Prod)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.TracingEnabled {
		tracer.Start(tracer.WithService("healthlink-api"))
		defer tracer.Stop()
	}

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("ensure indexes", zap.Error(err))
	}

	var rds *repo.Redis
	if cfg.RedisAddr != "" {
		rds = repo.NewRedis(cfg.RedisAddr)
		if err := rds.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
			rds = nil
		} else {
			defer rds.Close()
		}
	}

	var pub queue.Publisher
	if cfg.Rabbit.URL != "" {
		pub, err = queue.NewRabbit(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			logger.Warn("rabbit unavailable, notification events disabled", zap.Error(err))
			pub = queue.NewNoop()
		}
	} else {
		pub = queue.NewNoop()
	}
	defer pub.Close()

	var media storage.Uploader
	if cfg.Media.Endpoint != "" {
		m, err := storage.NewMinio(cfg.Media)
		if err != nil {
			logger.Warn("minio unavailable, uploads disabled", zap.Error(err))
		} else if err := m.EnsureBucket(ctx); err != nil {
			logger.Warn("minio bucket check failed, uploads disabled", zap.Error(err))
		} else {
			media = m
		}
	}

	var google *oauth.GoogleOAuth
	if cfg.Google.ClientID != "" {
		google = oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret,
			cfg.Google.RedirectURL, cfg.Google.StateSecret)
	}

	h := http.NewHandler(store, rds, google, pub, media, cfg)
	srv := &nethttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           http.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}
