package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wastetrack/backend/internal/api/handler"
	"wastetrack/backend/internal/api/middleware"
	"wastetrack/backend/internal/complaint"
	"wastetrack/backend/internal/config"
	"wastetrack/backend/internal/filestore"
	"wastetrack/backend/internal/lock"
	"wastetrack/backend/internal/logger"
	"wastetrack/backend/internal/stats"
	"wastetrack/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupStorage(cfg *config.Config) storage.Storage {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return storage.NewMemoryStorage()
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect PostgreSQL")
	}
	s := storage.NewStorageService(db)
	if err := s.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.Name).Msg("database connected, migrations complete")
	return s
}

func setupLocker(cfg *config.Config) lock.Locker {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, using in-process complaint locks")
		return lock.NewLocalLocker()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect Redis")
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected, using distributed complaint locks")
	return lock.NewRedisLocker(rdb, cfg.Lock.TTL, cfg.Lock.Wait)
}

func setupFiles(cfg *config.Config) filestore.Store {
	if cfg.Files.Driver != "minio" {
		return filestore.NewDiskStore(cfg.Files.UploadDir)
	}

	store, err := filestore.NewMinioStore(
		cfg.Files.MinioEndpoint,
		cfg.Files.MinioAccessKey,
		cfg.Files.MinioSecretKey,
		cfg.Files.MinioBucket,
		cfg.Files.MinioUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create minio client")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Str("bucket", cfg.Files.MinioBucket).Msg("failed to prepare bucket")
	}
	return store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Msg("starting WasteTrack backend")

	// 1. Dependencies
	s := setupStorage(cfg)
	svc := complaint.NewService(s, setupFiles(cfg))
	svc.Locker = setupLocker(cfg)

	// 2. Gin and routes
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if cfg.Files.Driver != "minio" {
		r.Static("/uploads", cfg.Files.UploadDir)
	}
	h := handler.NewHandler(svc, stats.NewAggregator(s), middleware.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL))
	h.Register(r)

	// 3. HTTP server
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
