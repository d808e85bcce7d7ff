package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mamed-gasimov/photo-albums/internal/config"
	"github.com/mamed-gasimov/photo-albums/internal/logger"
	"github.com/mamed-gasimov/photo-albums/internal/modules/activity"
	"github.com/mamed-gasimov/photo-albums/internal/modules/albums"
	"github.com/mamed-gasimov/photo-albums/internal/modules/analysis/openai"
	"github.com/mamed-gasimov/photo-albums/internal/server"
	"github.com/mamed-gasimov/photo-albums/internal/storage"
	"github.com/mamed-gasimov/photo-albums/internal/storage/memory"
	miniostorage "github.com/mamed-gasimov/photo-albums/internal/storage/minio"
	s3storage "github.com/mamed-gasimov/photo-albums/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// --- Object storage -----------------------------------------------------
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	l.Info().Str("driver", cfg.StorageDriver).Str("bucket", cfg.Bucket).Msg("bucket is ready")

	opts := []albums.Option{albums.WithLogger(l)}

	// --- Activity log (optional) ---------------------------------------------
	var activityHandler *activity.Handler
	if cfg.ActivityLog {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN())
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		l.Info().Msg("connected to PostgreSQL")

		repo := activity.NewRepository(pool)
		if err := runMigrations(ctx, repo, l); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		opts = append(opts, albums.WithActivity(repo))
		activityHandler = activity.NewHandler(repo)
	}

	if cfg.OpenAIAPIKey != "" {
		opts = append(opts, albums.WithAnalyzer(openai.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)))
		l.Info().Msg("album summaries enabled")
	}

	if cfg.PhotoURLMode == config.URLModeSigned {
		opts = append(opts, albums.WithSignedURLs(cfg.SignedURLTTL))
	}

	// --- Layers -------------------------------------------------------------
	albumService := albums.NewAlbumService(store, opts...)

	e := server.New(server.Options{
		Albums:    albums.NewAlbumHandler(albumService),
		Activity:  activityHandler,
		Logger:    l,
		BodyLimit: cfg.MaxUploadSize,
	})

	// --- Graceful shutdown ---------------------------------------------------
	go func() {
		addr := ":" + cfg.ServerPort
		l.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil {
			l.Info().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return e.Shutdown(shutdownCtx)
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverS3:
		return s3storage.New(ctx, s3storage.Options{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.S3Endpoint,
			ForcePathStyle:  cfg.S3ForcePathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			IdentityPoolID:  cfg.IdentityPoolID,
			PartSize:        cfg.UploadPartSize,
			Concurrency:     cfg.UploadConcurrency,
		})
	case config.DriverMinio:
		return miniostorage.New(miniostorage.Options{
			Endpoint:    cfg.MinioEndpoint,
			AccessKey:   cfg.MinioAccessKey,
			SecretKey:   cfg.MinioSecretKey,
			Bucket:      cfg.Bucket,
			Region:      cfg.Region,
			UseSSL:      cfg.MinioUseSSL,
			PartSize:    uint64(cfg.UploadPartSize),
			Concurrency: uint(cfg.UploadConcurrency),
		})
	case config.DriverMemory:
		return memory.New("", cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func runMigrations(ctx context.Context, repo *activity.Repository, l zerolog.Logger) error {
	migration, err := os.ReadFile("migrations/001_create_album_activity.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}

	if err := repo.Migrate(ctx, string(migration)); err != nil {
		return err
	}

	l.Info().Msg("migrations applied")
	return nil
}
