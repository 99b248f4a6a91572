package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-api/internal/config"
	"user-api/internal/domain"
	apphttp "user-api/internal/http"
	"user-api/internal/repository"
	"user-api/internal/repository/jsonfile"
	"user-api/internal/repository/sqlite"
	"user-api/internal/service"
	"user-api/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	level, _ := cfg.LogLevel()
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, closeRepo, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup repository: %v", err)
	}
	defer closeRepo()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	userService := service.NewUserService(userRepo, time.Now)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(apphttp.Recovery(logger))
	handler := apphttp.NewHandler(userService, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		logger.Infof("API is listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildRepository(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	clock := domain.Clock(time.Now)

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db, clock), func() { db.Close() }, nil
	default:
		mirror, err := buildMirror(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using json document %s", cfg.Database.Path)
		repo := jsonfile.NewUserRepository(jsonfile.Config{
			Path:      cfg.Database.Path,
			Mirror:    mirror,
			MirrorKey: cfg.Mirror.Key,
			Clock:     clock,
			Logger:    logger,
		})
		return repo, func() {}, nil
	}
}

// buildMirror returns nil when no bucket is configured.
func buildMirror(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Mirror, error) {
	if cfg.Mirror.Bucket == "" {
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Mirror.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Mirror.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Mirror.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("mirroring document to s3://%s/%s (region %s)", cfg.Mirror.Bucket, cfg.Mirror.Key, cfg.Mirror.Region)
	return storage.NewS3Mirror(client, cfg.Mirror.Bucket), nil
}
