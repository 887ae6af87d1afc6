package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quartermasterhq/quartermaster-backend/api/routes"
	"github.com/quartermasterhq/quartermaster-backend/internal/exports"
	"github.com/quartermasterhq/quartermaster-backend/internal/items"
	"github.com/quartermasterhq/quartermaster-backend/internal/media"
	"github.com/quartermasterhq/quartermaster-backend/internal/memberships"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/internal/teams"
	"github.com/quartermasterhq/quartermaster-backend/internal/users"
	"github.com/quartermasterhq/quartermaster-backend/pkg/config"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db"
	"github.com/quartermasterhq/quartermaster-backend/pkg/logger"
	"github.com/quartermasterhq/quartermaster-backend/pkg/metrics"
	"github.com/quartermasterhq/quartermaster-backend/pkg/migrate"
	"github.com/quartermasterhq/quartermaster-backend/pkg/redis"
	"github.com/quartermasterhq/quartermaster-backend/pkg/storage/s3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storeClient, err := s3.NewClient(ctx, cfg.S3, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap object store", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	teamRepo := teams.NewRepository(gormDB)
	itemRepo := items.NewRepository(gormDB)
	roleRepo := roles.NewRepository(gormDB)
	membershipRepo := memberships.NewRepository(gormDB)

	roleService, err := roles.NewService(roleRepo, membershipRepo)
	if err != nil {
		logg.Error(ctx, "failed to create roles service", err)
		os.Exit(1)
	}
	if cfg.FeatureFlags.SeedRoles {
		if err := roleService.Seed(ctx); err != nil {
			logg.Error(ctx, "failed to seed role catalog", err)
			os.Exit(1)
		}
	}

	mediaService, err := media.NewService(storeClient, cfg.Media)
	if err != nil {
		logg.Error(ctx, "failed to create media service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(userRepo, membershipRepo, roleService, mediaService, storeClient, cfg.S3.DownloadURLExpiry)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	teamService, err := teams.NewService(teamRepo, membershipRepo, userRepo, roleService, itemRepo, storeClient)
	if err != nil {
		logg.Error(ctx, "failed to create teams service", err)
		os.Exit(1)
	}

	itemService, err := items.NewService(itemRepo, membershipRepo, userRepo, roleService, mediaService, storeClient, cfg.S3.DownloadURLExpiry)
	if err != nil {
		logg.Error(ctx, "failed to create items service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	exportService, err := exports.NewService(itemRepo, roleService, storeClient, jobMetrics, logg, cfg.Export, cfg.S3.DownloadURLExpiry)
	if err != nil {
		logg.Error(ctx, "failed to create exports service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			storeClient,
			userService,
			teamService,
			itemService,
			roleService,
			mediaService,
			exportService,
		),
	}

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(startCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(startCtx, "graceful shutdown failed", err)
		}
	}
}
