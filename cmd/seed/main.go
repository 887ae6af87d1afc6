package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/quartermasterhq/quartermaster-backend/internal/memberships"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/pkg/config"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db"
	"github.com/quartermasterhq/quartermaster-backend/pkg/logger"
)

// Seeds the default role catalog. Safe to run repeatedly; existing
// roles are left untouched.
func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	roleService, err := roles.NewService(roles.NewRepository(dbClient.DB()), memberships.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create roles service", err)
		os.Exit(1)
	}

	if err := roleService.Seed(ctx); err != nil {
		logg.Error(ctx, "failed to seed role catalog", err)
		os.Exit(1)
	}

	logg.Info(ctx, "role catalog seeded")
}
