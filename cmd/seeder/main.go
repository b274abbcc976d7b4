package main

import (
	"context"

	"github.com/ravimech476/BE/internal/config"
	"github.com/ravimech476/BE/internal/database"
	"github.com/ravimech476/BE/internal/seeds"
	"github.com/ravimech476/BE/internal/services"
	"github.com/ravimech476/BE/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("production")
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	log := logger.Component("seeder")

	log.Info().Msg("Running migrations (just in case)...")
	if err := database.Migrate(db, logger.Component("migrator")); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate")
	}

	ctx := context.Background()

	users, err := seeds.SeedUsers(ctx, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed users")
	}

	if _, err := seeds.SeedWelcomeMessages(ctx, services.NewMessageStore(db), users, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed messages")
	}

	log.Info().Int("users", len(users)).Str("password", seeds.DemoPassword).Msg("Seeding complete")
}
