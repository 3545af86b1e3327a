package main

import (
	"github.com/sahilchouksey/lessionprm-api/config"
	"github.com/sahilchouksey/lessionprm-api/database"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
)

func main() {
	if err := config.LoadENV(); err != nil {
		logger.Logger.Warn().Err(err).Msg(".env not loaded, using process environment")
	}

	env, err := config.Get()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to read config")
	}
	logger.Init("lessionprm-seed", !env.IsProduction())

	store, err := database.StartGORM(env)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to migrate")
	}

	if err := database.NewSeeder(store.DB()).SeedAll(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("seeding failed")
	}
}
