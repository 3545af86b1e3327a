package main

import (
	"github.com/sahilchouksey/lessionprm-api/app"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
)

func main() {
	// setup and run app
	if err := app.SetupAndRunServer(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server exited")
	}
}
