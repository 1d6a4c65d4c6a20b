package main

import (
	"fmt"
	"os"

	"finchat/api"
	"finchat/cmd"
	"finchat/config"
	"finchat/session"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	sessions, err := session.NewStore(cfg.StatePath, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.Error(err))
	}
	if err := sessions.Load(); err != nil {
		logger.Fatal("Failed to load session state", zap.Error(err))
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, sessions, logger)
	client.OnUnauthorized(func() {
		fmt.Fprintln(os.Stderr, "Session expired. Please login again.")
	})

	cmd.Execute(&cmd.App{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		API:      client,
	})
}
