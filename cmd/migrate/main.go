package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/config"
	"github.com/popupmarket/proxybuy/internal/repository/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(context.Background(), db); err != nil {
		logger.Error("Migration failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Schema applied", zap.String("database", cfg.Database.DBName))
}
