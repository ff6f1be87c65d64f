// Command seed applies the bundled permission catalog and built-in roles.
// Run it once per deployment; an already applied catalog version is skipped
// unless --force is given.
package main

import (
	"context"
	"log"

	"ameenhub/internal/config"
	"ameenhub/internal/database"
	"ameenhub/internal/repository"
	"ameenhub/internal/service"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	force := pflag.BoolP("force", "f", false, "re-apply the current catalog version")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.NewConnection(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}

	catalog := service.NewCatalogService(
		repository.NewTransactionManager(db),
		repository.NewPermissionRepository(db),
		repository.NewRoleRepository(db),
		repository.NewAuditRepository(db),
		nil,
		logger,
	)

	result, err := catalog.Sync(context.Background(), *force, "")
	if err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}
	logger.Info("Seed finished",
		zap.Int("version", result.Version),
		zap.Bool("applied", result.Applied))
}
