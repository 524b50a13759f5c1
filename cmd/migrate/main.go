package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"github.com/KimiAn12/StartUpIdea/internal/shared/config"
	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/db"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)
	defer telemetry.Sync()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		telemetry.Sync()
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		telemetry.Sync()
		os.Exit(1)
	}
	telemetry.Info("migrate.done", nil)
}
