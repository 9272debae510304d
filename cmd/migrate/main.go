package main

// Run database migrations:
//   go run ./cmd/migrate             # postgres via DATABASE_URL
//   LOG_STORE=sqlite go run ./cmd/migrate

import (
	"context"
	"database/sql"
	"os"

	"fitflow-backend/internal/shared/config"
	"fitflow-backend/internal/shared/storage/db"
	"fitflow-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	var (
		sqlDB   *sql.DB
		dialect db.Dialect
		err     error
	)
	switch cfg.LogStore {
	case "sqlite":
		dialect = db.SQLite
		sqlDB, err = db.OpenSQLite(ctx, cfg.SQLitePath, db.OptionsFromEnv(db.DefaultSQLiteOptions()))
	default:
		dialect = db.Postgres
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	}
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"dialect": string(dialect), "error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"dialect": string(dialect), "error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"dialect": string(dialect)})
}
