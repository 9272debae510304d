package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// RunMigrations applies the embedded migrations for d via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, d Dialect) error {
	if database == nil {
		return nil
	}
	var (
		dir     string
		dialect string
	)
	switch d {
	case Postgres, "":
		dir, dialect = "migrations/postgres", "postgres"
	case SQLite:
		dir, dialect = "migrations/sqlite", "sqlite3"
	default:
		return fmt.Errorf("unsupported dialect %q", d)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dir)
}
