package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration directions accepted by Migrate
const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// Migrate runs the embedded goose migrations against dsn
func Migrate(ctx context.Context, dsn, direction string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	return MigrateDB(ctx, db, direction)
}

// MigrateDB runs the embedded goose migrations on an open database handle
func MigrateDB(ctx context.Context, db *sql.DB, direction string) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	switch direction {
	case MigrateUp:
		if err := goose.UpContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
	case MigrateDown:
		if err := goose.DownContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
	case MigrateStatus:
		if err := goose.StatusContext(ctx, db, "migrations"); err != nil {
			return fmt.Errorf("migration status failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	return nil
}
