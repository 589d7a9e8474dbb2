package gormdb

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func RunMigrations(ctx context.Context, db *gorm.DB, driver string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	var dialect, dir string
	switch driver {
	case DriverSQLite:
		dialect, dir = "sqlite3", "migrations/sqlite"
	case DriverPostgres:
		dialect, dir = "postgres", "migrations/postgres"
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, sqlDB, dir); err != nil {
		return err
	}

	return nil
}
