// internal/db/migrate.go
package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationTable = "schema_migrations"

// Migrate applies the embedded SQL migrations. The database/sql handle shares the
// pool's connections and is intentionally not closed here.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	sqlDB := stdlib.OpenDBFromPool(pool)

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{logger: logger.Sugar()})
	goose.SetTableName(migrationTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (g *gooseLogger) Printf(format string, args ...any) {
	g.logger.Infof(format, args...)
}

// Fatalf logs only; goose returns the error to the caller.
func (g *gooseLogger) Fatalf(format string, args ...any) {
	g.logger.Errorf(format, args...)
}
