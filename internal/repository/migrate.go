package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/linkcents/linkcents/internal/config"
	"github.com/linkcents/linkcents/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded goose migrations. Goose wants a
// database/sql handle, so this uses the pgx stdlib bridge and closes it once
// the schema is current.
func RunMigrations(cfg config.DBConfig) error {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
