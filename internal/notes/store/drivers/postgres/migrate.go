package postgres

import (
	"context"

	"github.com/aussiebroadwan/notes/internal/notes/store/drivers/postgres/migrations"
	"github.com/pressly/goose/v3"
)

var gooseUpContext = goose.UpContext

// ApplyMigrations runs the embedded goose migrations.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, ".")
}
