package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/williamjung/voiceagent/internal/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaDimensions is the embedding width baked into the documents migration.
const SchemaDimensions = 1536

// EnsureIndex applies pending goose migrations (pgvector extension, documents table,
// HNSW index, match_documents function).
func (s *Store) EnsureIndex(ctx context.Context, spec db.IndexSpec) error {
	if spec.Dimensions != SchemaDimensions {
		return fmt.Errorf("postgres schema is built for %d dimensions, got %d", SchemaDimensions, spec.Dimensions)
	}
	if s.pool == nil {
		return fmt.Errorf("migrations require a live pool")
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(s.pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, sub)
	if err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	if _, err := provider.Up(ctx); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	return nil
}
