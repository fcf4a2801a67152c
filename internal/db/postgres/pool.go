// Package postgres implements db.Store on pgvector through pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/williamjung/voiceagent/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds pgvector connection parameters.
type Config struct {
	DSN           string
	MatchFunction string // defaults to match_documents
	Table         string // defaults to documents
	MaxConns      int32
}

// querier is the subset of pgxpool.Pool the store uses.
type querier interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store queries the match_documents function and writes the documents table.
type Store struct {
	pool    *pgxpool.Pool
	q       querier
	matchFn string
	table   string
}

// NewStore opens a pgx pool. The connection is lazy; use WaitForReady to block.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	matchFn, table, err := names(cfg)
	if err != nil {
		return nil, err
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return &Store{pool: pool, q: pool, matchFn: matchFn, table: table}, nil
}

func names(cfg Config) (matchFn, table string, err error) {
	matchFn, table = cfg.MatchFunction, cfg.Table
	if matchFn == "" {
		matchFn = "match_documents"
	}
	if table == "" {
		table = "documents"
	}
	if !isSQLIdentifier(matchFn) || !isSQLIdentifier(table) {
		return "", "", fmt.Errorf("invalid identifier: function %q, table %q", matchFn, table)
	}
	return matchFn, table, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.q.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for postgres: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// isSQLIdentifier accepts lower-case unquoted identifiers, optionally schema-qualified.
func isSQLIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_', r == '.':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
