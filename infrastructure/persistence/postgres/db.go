// Package postgres implements the application's persistence ports on
// PostgreSQL with the pgvector extension for idea embeddings.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	pkgerrors "dreamcatcher/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// PoolConfig configures the connection pool.
type PoolConfig struct {
	URL      string
	MaxConns int
}

// Connect opens a pool and registers the pgvector types on every
// connection. The vector extension must exist before the first connection,
// so run Migrate on a fresh database before relying on the pool.
func Connect(ctx context.Context, cfg PoolConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return pool, nil
}

// Migrate creates the extension, tables and indexes if they are missing.
// dimension fixes the width of the embedding column.
func Migrate(ctx context.Context, databaseURL string, dimension int) error {
	if dimension <= 0 {
		return pkgerrors.NewValidation("embedding dimension must be positive")
	}
	// A plain connection: the pool's AfterConnect needs the extension first.
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect for migration: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, schemaFor(dimension)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func schemaFor(dimension int) string {
	return strings.ReplaceAll(schemaSQL, "{{DIMENSION}}", strconv.Itoa(dimension))
}

// mapError converts driver errors into application errors.
func mapError(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return pkgerrors.NewNotFound(resource)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pkgerrors.NewConflict(resource + " already exists").WithCause(err)
	}
	return pkgerrors.NewDatabase(op, err)
}
