package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parallax-labs/graphrag/pkg/config"
)

// pgxExecer backs the connector with a pgxpool. Each Exec acquires a
// connection, runs one query, and releases the connection - no session
// outlives a call.
type pgxExecer struct {
	pool *pgxpool.Pool
}

func dialPgx(ctx context.Context, cfg config.Config) (Execer, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.PoolSize)
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &pgxExecer{pool: pool}, nil
}

func (e *pgxExecer) Exec(ctx context.Context, sql string, args []any) ([]Record, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (e *pgxExecer) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

func (e *pgxExecer) Close() {
	e.pool.Close()
}
