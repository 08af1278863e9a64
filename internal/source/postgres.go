package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/variantd/variantd/internal/flags"
)

// PostgresSource stores each flag as a JSONB payload keyed by flag id.
//
// Expected schema:
//
//	CREATE TABLE IF NOT EXISTS flags (
//	    id         TEXT PRIMARY KEY,
//	    payload    JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPool creates a PostgreSQL connection pool with conservative settings.
// The pool does not validate connectivity at creation time; use
// pool.Ping(ctx) after creation to verify the database is reachable.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return pool, nil
}

// NewPostgresSource creates a PostgreSQL-backed source.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// GetAllFlags retrieves every flag payload, ordered by id for stable reload
// logs.
func (p *PostgresSource) GetAllFlags(ctx context.Context) ([]flags.Flag, error) {
	rows, err := p.pool.Query(ctx, `SELECT payload FROM flags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query flags: %w", err)
	}
	defer rows.Close()

	var result []flags.Flag
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan flag payload: %w", err)
		}
		var f flags.Flag
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, fmt.Errorf("decode flag payload: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// GetFlag retrieves a single flag by id.
func (p *PostgresSource) GetFlag(ctx context.Context, id string) (*flags.Flag, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM flags WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query flag %s: %w", id, err)
	}

	var f flags.Flag
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("decode flag payload: %w", err)
	}
	return &f, nil
}

// UpsertFlag creates or replaces the flag payload.
func (p *PostgresSource) UpsertFlag(ctx context.Context, flag flags.Flag) error {
	payload, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("encode flag payload: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO flags (id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		flag.ID, payload)
	if err != nil {
		return fmt.Errorf("upsert flag %s: %w", flag.ID, err)
	}
	return nil
}

// DeleteFlag removes a flag. Deleting a missing flag is a no-op.
func (p *PostgresSource) DeleteFlag(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM flags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete flag %s: %w", id, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresSource) Close() error {
	p.pool.Close()
	return nil
}
