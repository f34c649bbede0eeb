package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dompet/internal/kv"
)

const (
	pgGet    = `SELECT value FROM kv WHERE key = $1`
	pgLock   = `SELECT pg_advisory_xact_lock($1)`
	pgDelete = `DELETE FROM kv WHERE key = $1`
	pgUpsert = `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// updateLockID names the advisory lock every Update takes. A row lock would
// not cover keys that do not exist yet.
const updateLockID int64 = 0x646f6d706574

// PostgresRepository is the shared-database variant of SQLiteRepository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Get(ctx context.Context, key string) (string, bool, error) {
	return scanRow(r.pool.QueryRow(ctx, pgGet, key), key)
}

func scanRow(row pgx.Row, key string) (string, bool, error) {
	var value string
	err := row.Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *PostgresRepository) Set(ctx context.Context, key, value string) error {
	if _, err := r.pool.Exec(ctx, pgUpsert, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// SetMany sends all upserts as one batch inside a transaction.
func (r *PostgresRepository) SetMany(ctx context.Context, entries map[string]string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return sendUpserts(ctx, tx, entries)
	})
}

// Update serializes on a transaction-scoped advisory lock, so updates from
// every process sharing the database run one after another.
func (r *PostgresRepository) Update(ctx context.Context, fn kv.UpdateFunc) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgLock, updateLockID); err != nil {
			return fmt.Errorf("lock ledger: %w", err)
		}
		entries, err := fn(func(key string) (string, bool, error) {
			return scanRow(tx.QueryRow(ctx, pgGet, key), key)
		})
		if err != nil {
			return err
		}
		return sendUpserts(ctx, tx, entries)
	})
}

func sendUpserts(ctx context.Context, tx pgx.Tx, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	keys := slices.Sorted(maps.Keys(entries))
	for _, key := range keys {
		batch.Queue(pgUpsert, key, entries[key])
	}
	results := tx.SendBatch(ctx, batch)
	for _, key := range keys {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return results.Close()
}

func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, pgDelete, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
