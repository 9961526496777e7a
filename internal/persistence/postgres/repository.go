// Package postgres writes and reads the activities table on PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runlog/internal/dashboard"
	"example.com/runlog/internal/domain"
	"example.com/runlog/internal/persistence"
)

// Repository provides Postgres-backed persistence for activities.
type Repository struct {
	name string
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository on an existing pool.
func NewRepository(name string, pool *pgxpool.Pool) *Repository {
	return &Repository{name: name, pool: pool}
}

// Open connects to url and verifies the connection.
func Open(ctx context.Context, name, url string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewRepository(name, pool), nil
}

// Name identifies the target in logs and metrics.
func (r *Repository) Name() string {
	return r.name
}

// Close releases the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// EnsureSchema creates the activities table when absent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, persistence.Postgres.CreateTable()); err != nil {
		return fmt.Errorf("create activities table: %w", err)
	}
	return nil
}

// Replace swaps the table contents for rows inside a single transaction.
func (r *Repository) Replace(ctx context.Context, rows []domain.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, persistence.Postgres.DeleteAll()); err != nil {
		return fmt.Errorf("clear activities: %w", err)
	}

	source := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return persistence.Values(rows[i]), nil
	})
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{persistence.Table}, persistence.ColumnNames(), source)
	if err != nil {
		return fmt.Errorf("copy activities: %w", err)
	}
	if int(copied) != len(rows) {
		err = fmt.Errorf("copied %d of %d activities", copied, len(rows))
		return err
	}

	err = tx.Commit(ctx)
	return err
}

// Merge upserts rows keyed by id, leaving rows absent from the input untouched.
func (r *Repository) Merge(ctx context.Context, rows []domain.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	stmt := persistence.Postgres.InsertRows(1, true)
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(stmt, persistence.Values(row)...)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err = results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upsert activity %d: %w", rows[i].ID, err)
		}
	}
	if err = results.Close(); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	return err
}

// Runs returns every activity whose sport type is Run, for the dashboard read model.
func (r *Repository) Runs(ctx context.Context) ([]dashboard.Run, error) {
	rows, err := r.pool.Query(ctx, dashboard.RunsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dashboard.Run
	for rows.Next() {
		var rec dashboard.Record
		if err := rows.Scan(&rec.ID, &rec.StartDateLocal, &rec.DistanceMiles, &rec.AveragePace); err != nil {
			return nil, err
		}
		if run, ok := rec.Run(); ok {
			out = append(out, run)
		}
	}
	return out, rows.Err()
}
