// Package sqlstore writes and reads the activities table through database/sql,
// serving the MySQL and SQLite destinations.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"example.com/runlog/internal/dashboard"
	"example.com/runlog/internal/domain"
	"example.com/runlog/internal/persistence"
)

// DefaultChunkSize is the number of rows per multi-row INSERT.
const DefaultChunkSize = 500

// Store is a database/sql backed destination.
type Store struct {
	name      string
	db        *sql.DB
	dialect   persistence.Dialect
	chunkSize int
}

// New wraps an open handle. A non-positive chunkSize uses DefaultChunkSize.
func New(name string, db *sql.DB, dialect persistence.Dialect, chunkSize int) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Store{name: name, db: db, dialect: dialect, chunkSize: chunkSize}
}

// Open opens driverName with dsn and verifies the connection.
func Open(ctx context.Context, name, driverName, dsn string, dialect persistence.Dialect, chunkSize int) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == persistence.SQLite.Name {
		// one writer; also keeps ":memory:" a single database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	return New(name, db, dialect, chunkSize), nil
}

// Name identifies the target in logs and metrics.
func (s *Store) Name() string {
	return s.name
}

// Close closes the handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the activities table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.CreateTable()); err != nil {
		return fmt.Errorf("create activities table: %w", err)
	}
	return nil
}

// Replace empties the table and inserts rows in chunks, all in one transaction.
func (s *Store) Replace(ctx context.Context, rows []domain.Activity) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.dialect.DeleteAll()); err != nil {
			return fmt.Errorf("clear activities: %w", err)
		}
		return s.insert(ctx, tx, rows, false)
	})
}

// Merge upserts rows keyed by id, leaving rows absent from the input untouched.
func (s *Store) Merge(ctx context.Context, rows []domain.Activity) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insert(ctx, tx, rows, true)
	})
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, rows []domain.Activity, merge bool) error {
	for i, chunk := range persistence.Chunks(rows, s.chunkSize) {
		args := make([]any, 0, len(chunk)*len(persistence.Columns))
		for _, row := range chunk {
			for _, v := range persistence.Values(row) {
				args = append(args, bindable(v))
			}
		}
		if _, err := tx.ExecContext(ctx, s.dialect.InsertRows(len(chunk), merge), args...); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// bindable dereferences nullable columns so every driver sees plain values or nil.
func bindable(v any) any {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return nil
		}
		return *p
	case *float64:
		if p == nil {
			return nil
		}
		return *p
	case *int64:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Runs returns every activity whose sport type is Run.
func (s *Store) Runs(ctx context.Context) ([]dashboard.Run, error) {
	rows, err := s.db.QueryContext(ctx, dashboard.RunsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dashboard.Run
	for rows.Next() {
		var (
			rec   dashboard.Record
			start sql.NullString
			dist  sql.NullFloat64
			pace  sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &start, &dist, &pace); err != nil {
			return nil, err
		}
		if start.Valid {
			rec.StartDateLocal = &start.String
		}
		if dist.Valid {
			rec.DistanceMiles = &dist.Float64
		}
		if pace.Valid {
			rec.AveragePace = &pace.Float64
		}
		if run, ok := rec.Run(); ok {
			out = append(out, run)
		}
	}
	return out, rows.Err()
}
