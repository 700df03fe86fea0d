package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Postgres db library loading
	_ "github.com/lib/pq"
)

// PostgresqlStore is a storage engine that writes to postgres
type PostgresqlStore struct {
	db *sql.DB
}

// NewPostgresqlClient creates a new db client object and ensures the schema exists
func NewPostgresqlClient(connStr string) *sql.DB {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		panic(err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS watch_history (
			item_id varchar(255) NOT NULL,
			elapsed_seconds double precision NOT NULL DEFAULT 0,
			duration_seconds double precision,
			completed boolean NOT NULL DEFAULT false,
			updated timestamp with time zone NOT NULL,
			PRIMARY KEY(item_id)
		)
	`); err != nil {
		panic(err)
	}
	return db
}

// NewPostgresqlStore creates new store
func NewPostgresqlStore(db *sql.DB) *PostgresqlStore {
	return &PostgresqlStore{db: db}
}

// Ping will check if the connection works right
func (s *PostgresqlStore) Ping(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.PingContext(ctx)
}

func (s *PostgresqlStore) Get(ctx context.Context, id string) (Progress, bool, error) {
	var (
		p        Progress
		duration sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT elapsed_seconds, duration_seconds, completed FROM watch_history WHERE item_id=$1",
		id,
	).Scan(&p.ElapsedSeconds, &duration, &p.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("query %s: %w", id, err)
	}
	if duration.Valid {
		p.DurationSeconds = &duration.Float64
	}
	return p, true, nil
}

func (s *PostgresqlStore) Set(ctx context.Context, id string, progress Progress) error {
	var duration sql.NullFloat64
	if progress.DurationSeconds != nil {
		duration = sql.NullFloat64{Float64: *progress.DurationSeconds, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`
			INSERT INTO watch_history
				(item_id, elapsed_seconds, duration_seconds, completed, updated)
				VALUES($1, $2, $3, $4, $5)
			ON CONFLICT(item_id)
			DO UPDATE set elapsed_seconds=EXCLUDED.elapsed_seconds, duration_seconds=EXCLUDED.duration_seconds, completed=EXCLUDED.completed, updated=EXCLUDED.updated
		`,
		id,
		progress.ElapsedSeconds,
		duration,
		progress.Completed,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}

func (s *PostgresqlStore) All(ctx context.Context) (map[string]Progress, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_id, elapsed_seconds, duration_seconds, completed FROM watch_history`)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()

	out := map[string]Progress{}
	for rows.Next() {
		var (
			id       string
			p        Progress
			duration sql.NullFloat64
		)
		if err := rows.Scan(&id, &p.ElapsedSeconds, &duration, &p.Completed); err != nil {
			slog.Warn("skipping corrupt watch history record",
				"operation", "history_postgres_all",
				"item_id", id,
				"error", err,
			)
			continue
		}
		if duration.Valid {
			d := duration.Float64
			p.DurationSeconds = &d
		}
		out[id] = p
	}
	return out, rows.Err()
}
