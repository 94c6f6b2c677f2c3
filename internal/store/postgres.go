package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/dawon-meat/trace-cli/internal/model"
	"github.com/dawon-meat/trace-cli/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool. The initial
// ping is retried briefly so a restarting database does not fail startup.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	pingCfg := resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		OnRetry:        resilience.RetryLogger("store", "ping"),
	}
	if err := resilience.Do(ctx, pingCfg, func(ctx context.Context) error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS production_logs (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	logged_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	product   TEXT NOT NULL,
	weight_kg DOUBLE PRECISION NOT NULL,
	source    TEXT NOT NULL DEFAULT 'manual',
	note      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_production_logs_logged_at ON production_logs(logged_at);
CREATE INDEX IF NOT EXISTS idx_production_logs_source ON production_logs(source);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateLog(ctx context.Context, log model.ProductionLog) (*model.ProductionLog, error) {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now().UTC()
	}
	if log.Source == "" {
		log.Source = model.LogSourceManual
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO production_logs (id, logged_at, product, weight_kg, source, note) VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ID, log.LoggedAt, log.Product, log.WeightKg, string(log.Source), log.Note,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert production log")
	}
	return &log, nil
}

func (s *PostgresStore) ListLogs(ctx context.Context, filter LogFilter) ([]model.ProductionLog, error) {
	query := `SELECT id, logged_at, product, weight_kg, source, note FROM production_logs WHERE 1=1`
	var args []any

	if filter.Month != "" {
		start, end, err := monthBounds(filter.Month)
		if err != nil {
			return nil, err
		}
		args = append(args, start, end)
		query += ` AND logged_at >= $1 AND logged_at < $2`
	}
	if filter.Source != "" {
		args = append(args, string(filter.Source))
		query += ` AND source = $` + itoa(len(args))
	}

	query += ` ORDER BY logged_at`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list production logs")
	}
	defer rows.Close()

	var logs []model.ProductionLog
	for rows.Next() {
		var l model.ProductionLog
		var source string
		if err := rows.Scan(&l.ID, &l.LoggedAt, &l.Product, &l.WeightKg, &source, &l.Note); err != nil {
			return nil, eris.Wrap(err, "postgres: scan production log")
		}
		l.Source = model.LogSource(source)
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: iterate production logs")
}

func (s *PostgresStore) DeleteLog(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM production_logs WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete production log %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: production log %s not found", id)
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
