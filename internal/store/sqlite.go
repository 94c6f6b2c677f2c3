package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dawon-meat/trace-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS production_logs (
	id        TEXT PRIMARY KEY,
	logged_at DATETIME NOT NULL,
	product   TEXT NOT NULL,
	weight_kg REAL NOT NULL,
	source    TEXT NOT NULL DEFAULT 'manual',
	note      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_production_logs_logged_at ON production_logs(logged_at);
CREATE INDEX IF NOT EXISTS idx_production_logs_source ON production_logs(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateLog(ctx context.Context, log model.ProductionLog) (*model.ProductionLog, error) {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now().UTC()
	}
	if log.Source == "" {
		log.Source = model.LogSourceManual
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO production_logs (id, logged_at, product, weight_kg, source, note) VALUES (?, ?, ?, ?, ?, ?)`,
		log.ID, log.LoggedAt, log.Product, log.WeightKg, string(log.Source), log.Note,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert production log")
	}
	return &log, nil
}

func (s *SQLiteStore) ListLogs(ctx context.Context, filter LogFilter) ([]model.ProductionLog, error) {
	query := `SELECT id, logged_at, product, weight_kg, source, note FROM production_logs WHERE 1=1`
	var args []any

	if filter.Month != "" {
		start, end, err := monthBounds(filter.Month)
		if err != nil {
			return nil, err
		}
		query += ` AND logged_at >= ? AND logged_at < ?`
		args = append(args, start, end)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}

	query += ` ORDER BY logged_at`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list production logs")
	}
	defer rows.Close()

	var logs []model.ProductionLog
	for rows.Next() {
		var l model.ProductionLog
		var source string
		if err := rows.Scan(&l.ID, &l.LoggedAt, &l.Product, &l.WeightKg, &source, &l.Note); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan production log")
		}
		l.Source = model.LogSource(source)
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: iterate production logs")
}

func (s *SQLiteStore) DeleteLog(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM production_logs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete production log %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: production log %s not found", id)
	}
	return nil
}

// monthBounds converts YYYY-MM into [start, end) UTC timestamps.
func monthBounds(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrapf(err, "store: invalid month %q", month)
	}
	return start, start.AddDate(0, 1, 0), nil
}
