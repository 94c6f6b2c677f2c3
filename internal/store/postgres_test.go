package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dawon-meat/trace-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresWithPool(mock), mock
}

func TestPostgres_CreateLog(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO production_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "설도 다짐", 14.1, "scale", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := s.CreateLog(context.Background(), model.ProductionLog{
		Product:  "설도 다짐",
		WeightKg: 14.1,
		Source:   model.LogSourceScale,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListLogsWithMonthAndSource(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	loggedAt := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "logged_at", "product", "weight_kg", "source", "note"}).
		AddRow("log-1", loggedAt, "설도 다짐", 14.1, "manual", "")

	mock.ExpectQuery("SELECT id, logged_at, product, weight_kg, source, note FROM production_logs").
		WithArgs(
			time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			"manual",
		).
		WillReturnRows(rows)

	logs, err := s.ListLogs(context.Background(), LogFilter{Month: "2025-12", Source: model.LogSourceManual})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "log-1", logs[0].ID)
	assert.Equal(t, model.LogSourceManual, logs[0].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteLogNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM production_logs").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteLog(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS production_logs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
