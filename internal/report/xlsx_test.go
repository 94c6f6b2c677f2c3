package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/dawon-meat/trace-cli/internal/model"
)

func sampleLogs() []model.ProductionLog {
	return []model.ProductionLog{
		{
			LoggedAt: time.Date(2025, 12, 1, 9, 30, 0, 0, time.UTC),
			Product:  "한우 설도 다짐",
			WeightKg: 14.1,
			Source:   model.LogSourceScale,
		},
		{
			LoggedAt: time.Date(2025, 12, 2, 14, 0, 0, 0, time.UTC),
			Product:  "한우 양지 슬라이스",
			WeightKg: 8.5,
			Source:   model.LogSourceManual,
			Note:     "재계량",
		},
	}
}

func TestBuildMonthly(t *testing.T) {
	t.Parallel()

	f, err := BuildMonthly(sampleLogs(), "2025-12", "")
	require.NoError(t, err)

	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "ProductionLog", sheet.Name)

	// Title, header, two logs, totals.
	require.Len(t, sheet.Rows, 5)

	assert.Equal(t, "Production report 2025-12", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Date", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Weight (kg)", sheet.Rows[1].Cells[2].String())

	assert.Equal(t, "2025-12-01 09:30", sheet.Rows[2].Cells[0].String())
	assert.Equal(t, "한우 설도 다짐", sheet.Rows[2].Cells[1].String())
	assert.Equal(t, "scale", sheet.Rows[2].Cells[3].String())
	assert.Equal(t, "재계량", sheet.Rows[3].Cells[4].String())

	totals := sheet.Rows[4]
	assert.Equal(t, "Total", totals.Cells[0].String())
	total, err := totals.Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 22.6, total, 0.001)
}

func TestBuildMonthly_CustomSheetName(t *testing.T) {
	t.Parallel()

	f, err := BuildMonthly(nil, "2025-12", "생산일지")
	require.NoError(t, err)
	assert.Equal(t, "생산일지", f.Sheets[0].Name)

	// No logs: title, header, totals of zero.
	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3)
	total, err := sheet.Rows[2].Cells[2].Float()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWriteMonthly_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "production-2025-12.xlsx")
	require.NoError(t, WriteMonthly(sampleLogs(), "2025-12", "", path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Len(t, f.Sheets[0].Rows, 5)
}
