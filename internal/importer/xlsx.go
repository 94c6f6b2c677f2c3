package importer

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/dawon-meat/trace-cli/internal/model"
)

// Header synonyms, matched by substring against cell text. Spreadsheets
// arrive from several co-ops with inconsistent column naming.
var (
	numberHeaders = []string{"이력번호", "개체번호", "이력", "trace", "identifier"}
	breedHeaders  = []string{"품종", "소의 종류", "breed"}
	dateHeaders   = []string{"출생", "생년월일", "birth", "date"}
)

// headerScanLimit bounds how deep we look for the header row; co-op files
// put a title block above it but never more than a few rows.
const headerScanLimit = 10

// ReadXLSX imports trace records from a spreadsheet. The header row is
// detected by column-name substring match; rows before it are ignored.
func ReadXLSX(path string) ([]model.TraceRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: xlsx has no sheets")
	}
	sheet := f.Sheets[0]

	headerRow, cols := findHeader(sheet)
	if cols.number < 0 {
		return nil, eris.New("importer: no identifier column found")
	}

	var records []model.TraceRecord
	for i := headerRow + 1; i < len(sheet.Rows); i++ {
		cells := sheet.Rows[i].Cells

		number := model.NormalizeTraceNumber(cellAt(cells, cols.number))
		if number == "" {
			continue
		}

		breed := strings.TrimSpace(cellAt(cells, cols.breed))
		if breed == "" {
			breed = "-"
		}
		date := strings.TrimSpace(cellAt(cells, cols.date))
		if date == "" {
			date = "-"
		}

		records = append(records, model.TraceRecord{
			TraceNumber: number,
			BreedLabel:  breed,
			BirthDate:   date,
		})
	}

	if len(records) == 0 {
		return nil, eris.New("importer: no identifiers found in xlsx")
	}
	return records, nil
}

type columnMap struct {
	number, breed, date int
}

// findHeader scans the first rows for one containing an identifier column,
// returning its index and the matched column positions.
func findHeader(sheet *xlsx.Sheet) (int, columnMap) {
	limit := len(sheet.Rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}

	for i := 0; i < limit; i++ {
		cols := columnMap{number: -1, breed: -1, date: -1}
		for j, cell := range sheet.Rows[i].Cells {
			text := strings.ToLower(strings.TrimSpace(cell.String()))
			if text == "" {
				continue
			}
			switch {
			case cols.number < 0 && matchesAny(text, numberHeaders):
				cols.number = j
			case cols.breed < 0 && matchesAny(text, breedHeaders):
				cols.breed = j
			case cols.date < 0 && matchesAny(text, dateHeaders):
				cols.date = j
			}
		}
		if cols.number >= 0 {
			return i, cols
		}
	}
	return 0, columnMap{number: -1, breed: -1, date: -1}
}

func matchesAny(text string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(text, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

func cellAt(cells []*xlsx.Cell, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx].String()
}
