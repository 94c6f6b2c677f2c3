// Package report builds the monthly production report workbook submitted
// to the regulator.
package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/dawon-meat/trace-cli/internal/model"
)

// reportColumns defines the ordered report header.
var reportColumns = []string{"Date", "Product", "Weight (kg)", "Source", "Note"}

// BuildMonthly builds the report workbook for one month of production logs.
// Logs are written in the order given; a totals row closes the sheet.
func BuildMonthly(logs []model.ProductionLog, month, sheetName string) (*xlsx.File, error) {
	if sheetName == "" {
		sheetName = "ProductionLog"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "report: add sheet")
	}

	title := sheet.AddRow()
	title.AddCell().SetString(fmt.Sprintf("Production report %s", month))

	header := sheet.AddRow()
	for _, col := range reportColumns {
		header.AddCell().SetString(col)
	}

	var total float64
	for _, l := range logs {
		row := sheet.AddRow()
		row.AddCell().SetString(l.LoggedAt.Format("2006-01-02 15:04"))
		row.AddCell().SetString(l.Product)
		row.AddCell().SetFloat(l.WeightKg)
		row.AddCell().SetString(string(l.Source))
		row.AddCell().SetString(l.Note)
		total += l.WeightKg
	}

	totals := sheet.AddRow()
	totals.AddCell().SetString("Total")
	totals.AddCell().SetString("")
	totals.AddCell().SetFloat(total)

	return f, nil
}

// WriteMonthly builds the report and saves it to path.
func WriteMonthly(logs []model.ProductionLog, month, sheetName, path string) error {
	f, err := BuildMonthly(logs, month, sheetName)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}
