// Package export renders audited areas into files handed to field offices:
// per-layer shapefiles and an xlsx compliance register.
package export

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/landgrid/geoaudit/internal/model"
)

var registerHeader = []string{
	"Plot ID", "Plot No.", "Owner", "Owner Email", "Status",
	"Deviation %", "Manual Review", "Constructed %", "Greenery %", "Last Action",
}

// WriteRegister writes the compliance register for the area as an xlsx
// workbook, one sheet per area with a row per plot.
func WriteRegister(area *model.Area, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName(area.AreaName))
	if err != nil {
		return eris.Wrapf(err, "export: add sheet for area %s", area.AreaID)
	}

	header := sheet.AddRow()
	for _, col := range registerHeader {
		header.AddCell().SetString(col)
	}

	for i := range area.Plots {
		writePlotRow(sheet, &area.Plots[i])
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save register %s", path)
	}
	return nil
}

func writePlotRow(sheet *xlsx.Sheet, plot *model.Plot) {
	row := sheet.AddRow()
	row.AddCell().SetString(plot.PlotID)
	row.AddCell().SetInt(plot.PlotNumber)
	row.AddCell().SetString(plot.OwnerName)
	row.AddCell().SetString(plot.OwnerEmail)
	row.AddCell().SetString(string(plot.Compliance.Status))
	row.AddCell().SetString(formatPercent(plot.Compliance.DeviationPercent))
	row.AddCell().SetString(yesNo(plot.Compliance.RequiresManualReview))

	if plot.Usage != nil {
		row.AddCell().SetString(formatPercent(plot.Usage.ConstructedPercent))
		row.AddCell().SetString(formatPercent(plot.Usage.GreeneryPercent))
	} else {
		row.AddCell().SetString("")
		row.AddCell().SetString("")
	}

	row.AddCell().SetString(lastAction(plot))
}

// lastAction summarizes the most recent audit entry, or empty when the plot
// has never been acted on.
func lastAction(plot *model.Plot) string {
	n := len(plot.Compliance.ActionHistory)
	if n == 0 {
		return ""
	}
	entry := plot.Compliance.ActionHistory[n-1]
	return fmt.Sprintf("%s at %s", entry.ActionType, entry.Timestamp.UTC().Format("2006-01-02 15:04"))
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// sheetName truncates to the 31-character limit xlsx imposes on sheet names.
func sheetName(name string) string {
	if name == "" {
		return "Register"
	}
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
