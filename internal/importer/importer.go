// Package importer loads plot-owner allotment registers from xlsx workbooks
// and applies them to audited areas.
package importer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/lifecycle"
	"github.com/landgrid/geoaudit/internal/model"
)

// Allotment is one register row: the plot and who it is allotted to.
type Allotment struct {
	PlotID     string
	OwnerName  string
	OwnerEmail string
}

// Options configures register parsing.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // number of header rows to skip; default 1
}

// ReadRegister parses an allotment register workbook. Expected columns:
// plot id, owner name, owner email. Rows with no plot id are skipped.
func ReadRegister(path string, opts Options) ([]Allotment, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open register %s", path)
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}

	skip := opts.SkipRows
	if skip == 0 {
		skip = 1
	}

	var allotments []Allotment
	for i, row := range sheet.Rows {
		if i < skip {
			continue
		}
		a := rowToAllotment(row)
		if a.PlotID == "" {
			continue
		}
		allotments = append(allotments, a)
	}
	return allotments, nil
}

// Result reports an owner-import run.
type Result struct {
	Applied int
	Skipped []string // plot ids the area does not contain
}

// ApplyOwners assigns the register's owners to the area's plots. Unknown plot
// ids are collected, not fatal; any other failure aborts the run.
func ApplyOwners(ctx context.Context, lm *lifecycle.Manager, areaID string, allotments []Allotment) (*Result, error) {
	res := &Result{}
	for _, a := range allotments {
		_, err := lm.AssignOwner(ctx, areaID, a.PlotID, a.OwnerName, a.OwnerEmail)
		if eris.Is(err, model.ErrNotFound) {
			res.Skipped = append(res.Skipped, a.PlotID)
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "importer: assign owner for plot %s", a.PlotID)
		}
		res.Applied++
	}

	zap.L().Info("importer: owners applied",
		zap.String("area", areaID),
		zap.Int("applied", res.Applied),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func pickSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("importer: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("importer: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToAllotment(row *xlsx.Row) Allotment {
	cell := func(i int) string {
		if i >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[i].String())
	}
	return Allotment{
		PlotID:     cell(0),
		OwnerName:  cell(1),
		OwnerEmail: cell(2),
	}
}
