package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/table"
)

// AllSheet holds the full aggregate in an exported workbook.
const AllSheet = "all"

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// XLSXExporter writes the aggregate to an Excel workbook: an "all" sheet
// followed by one sheet per library in processing order.
type XLSXExporter struct {
	Path string
}

func (x *XLSXExporter) Name() string { return "xlsx" }

// Export writes the workbook, replacing any existing file.
func (x *XLSXExporter) Export(ctx context.Context, info RunInfo, agg *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AllSheet); err != nil {
		return apperr.Wrap(apperr.ErrCodePersist, err, "create workbook")
	}
	if err := writeSheet(f, AllSheet, agg); err != nil {
		return apperr.Wrap(apperr.ErrCodePersist, err, "write sheet %s", AllSheet)
	}

	names, parts := table.SplitByDataset(agg)
	used := map[string]bool{AllSheet: true}
	for _, lib := range names {
		sheet := sheetName(lib, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return apperr.Wrap(apperr.ErrCodePersist, err, "add sheet %s", sheet)
		}
		if err := writeSheet(f, sheet, parts[lib]); err != nil {
			return apperr.Wrap(apperr.ErrCodePersist, err, "write sheet %s", sheet)
		}
	}

	f.SetDocProps(&excelize.DocProperties{
		Title:       "Enrichr results: " + info.Description,
		Description: "run " + info.RunID,
		Creator:     "goenrichr",
	})

	if err := os.MkdirAll(filepath.Dir(x.Path), 0o755); err != nil {
		return apperr.Wrap(apperr.ErrCodePersist, err, "create output directory")
	}
	if err := f.SaveAs(x.Path); err != nil {
		return apperr.Wrap(apperr.ErrCodePersist, err, "save %s", x.Path)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *table.Table) error {
	for i, col := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if len(t.Columns) > 0 {
		headerStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		lastCol, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", lastCol, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return err
			}
		}
	}

	for i := range t.Columns {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colName, colName, 15)
	}
	return nil
}

var sheetReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// sheetName maps a library name to a unique legal sheet name.
func sheetName(library string, used map[string]bool) string {
	base := sheetReplacer.Replace(library)
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	name := base
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		name = base[:min(len(base), maxSheetName-len(suffix))] + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
