// Package sink persists enrichment results.
//
// A [Sink] writes one library's tagged table to a delimited file as soon as
// the library completes. An [Exporter] receives the final aggregate once per
// run; the bundled exporters write an Excel workbook ([XLSXExporter]) and
// insert rows into MongoDB ([MongoExporter]).
package sink

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/table"
)

// Sink persists a single result table.
type Sink interface {
	Persist(ctx context.Context, t *table.Table, path string) error
}

// RunInfo describes the run an aggregate belongs to.
type RunInfo struct {
	RunID       string
	Description string
	Libraries   []string
	StartedAt   time.Time
}

// Exporter receives the aggregated table once at the end of a run.
type Exporter interface {
	Name() string
	Export(ctx context.Context, info RunInfo, agg *table.Table) error
}

// FileSink writes tables as delimited text with a header row. Existing files
// are overwritten, so persisting the same table twice yields the same file.
type FileSink struct {
	Delimiter rune // zero means tab
}

// Persist writes t to path, creating parent directories as needed.
func (s FileSink) Persist(ctx context.Context, t *table.Table, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delim := s.Delimiter
	if delim == 0 {
		delim = '\t'
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.ErrCodePersist, err, "create output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.ErrCodePersist, err, "create %s", path)
	}
	if err := t.Write(f, delim); err != nil {
		f.Close()
		return apperr.Wrap(apperr.ErrCodePersist, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return apperr.Wrap(apperr.ErrCodePersist, err, "close %s", path)
	}
	return nil
}

// ReportPath is the per-library result file inside dir.
func ReportPath(dir, library, description string) string {
	return filepath.Join(dir, library+"."+description+".enrichr.reports.txt")
}

// cellValue returns a float for numeric cells and the string otherwise, so
// spreadsheets and documents keep p-values sortable.
func cellValue(s string) any {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return v
	}
	return s
}
