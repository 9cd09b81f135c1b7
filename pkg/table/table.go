// Package table holds Enrichr result tables and their aggregation.
//
// A [Table] is the parsed TSV export for one library. Tables are treated as
// immutable: [Table.WithDataset] returns a tagged copy and [Aggregate]
// accumulates copies, so a table handed to a sink or plotter is never
// modified afterwards.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Column names of the Enrichr export format used by this package.
const (
	ColTerm          = "Term"
	ColOverlap       = "Overlap"
	ColPValue        = "P-value"
	ColAdjPValue     = "Adjusted P-value"
	ColOddsRatio     = "Odds Ratio"
	ColCombinedScore = "Combined Score"
	ColGenes         = "Genes"

	// ColDataset is appended to every table and names the source library.
	ColDataset = "dataset"
)

// Table is a header plus string cells. Rows always have len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	return slices.Index(t.Columns, name)
}

// Column returns all values of column name, or nil if it does not exist.
func (t *Table) Column(name string) []string {
	i := t.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Float returns the numeric value of column name in row r.
// Missing columns and unparsable cells yield NaN.
func (t *Table) Float(r int, name string) float64 {
	i := t.Index(name)
	if i < 0 || r < 0 || r >= len(t.Rows) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(t.Rows[r][i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = slices.Clone(row)
	}
	return out
}

// WithDataset returns a copy of t with a [ColDataset] column set to library
// on every row. An existing dataset column is overwritten.
func (t *Table) WithDataset(library string) *Table {
	out := t.Clone()
	i := out.Index(ColDataset)
	if i < 0 {
		out.Columns = append(out.Columns, ColDataset)
		for r := range out.Rows {
			out.Rows[r] = append(out.Rows[r], library)
		}
		return out
	}
	for r := range out.Rows {
		out.Rows[r][i] = library
	}
	return out
}

// ReadTSV parses an Enrichr export body. The first line is the header.
// An empty body yields an empty table with no columns. Short rows are padded
// and long rows truncated to the header width.
func ReadTSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		t.Rows = append(t.Rows, fitRow(rec, len(header)))
	}
	return t, nil
}

// Write encodes t with the given delimiter, header first.
func (t *Table) Write(w io.Writer, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func fitRow(rec []string, width int) []string {
	switch {
	case len(rec) == width:
		return rec
	case len(rec) > width:
		return rec[:width]
	default:
		row := make([]string, width)
		copy(row, rec)
		return row
	}
}
