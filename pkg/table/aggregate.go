package table

import (
	"cmp"
	"math"
	"slices"
)

// Aggregate accumulates tagged per-library tables in processing order.
// Its columns are the union of all appended tables in first-seen order;
// cells for columns a table does not have are left empty.
//
// Aggregate has a single writer (the run orchestrator) and is not safe for
// concurrent use.
type Aggregate struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{index: make(map[string]int)}
}

// Append adds all rows of t. The table is copied; later changes to t are not
// reflected.
func (a *Aggregate) Append(t *Table) {
	for _, c := range t.Columns {
		if _, ok := a.index[c]; !ok {
			a.index[c] = len(a.columns)
			a.columns = append(a.columns, c)
			for i := range a.rows {
				a.rows[i] = append(a.rows[i], "")
			}
		}
	}
	for _, src := range t.Rows {
		row := make([]string, len(a.columns))
		for j, c := range t.Columns {
			row[a.index[c]] = src[j]
		}
		a.rows = append(a.rows, row)
	}
}

// Len returns the number of accumulated rows.
func (a *Aggregate) Len() int { return len(a.rows) }

// Table returns a snapshot of the aggregate.
func (a *Aggregate) Table() *Table {
	t := &Table{Columns: slices.Clone(a.columns), Rows: make([][]string, len(a.rows))}
	for i, row := range a.rows {
		t.Rows[i] = slices.Clone(row)
	}
	return t
}

// SplitByDataset groups rows by the [ColDataset] column, preserving the
// order in which datasets first appear. Tables without a dataset column
// return nil.
func SplitByDataset(t *Table) (names []string, parts map[string]*Table) {
	col := t.Index(ColDataset)
	if col < 0 {
		return nil, nil
	}
	parts = make(map[string]*Table)
	for _, row := range t.Rows {
		name := row[col]
		p, ok := parts[name]
		if !ok {
			p = &Table{Columns: slices.Clone(t.Columns)}
			parts[name] = p
			names = append(names, name)
		}
		p.Rows = append(p.Rows, slices.Clone(row))
	}
	return names, parts
}

// Significant returns the rows of t whose adjusted p-value is at most cutoff,
// sorted by ascending adjusted p-value and truncated to top rows (top <= 0
// keeps all). Rows with unparsable p-values are dropped.
func Significant(t *Table, cutoff float64, top int) *Table {
	type scored struct {
		p   float64
		row []string
	}
	var hits []scored
	for i, row := range t.Rows {
		p := t.Float(i, ColAdjPValue)
		if math.IsNaN(p) || p > cutoff {
			continue
		}
		hits = append(hits, scored{p: p, row: row})
	}
	slices.SortStableFunc(hits, func(a, b scored) int { return cmp.Compare(a.p, b.p) })
	if top > 0 && len(hits) > top {
		hits = hits[:top]
	}

	out := &Table{Columns: slices.Clone(t.Columns), Rows: make([][]string, len(hits))}
	for i, h := range hits {
		out.Rows[i] = slices.Clone(h.row)
	}
	return out
}
