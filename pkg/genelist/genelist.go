// Package genelist normalizes gene-list inputs into the text payload that
// Enrichr accepts.
//
// # Input Shapes
//
// Three input shapes are accepted, modelled as a closed set of types that
// implement [Input]:
//
//   - [IdentifierList]: a flat list of gene symbols
//   - [TableRows]: tabular rows; 3+ columns are treated as BED-like regions,
//     2 columns as gene plus weight, 1 column as plain symbols
//   - [FilePath]: a text file with one record per line
//
// [Normalize] turns any of them into a [Payload], the immutable value that is
// submitted once per library:
//
//	p, err := genelist.Normalize(genelist.IdentifierList{"TP53", "BRCA1", "EGFR"})
//	fmt.Println(p.Text()) // "TP53\nBRCA1\nEGFR"
package genelist

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
)

// Input is one of [IdentifierList], [TableRows] or [FilePath].
// The interface is sealed; other implementations cannot be declared outside
// this package.
type Input interface {
	isInput()
}

// IdentifierList is a flat, ordered list of gene identifiers.
type IdentifierList []string

// TableRows holds tabular gene data. All rows must have the same width.
type TableRows [][]string

// FilePath names a text file containing one record per line.
type FilePath string

func (IdentifierList) isInput() {}
func (TableRows) isInput()      {}
func (FilePath) isInput()       {}

// Payload is the canonical, newline-joined gene list text.
// The zero value is an empty payload. Payloads are never mutated after
// [Normalize] returns them.
type Payload struct {
	records []string
}

// Text returns the payload as submitted to the server.
func (p Payload) Text() string { return strings.Join(p.records, "\n") }

// Records returns a copy of the payload lines in input order.
func (p Payload) Records() []string { return append([]string(nil), p.records...) }

// Len returns the number of records, blank lines included.
func (p Payload) Len() int { return len(p.records) }

// Genes returns the gene identifier of each non-blank record: the first
// tab- or comma-separated field. Duplicates are kept.
func (p Payload) Genes() []string {
	genes := make([]string, 0, len(p.records))
	for _, r := range p.records {
		if g := firstField(r); g != "" {
			genes = append(genes, g)
		}
	}
	return genes
}

func firstField(record string) string {
	if i := strings.IndexAny(record, "\t,"); i >= 0 {
		record = record[:i]
	}
	return strings.TrimSpace(record)
}

// Normalize converts in into a [Payload].
//
// Returns an INPUT_FORMAT error if in is nil, if a table has rows of unequal
// width, if a file cannot be read, or if the input contains no records.
func Normalize(in Input) (Payload, error) {
	var (
		records []string
		err     error
	)

	switch v := in.(type) {
	case IdentifierList:
		records = append([]string(nil), v...)
	case TableRows:
		records, err = normalizeRows(v)
	case FilePath:
		records, err = readLines(string(v))
	default:
		return Payload{}, apperr.New(apperr.ErrCodeInputFormat, "unsupported gene list input: %T", in)
	}
	if err != nil {
		return Payload{}, err
	}

	if len(records) == 0 {
		return Payload{}, apperr.New(apperr.ErrCodeInputFormat, "gene list is empty")
	}
	return Payload{records: records}, nil
}

func normalizeRows(rows TableRows) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	width := len(rows[0])
	if width == 0 {
		return nil, apperr.New(apperr.ErrCodeInputFormat, "gene table has no columns")
	}

	sep := "\n"
	switch {
	case width >= 3:
		sep = "\t" // BED-like regions
	case width == 2:
		sep = "," // gene,weight
	}

	records := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, apperr.New(apperr.ErrCodeInputFormat,
				"gene table row %d has %d columns, want %d", i+1, len(row), width)
		}
		if width >= 3 {
			row = row[:3]
		}
		records[i] = strings.Join(row, sep)
	}
	return records, nil
}

// readLines reads path line by line. Each line is trimmed; blank lines are
// kept so the payload stays line-for-line faithful to the file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInputFormat, err, "read gene list %s", path)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && !info.Mode().IsRegular() {
		return nil, apperr.New(apperr.ErrCodeInputFormat, "gene list %s is not a regular file", path)
	}

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInputFormat, err, "read gene list %s", path)
	}
	return lines, nil
}

// String implements fmt.Stringer for log output.
func (p Payload) String() string {
	return fmt.Sprintf("Payload(%d records)", len(p.records))
}
