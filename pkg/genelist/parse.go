package genelist

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
)

// Parse interprets a command-line argument as an [Input].
// An argument that names a file or looks like a path becomes a [FilePath],
// so a missing file fails in [Normalize] instead of being submitted as a
// gene. Anything else is split on commas into an [IdentifierList],
// dropping empty entries.
func Parse(arg string) Input {
	if looksLikePath(arg) {
		return FilePath(arg)
	}
	var ids IdentifierList
	for _, s := range strings.Split(arg, ",") {
		if s = strings.TrimSpace(s); s != "" {
			ids = append(ids, s)
		}
	}
	return ids
}

// listExtensions are the file types accepted for gene lists and tables.
var listExtensions = map[string]bool{
	".txt": true, ".tsv": true, ".csv": true, ".bed": true,
	".gmt": true, ".lst": true, ".list": true,
}

func looksLikePath(arg string) bool {
	if _, err := os.Stat(arg); err == nil {
		return true
	}
	if strings.ContainsRune(arg, ',') {
		return false
	}
	if strings.ContainsAny(arg, `/\`) {
		return true
	}
	// Gene symbols may contain dots (RP11-34P13.7), so only known
	// extensions count.
	return listExtensions[strings.ToLower(filepath.Ext(arg))]
}

// ReadTable reads a delimited file into [TableRows].
// If delim is zero it is inferred from the extension: ".csv" uses commas,
// everything else (".tsv", ".bed", ".txt") uses tabs. Lines starting with
// '#' are skipped, as in BED track headers.
func ReadTable(path string, delim rune) (TableRows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInputFormat, err, "read gene table %s", path)
	}
	defer f.Close()

	if delim == 0 {
		delim = inferDelimiter(path)
	}
	rows, err := readTable(f, delim)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInputFormat, err, "parse gene table %s", path)
	}
	return rows, nil
}

func readTable(r io.Reader, delim rune) (TableRows, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return TableRows(records), nil
}

func inferDelimiter(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ','
	}
	return '\t'
}
