// Package library validates requested gene-set library names against the
// Enrichr catalog.
//
// A single requested name from [DefaultLibraries] is accepted without any
// network call. Everything else is checked against the live catalog, which
// [Resolver] caches for a day.
package library

import (
	"slices"
	"sort"
	"strings"
)

// DefaultLibraries are long-lived libraries known to exist on every Enrichr
// deployment.
var DefaultLibraries = NewSet(
	"GO_Biological_Process_2013",
	"GO_Biological_Process_2015",
	"GO_Biological_Process_2023",
	"GO_Cellular_Component_2013",
	"GO_Cellular_Component_2015",
	"GO_Cellular_Component_2023",
	"GO_Molecular_Function_2013",
	"GO_Molecular_Function_2015",
	"GO_Molecular_Function_2023",
	"KEGG_2013",
	"KEGG_2015",
	"KEGG_2016",
	"KEGG_2019_Human",
	"KEGG_2021_Human",
	"Reactome_2013",
	"Reactome_2015",
	"Reactome_2016",
	"Reactome_2022",
	"WikiPathways_2013",
	"WikiPathways_2015",
	"WikiPathways_2016",
	"WikiPathway_2023_Human",
)

// Set is an unordered collection of library names.
type Set map[string]struct{}

// NewSet builds a Set from names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set. A nil Set is empty.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order.
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate returns the requested names present in catalog, in requested
// order, with duplicates removed (first occurrence kept).
func Validate(requested []string, catalog Set) []string {
	var out []string
	for _, name := range requested {
		if catalog.Has(name) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Split turns a comma-separated list into trimmed, non-empty names.
func Split(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Filter returns the names containing substr, case-insensitively.
func Filter(names []string, substr string) []string {
	if substr == "" {
		return names
	}
	needle := strings.ToLower(substr)
	var out []string
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), needle) {
			out = append(out, n)
		}
	}
	return out
}
