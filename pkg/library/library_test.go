package library

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/goenrichr/pkg/cache"
	apperr "github.com/matzehuels/goenrichr/pkg/errors"
)

type fakeSource struct {
	names []string
	err   error
	calls int
}

func (f *fakeSource) Libraries(context.Context) ([]string, error) {
	f.calls++
	return f.names, f.err
}

func (f *fakeSource) BaseURL() string { return "http://enrichr.test" }

func quietLogger() *log.Logger { return log.New(io.Discard) }

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		catalog   Set
		want      []string
	}{
		{"duplicates collapse", []string{"KEGG", "KEGG", "GO"}, NewSet("KEGG"), []string{"KEGG"}},
		{"requested order kept", []string{"B", "A", "C"}, NewSet("A", "B", "C"), []string{"B", "A", "C"}},
		{"none valid", []string{"X"}, NewSet("A"), nil},
		{"empty request", nil, NewSet("A"), nil},
		{"nil catalog", []string{"A"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.requested, tt.catalog); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	got := Split(" KEGG_2021_Human , ,GO_Biological_Process_2023,")
	want := []string{"KEGG_2021_Human", "GO_Biological_Process_2023"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %v, want %v", got, want)
	}
	if Split("") != nil {
		t.Error("Split(\"\") should be nil")
	}
}

func TestFilter(t *testing.T) {
	names := []string{"KEGG_2021_Human", "GO_Biological_Process_2023", "kegg_legacy"}
	if got := Filter(names, "KEGG"); !reflect.DeepEqual(got, []string{"KEGG_2021_Human", "kegg_legacy"}) {
		t.Errorf("Filter() = %v", got)
	}
	if got := Filter(names, ""); len(got) != 3 {
		t.Errorf("Filter(\"\") = %v, want all", got)
	}
}

func TestSetSorted(t *testing.T) {
	if got := NewSet("b", "a", "c").Sorted(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Sorted() = %v", got)
	}
}

func TestResolveSingleDefaultSkipsNetwork(t *testing.T) {
	src := &fakeSource{err: errors.New("should not be called")}
	r := &Resolver{Source: src, Logger: quietLogger()}

	got, err := r.Resolve(context.Background(), []string{"KEGG_2021_Human"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"KEGG_2021_Human"}) {
		t.Errorf("Resolve() = %v", got)
	}
	if src.calls != 0 {
		t.Errorf("catalog fetched %d times, want 0", src.calls)
	}
}

func TestResolveAgainstCatalog(t *testing.T) {
	src := &fakeSource{names: []string{"A", "B", "Custom_Lib"}}
	r := &Resolver{Source: src, Logger: quietLogger()}

	got, err := r.Resolve(context.Background(), []string{"Custom_Lib", "Nope", "A", "Custom_Lib"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if want := []string{"Custom_Lib", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveNoValidLibrary(t *testing.T) {
	src := &fakeSource{names: []string{"A"}}
	r := &Resolver{Source: src, Logger: quietLogger()}

	_, err := r.Resolve(context.Background(), []string{"Nope"})
	if !apperr.Is(err, apperr.ErrCodeNoValidLibrary) {
		t.Fatalf("Resolve() error = %v, want NO_VALID_LIBRARY", err)
	}
}

func TestResolveUnsafeNamesDropped(t *testing.T) {
	src := &fakeSource{names: []string{"A"}}
	r := &Resolver{Source: src, Logger: quietLogger()}

	_, err := r.Resolve(context.Background(), []string{"../etc/passwd", ""})
	if !apperr.Is(err, apperr.ErrCodeNoValidLibrary) {
		t.Fatalf("Resolve() error = %v, want NO_VALID_LIBRARY", err)
	}
	if src.calls != 0 {
		t.Error("catalog should not be fetched when no name is usable")
	}
}

func TestResolveCatalogUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	r := &Resolver{Source: src, Logger: quietLogger()}

	_, err := r.Resolve(context.Background(), []string{"Custom_Lib", "KEGG_2021_Human"})
	if !apperr.Is(err, apperr.ErrCodeCatalogUnavailable) {
		t.Fatalf("Resolve() error = %v, want CATALOG_UNAVAILABLE", err)
	}
	if src.calls != 1 {
		t.Errorf("catalog fetched %d times, want exactly 1 (no retry)", src.calls)
	}
}

func TestResolveCatalogUnavailableDefaultsOnly(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	r := &Resolver{Source: src, Logger: quietLogger()}

	got, err := r.Resolve(context.Background(), []string{"KEGG_2021_Human", "Reactome_2022", "KEGG_2021_Human"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if want := []string{"KEGG_2021_Human", "Reactome_2022"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestCatalogEmptyIsUnavailable(t *testing.T) {
	r := &Resolver{Source: &fakeSource{}, Logger: quietLogger()}
	if _, err := r.Catalog(context.Background(), false); !apperr.Is(err, apperr.ErrCodeCatalogUnavailable) {
		t.Errorf("Catalog() error = %v, want CATALOG_UNAVAILABLE", err)
	}
}

func TestCatalogCached(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{names: []string{"A", "B"}}
	r := &Resolver{Source: src, Cache: c, TTL: time.Hour, Logger: quietLogger()}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := r.Catalog(ctx, false)
		if err != nil {
			t.Fatalf("Catalog() error: %v", err)
		}
		if !reflect.DeepEqual(got, []string{"A", "B"}) {
			t.Errorf("Catalog() = %v", got)
		}
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}

	src.names = []string{"C"}
	got, _ := r.Catalog(ctx, true)
	if !reflect.DeepEqual(got, []string{"C"}) || src.calls != 2 {
		t.Errorf("Catalog(refresh) = %v after %d calls", got, src.calls)
	}
}

func TestCatalogCacheExpires(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	src := &fakeSource{names: []string{"A"}}
	r := &Resolver{Source: src, Cache: c, TTL: 10 * time.Millisecond, Logger: quietLogger()}
	ctx := context.Background()

	r.Catalog(ctx, false)
	time.Sleep(20 * time.Millisecond)
	r.Catalog(ctx, false)
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2 after expiry", src.calls)
	}
}
