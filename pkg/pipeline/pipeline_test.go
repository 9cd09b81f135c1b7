package pipeline

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/goenrichr/pkg/cache"
	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/genelist"
	"github.com/matzehuels/goenrichr/pkg/httputil"
	"github.com/matzehuels/goenrichr/pkg/integrations/enrichr"
	"github.com/matzehuels/goenrichr/pkg/integrations/enrichr/enrichrtest"
	"github.com/matzehuels/goenrichr/pkg/job"
	"github.com/matzehuels/goenrichr/pkg/library"
	"github.com/matzehuels/goenrichr/pkg/sink"
	"github.com/matzehuels/goenrichr/pkg/table"
)

var genes = genelist.IdentifierList{"TP53", "BRCA1", "EGFR"}

type sleepRecorder struct{ slept []time.Duration }

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

func newTestRunner(t *testing.T, srv *enrichrtest.Server) (*Runner, *sleepRecorder) {
	t.Helper()
	logger := log.New(io.Discard)
	rec := &sleepRecorder{}
	client := enrichr.NewClient(enrichr.Options{BaseURL: srv.URL, RateLimit: -1, HTTPClient: srv.Client()})

	resolver := &library.Resolver{Source: client, Cache: cache.NewNullCache(), Logger: logger}
	transport := &job.Transport{
		API:    client,
		Retry:  httputil.Policy{MaxAttempts: 5},
		Pacing: job.DefaultPacing(),
		Sleep:  httputil.NoSleep,
		Logger: logger,
	}
	r := NewRunner(resolver, transport, logger)
	r.Sleep = rec.Sleep
	return r, rec
}

type recordingExporter struct {
	info sink.RunInfo
	rows int
}

func (e *recordingExporter) Name() string { return "recording" }

func (e *recordingExporter) Export(_ context.Context, info sink.RunInfo, agg *table.Table) error {
	e.info, e.rows = info, agg.Len()
	return nil
}

func datasets(t *table.Table) []string {
	return t.Column(table.ColDataset)
}

func TestRunSingleLibrary(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	r, _ := newTestRunner(t, srv)
	out := t.TempDir()

	res, err := r.Run(context.Background(), Options{
		Description: "demo",
		Libraries:   []string{"KEGG_2021_Human"},
		OutDir:      out,
	}, genes)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.Aggregated.Len() != 2 {
		t.Fatalf("aggregated rows = %d, want 2", res.Aggregated.Len())
	}
	for i, d := range datasets(res.Aggregated) {
		if d != "KEGG_2021_Human" {
			t.Errorf("row %d dataset = %q", i, d)
		}
	}

	report := filepath.Join(out, "KEGG_2021_Human.demo.enrichr.reports.txt")
	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 3 {
		t.Errorf("report has %d lines, want header + 2", lines)
	}
	if res.Outcomes[0].Report != report {
		t.Errorf("outcome report = %q, want %q", res.Outcomes[0].Report, report)
	}

	for _, name := range []string{"KEGG_2021_Human.demo.enrichr.reports.svg", LogName("demo")} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	// A single default library needs no catalog lookup.
	if n := srv.Calls(enrichrtest.EndpointCatalog); n != 0 {
		t.Errorf("catalog calls = %d, want 0", n)
	}
}

func TestRunLogIncludesJobProgress(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	srv.FailNext(enrichrtest.EndpointExport, 1, http.StatusServiceUnavailable)
	r, _ := newTestRunner(t, srv)
	out := t.TempDir()

	_, err := r.Run(context.Background(), Options{
		Description: "demo",
		Libraries:   []string{"KEGG_2021_Human", "Not_A_Library"},
		OutDir:      out,
		NoPlot:      true,
	}, genes)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, LogName("demo")))
	if err != nil {
		t.Fatalf("run log missing: %v", err)
	}
	for _, want := range []string{
		"not an Enrichr library",
		"submitted gene list",
		"genes successfully recognized by Enrichr",
		"report download failed",
		"downloaded enrichment report",
		"run complete",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("run log lacks %q", want)
		}
	}

	if r.Transport.Logger != r.Logger || r.Resolver.Logger != r.Logger {
		t.Error("run-scoped logger leaked into the shared transport or resolver")
	}
}

func TestRunInvalidLibrarySubmitsNothing(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	r, _ := newTestRunner(t, srv)

	res, err := r.Run(context.Background(), Options{
		Libraries: []string{"NotARealLibrary"},
		OutDir:    t.TempDir(),
	}, genes)
	if !apperr.Is(err, apperr.ErrCodeNoValidLibrary) {
		t.Fatalf("Run() error = %v, want NO_VALID_LIBRARY", err)
	}
	if res != nil {
		t.Error("expected no result")
	}
	if n := srv.Calls(enrichrtest.EndpointAddList); n != 0 {
		t.Errorf("addList calls = %d, want 0", n)
	}
}

func TestRunPreservesLibraryOrder(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	srv.SetCatalog("A", "B", "C")
	srv.SetResult("A", "Term\tAdjusted P-value\na1\t0.01\na2\t0.02\n")
	srv.SetResult("B", "Term\tAdjusted P-value\nb1\t0.03\n")
	r, rec := newTestRunner(t, srv)
	exp := &recordingExporter{}
	r.Exporters = []sink.Exporter{exp}

	res, err := r.Run(context.Background(), Options{Libraries: []string{"A", "B", "A"}}, genes)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []string{"A", "A", "B"}
	if got := datasets(res.Aggregated); !reflect.DeepEqual(got, want) {
		t.Errorf("datasets = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(res.Libraries, []string{"A", "B"}) {
		t.Errorf("libraries = %v", res.Libraries)
	}
	if !reflect.DeepEqual(rec.slept, []time.Duration{2 * time.Second}) {
		t.Errorf("between-library pauses = %v, want [2s]", rec.slept)
	}

	var libs []string
	for _, req := range srv.Requests() {
		if req.Endpoint == enrichrtest.EndpointExport {
			libs = append(libs, req.Library)
		}
	}
	if !reflect.DeepEqual(libs, []string{"A", "B"}) {
		t.Errorf("export order = %v", libs)
	}

	if exp.rows != 3 || exp.info.RunID != res.RunID.String() {
		t.Errorf("exporter got %d rows for run %q", exp.rows, exp.info.RunID)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	srv.FailNext(enrichrtest.EndpointEnrich, 1, 500)
	r, _ := newTestRunner(t, srv)

	res, err := r.Run(context.Background(), Options{
		Libraries: []string{"KEGG_2021_Human", "Reactome_2022"},
	}, genes)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Succeeded() != 1 {
		t.Errorf("Succeeded() = %d, want 1", res.Succeeded())
	}
	failed := res.Failed()
	if len(failed) != 1 || failed[0].Library != "KEGG_2021_Human" {
		t.Fatalf("Failed() = %+v", failed)
	}
	if !apperr.Is(failed[0].Err, apperr.ErrCodeEnrichment) {
		t.Errorf("failure = %v, want ENRICHMENT_FAILED", failed[0].Err)
	}
	if failed[0].Job.State != job.StateFailed {
		t.Errorf("failed job state = %v", failed[0].Job.State)
	}
	for _, d := range datasets(res.Aggregated) {
		if d != "Reactome_2022" {
			t.Errorf("unexpected dataset %q", d)
		}
	}
}

func TestRunFailFast(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	srv.FailNext(enrichrtest.EndpointEnrich, 1, 500)
	r, _ := newTestRunner(t, srv)

	res, err := r.Run(context.Background(), Options{
		Libraries:     []string{"KEGG_2021_Human", "Reactome_2022"},
		FailurePolicy: FailFast,
	}, genes)
	if !apperr.Is(err, apperr.ErrCodeEnrichment) {
		t.Fatalf("Run() error = %v, want ENRICHMENT_FAILED", err)
	}
	if res != nil {
		t.Error("partial result should be discarded")
	}
	if n := srv.Calls(enrichrtest.EndpointAddList); n != 1 {
		t.Errorf("addList calls = %d, want 1", n)
	}
}

func TestRunAllLibrariesFailed(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	srv.FailNext(enrichrtest.EndpointAddList, -1, 500)
	r, _ := newTestRunner(t, srv)

	res, err := r.Run(context.Background(), Options{
		Libraries: []string{"KEGG_2021_Human", "Reactome_2022"},
	}, genes)
	if !apperr.Is(err, apperr.ErrCodeAllLibrariesFailed) {
		t.Fatalf("Run() error = %v, want ALL_LIBRARIES_FAILED", err)
	}
	if res == nil || len(res.Failed()) != 2 {
		t.Fatalf("expected two failed outcomes, got %+v", res)
	}
	if res.Aggregated.Len() != 0 {
		t.Errorf("aggregated rows = %d, want 0", res.Aggregated.Len())
	}
}

func TestRunRemovesWorkDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	srv := enrichrtest.NewServer()
	defer srv.Close()
	r, _ := newTestRunner(t, srv)

	if _, err := r.Run(context.Background(), Options{Libraries: []string{"KEGG_2021_Human"}}, genes); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := r.Run(context.Background(), Options{Libraries: []string{"Nope"}}, genes); err == nil {
		t.Fatal("Run() with unknown library should fail")
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("working directories left behind: %v", entries)
	}
}

func TestRunInputFormat(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	r, _ := newTestRunner(t, srv)

	_, err := r.Run(context.Background(), Options{Libraries: []string{"KEGG_2021_Human"}}, genelist.IdentifierList{})
	if !apperr.Is(err, apperr.ErrCodeInputFormat) {
		t.Errorf("Run() error = %v, want INPUT_FORMAT", err)
	}
	if len(srv.Requests()) != 0 {
		t.Errorf("requests = %v, want none", srv.Requests())
	}
}

func TestRunCancelled(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	r, _ := newTestRunner(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, Options{Libraries: []string{"KEGG_2021_Human", "Reactome_2022"}}, genes)
	if err == nil {
		t.Fatal("Run() should fail when cancelled")
	}
	if n := srv.Calls(enrichrtest.EndpointAddList); n > 1 {
		t.Errorf("addList calls = %d after cancellation", n)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr apperr.Code
	}{
		{"defaults", Options{Libraries: []string{"KEGG_2021_Human"}}, ""},
		{"no libraries", Options{}, apperr.ErrCodeNoValidLibrary},
		{"cutoff above one", Options{Libraries: []string{"x"}, Cutoff: 1.5}, apperr.ErrCodeInvalidInput},
		{"bad format", Options{Libraries: []string{"x"}, Format: "gif"}, apperr.ErrCodeInvalidInput},
		{"path in description", Options{Libraries: []string{"x"}, Description: "../up"}, apperr.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperr.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %s", err, tt.wantErr)
			}
		})
	}

	o := Options{Libraries: []string{"x"}}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Description != DefaultDescription || o.Cutoff != DefaultCutoff || o.Format != DefaultFormat || o.TopTerm != DefaultTopTerm {
		t.Errorf("defaults not applied: %+v", o)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseProcessing.String() != "processing" || Phase(42).String() != "Phase(42)" {
		t.Error("unexpected Phase strings")
	}
	if FailFast.String() != "fail-fast" || Isolate.String() != "isolate" {
		t.Error("unexpected FailurePolicy strings")
	}
}
