package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/goenrichr/pkg/config"
	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/integrations/enrichr/enrichrtest"
	"github.com/matzehuels/goenrichr/pkg/pipeline"
)

// setupEnv points configuration, cache and the Enrichr base URL at test
// locations and removes all pacing.
func setupEnv(t *testing.T, srv *enrichrtest.Server) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("GOENRICHR_ENRICHR_BASE_URL", srv.URL)
	t.Setenv("GOENRICHR_ENRICHR_RATE_LIMIT", "-1")
	t.Setenv("GOENRICHR_PACING_AFTER_SUBMIT", "0s")
	t.Setenv("GOENRICHR_PACING_AFTER_FETCH", "0s")
	t.Setenv("GOENRICHR_PACING_BETWEEN_LIBRARIES", "0s")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandWiring(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	for _, name := range []string{"enrich", "libraries", "cache", "config", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag missing")
	}

	enrich, _, _ := root.Find([]string{"enrich"})
	for _, flag := range []string{
		"genes", "table", "libraries", "description", "outdir", "no-outdir", "cutoff",
		"format", "top-term", "no-plot", "fail-fast", "xlsx", "mongo-uri", "no-cache", "refresh",
	} {
		if enrich.Flags().Lookup(flag) == nil {
			t.Errorf("enrich --%s missing", flag)
		}
	}
	if f := enrich.Flags().ShorthandLookup("l"); f == nil || f.Name != "libraries" {
		t.Error("-l should be --libraries")
	}
}

func TestEnrichCommand(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)
	out := t.TempDir()

	_, err := execute(t, "enrich",
		"--genes", "TP53,BRCA1,EGFR",
		"-l", "KEGG_2021_Human",
		"-d", "demo",
		"-o", out,
		"--no-plot")
	if err != nil {
		t.Fatalf("enrich error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(out, "KEGG_2021_Human.demo.enrichr.reports.txt")); err != nil {
		t.Errorf("report missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "KEGG_2021_Human.demo.enrichr.reports.svg")); err == nil {
		t.Error("--no-plot still wrote a chart")
	}
}

func TestEnrichCommandRedisUnavailable(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)
	t.Setenv("GOENRICHR_CACHE_REDIS_URL", "redis://127.0.0.1:1/0")
	out := t.TempDir()

	_, err := execute(t, "enrich", "--genes", "TP53,EGFR", "-l", "KEGG_2021_Human", "-o", out, "--no-plot")
	if err != nil {
		t.Fatalf("enrich error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "KEGG_2021_Human.foo.enrichr.reports.txt")); err != nil {
		t.Errorf("report missing: %v", err)
	}
}

func TestEnrichCommandMissingGeneFile(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	_, err := execute(t, "enrich", "--genes", filepath.Join(t.TempDir(), "my_genes.txt"), "-l", "KEGG_2021_Human", "--no-outdir")
	if !apperr.Is(err, apperr.ErrCodeInputFormat) {
		t.Fatalf("enrich error = %v, want INPUT_FORMAT", err)
	}
	if n := srv.Calls(enrichrtest.EndpointAddList); n != 0 {
		t.Errorf("addList calls = %d, want 0", n)
	}
}

func TestEnrichCommandWithXLSXAndTable(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)
	dir := t.TempDir()

	bed := filepath.Join(dir, "regions.bed")
	os.WriteFile(bed, []byte("chr17\t7668402\t7687550\nchr7\t55019017\t55211628\n"), 0o644)
	xlsx := filepath.Join(dir, "all.xlsx")

	_, err := execute(t, "enrich",
		"--table", bed,
		"-l", "KEGG_2021_Human,Reactome_2022",
		"--no-outdir",
		"--xlsx", xlsx)
	if err != nil {
		t.Fatalf("enrich error: %v", err)
	}
	if _, err := os.Stat(xlsx); err != nil {
		t.Errorf("workbook missing: %v", err)
	}
}

func TestEnrichCommandInvalidLibrary(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	_, err := execute(t, "enrich", "--genes", "TP53", "-l", "NotARealLibrary", "--no-outdir")
	if !apperr.Is(err, apperr.ErrCodeNoValidLibrary) {
		t.Fatalf("error = %v, want NO_VALID_LIBRARY", err)
	}
	if !strings.Contains(Hint(err), "goenrichr libraries") {
		t.Errorf("Hint() = %q", Hint(err))
	}
	if n := srv.Calls(enrichrtest.EndpointAddList); n != 0 {
		t.Errorf("addList calls = %d, want 0", n)
	}
}

func TestEnrichCommandRequiresInput(t *testing.T) {
	srv := enrichrtest.NewServer()
	defer srv.Close()
	setupEnv(t, srv)

	_, err := execute(t, "enrich", "-l", "KEGG_2021_Human")
	if !apperr.Is(err, apperr.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
	if _, err := execute(t, "enrich", "--genes", "TP53", "--table", "x.csv", "-l", "KEGG_2021_Human"); err == nil {
		t.Error("--genes with --table should fail")
	}
}

func TestEnrichOptsApply(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd := c.enrichCommand()
	if err := cmd.ParseFlags([]string{"-l", "A, B", "--cutoff", "0.01", "--no-outdir", "--fail-fast"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Run.TopTerm = 3
	opts := enrichOptsOf(t, cmd)
	opts.apply(cmd, &cfg)

	if strings.Join(cfg.Run.Libraries, "|") != "A|B" {
		t.Errorf("libraries = %v", cfg.Run.Libraries)
	}
	if cfg.Run.Cutoff != 0.01 || cfg.Run.OutDir != "" || !cfg.Run.FailFast {
		t.Errorf("run config = %+v", cfg.Run)
	}
	if cfg.Run.TopTerm != 3 {
		t.Errorf("unset --top-term overrode config: %d", cfg.Run.TopTerm)
	}
}

// enrichOptsOf reads the parsed flag values back into an enrichOpts.
func enrichOptsOf(t *testing.T, cmd *cobra.Command) *enrichOpts {
	t.Helper()
	f := cmd.Flags()
	o := &enrichOpts{}
	o.libraries, _ = f.GetString("libraries")
	o.cutoff, _ = f.GetFloat64("cutoff")
	o.noOutDir, _ = f.GetBool("no-outdir")
	o.failFast, _ = f.GetBool("fail-fast")
	o.topTerm, _ = f.GetInt("top-term")
	return o
}

func TestHint(t *testing.T) {
	if Hint(apperr.New(apperr.ErrCodeSubmission, "x")) != "" {
		t.Error("submission failures have no hint")
	}
	if Hint(apperr.New(apperr.ErrCodeCatalogUnavailable, "x")) == "" {
		t.Error("catalog failures should have a hint")
	}
}

func TestPrintSummary(t *testing.T) {
	res := &pipeline.Result{
		Outcomes: []pipeline.LibraryOutcome{
			{Library: "KEGG_2021_Human", Rows: 2},
			{Library: "Reactome_2022", Err: apperr.New(apperr.ErrCodeEnrichment, "request enrichment")},
		},
	}
	var buf bytes.Buffer
	printSummary(&buf, res)
	got := buf.String()

	for _, want := range []string{"KEGG_2021_Human", "Reactome_2022", "ENRICHMENT_FAILED", "1 succeeded"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestConfigShow(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[enrichr]") || !strings.Contains(out, "maayanlab.cloud") {
		t.Errorf("config show output = %q", out)
	}
}

func TestCompleteLibraries(t *testing.T) {
	got, _ := completeLibraries(nil, nil, "KEGG_2021_Human,reactome_2022")
	if len(got) != 1 || got[0] != "KEGG_2021_Human,Reactome_2022" {
		t.Errorf("completeLibraries() = %v", got)
	}
}
