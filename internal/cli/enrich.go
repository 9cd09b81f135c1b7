package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/goenrichr/pkg/cache"
	"github.com/matzehuels/goenrichr/pkg/config"
	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/genelist"
	"github.com/matzehuels/goenrichr/pkg/library"
	"github.com/matzehuels/goenrichr/pkg/pipeline"
	"github.com/matzehuels/goenrichr/pkg/sink"
)

// enrichOpts holds the flags of the enrich command. Run settings start from
// the configuration and are overridden only by flags the user set.
type enrichOpts struct {
	genes       string // file or comma-separated identifiers
	table       string // delimited file with 1-3 columns
	libraries   string // comma-separated library names
	description string
	outDir      string
	noOutDir    bool
	cutoff      float64
	format      string
	topTerm     int
	noPlot      bool
	failFast    bool
	xlsx        string
	mongoURI    string
	noCache     bool
	refresh     bool
}

// enrichCommand creates the enrich command.
func (c *CLI) enrichCommand() *cobra.Command {
	def := config.Default()
	opts := enrichOpts{
		description: def.Run.Description,
		outDir:      def.Run.OutDir,
		cutoff:      def.Run.Cutoff,
		format:      def.Run.Format,
		topTerm:     def.Run.TopTerm,
	}

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run an enrichment analysis",
		Long: `Run an enrichment analysis.

The gene list is submitted once per library. For every library that
completes, a report <library>.<description>.enrichr.reports.txt and a bar
chart of the significant terms are written to the output directory.

Examples:
  goenrichr enrich --genes TP53,BRCA1,EGFR -l KEGG_2021_Human
  goenrichr enrich --genes genes.txt -l KEGG_2021_Human,GO_Biological_Process_2023 -d tumour
  goenrichr enrich --table regions.bed -l GO_Biological_Process_2023 --no-outdir --xlsx out.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.genes == "") == (opts.table == "") {
				return apperr.New(apperr.ErrCodeInvalidInput, "exactly one of --genes or --table is required")
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cmd, &cfg)
			return c.runEnrich(cmd.Context(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.genes, "genes", "", "gene list file (one per line) or comma-separated symbols")
	f.StringVar(&opts.table, "table", "", "gene table file: .csv, .tsv or .bed with 1-3 columns")
	f.StringVarP(&opts.libraries, "libraries", "l", "", "comma-separated Enrichr libraries (see 'goenrichr libraries')")
	f.StringVarP(&opts.description, "description", "d", opts.description, "analysis name used in output file names")
	f.StringVarP(&opts.outDir, "outdir", "o", opts.outDir, "output directory")
	f.BoolVar(&opts.noOutDir, "no-outdir", false, "keep results in memory and write nothing")
	f.Float64Var(&opts.cutoff, "cutoff", opts.cutoff, "adjusted p-value cutoff for plots")
	f.StringVar(&opts.format, "format", opts.format, "plot format: svg, png, pdf")
	f.IntVar(&opts.topTerm, "top-term", opts.topTerm, "maximum terms per plot")
	f.BoolVar(&opts.noPlot, "no-plot", false, "skip plots")
	f.BoolVar(&opts.failFast, "fail-fast", false, "abort on the first failed library")
	f.StringVar(&opts.xlsx, "xlsx", "", "also write all results to this Excel workbook")
	f.StringVar(&opts.mongoURI, "mongo-uri", "", "also insert all results into MongoDB")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the catalog cache")
	f.BoolVar(&opts.refresh, "refresh", false, "refetch the library catalog")

	_ = cmd.RegisterFlagCompletionFunc("libraries", completeLibraries)
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	cmd.MarkFlagsMutuallyExclusive("genes", "table")
	cmd.MarkFlagsMutuallyExclusive("outdir", "no-outdir")

	return cmd
}

// apply overlays flags the user set onto cfg.
func (o *enrichOpts) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("libraries") {
		cfg.Run.Libraries = library.Split(o.libraries)
	}
	if f.Changed("description") {
		cfg.Run.Description = o.description
	}
	if f.Changed("outdir") {
		cfg.Run.OutDir = o.outDir
	}
	if o.noOutDir {
		cfg.Run.OutDir = ""
	}
	if f.Changed("cutoff") {
		cfg.Run.Cutoff = o.cutoff
	}
	if f.Changed("format") {
		cfg.Run.Format = o.format
	}
	if f.Changed("top-term") {
		cfg.Run.TopTerm = o.topTerm
	}
	if o.noPlot {
		cfg.Run.NoPlot = true
	}
	if o.failFast {
		cfg.Run.FailFast = true
	}
	if f.Changed("xlsx") {
		cfg.Run.XLSX = o.xlsx
	}
	if f.Changed("mongo-uri") {
		cfg.Mongo.URI = o.mongoURI
	}
}

func (o *enrichOpts) input() (genelist.Input, error) {
	if o.table != "" {
		return genelist.ReadTable(o.table, 0)
	}
	return genelist.Parse(o.genes), nil
}

func (c *CLI) runEnrich(ctx context.Context, cfg config.Config, opts enrichOpts) error {
	in, err := opts.input()
	if err != nil {
		return err
	}

	push := c.installMetrics(cfg)
	defer push(ctx)

	client := newClient(cfg)
	store := c.newCache(ctx, cfg, opts.noCache)
	defer store.Close()
	if opts.refresh {
		if err := store.Delete(ctx, cache.CatalogKey(client.BaseURL())); err != nil {
			c.Logger.Warn("invalidate catalog cache", "error", err)
		}
	}

	runner := pipeline.NewRunner(c.newResolver(client, store, cfg), c.newTransport(client, cfg), c.Logger)
	if cfg.Run.XLSX != "" {
		runner.Exporters = append(runner.Exporters, &sink.XLSXExporter{Path: cfg.Run.XLSX})
	}
	if cfg.Mongo.URI != "" {
		m, err := sink.NewMongoExporter(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return err
		}
		defer m.Close(context.WithoutCancel(ctx))
		runner.Exporters = append(runner.Exporters, m)
	}

	policy := pipeline.Isolate
	if cfg.Run.FailFast {
		policy = pipeline.FailFast
	}

	res, err := runner.Run(ctx, pipeline.Options{
		Description:   cfg.Run.Description,
		Libraries:     cfg.Run.Libraries,
		OutDir:        cfg.Run.OutDir,
		Cutoff:        cfg.Run.Cutoff,
		Format:        cfg.Run.Format,
		TopTerm:       cfg.Run.TopTerm,
		NoPlot:        cfg.Run.NoPlot,
		FailurePolicy: policy,
	}, in)
	if res != nil {
		printNewline()
		printSummary(os.Stdout, res)
		printOutputs(res, cfg)
	}
	if err != nil {
		return err
	}
	if failed := len(res.Failed()); failed > 0 {
		printWarning("%d of %d libraries failed", failed, len(res.Outcomes))
	}
	return nil
}

// printOutputs lists the files a run produced.
func printOutputs(res *pipeline.Result, cfg config.Config) {
	var files []string
	for _, o := range res.Outcomes {
		for _, p := range []string{o.Report, o.Plot} {
			if p != "" {
				files = append(files, p)
			}
		}
	}
	if cfg.Run.XLSX != "" && res.Succeeded() > 0 {
		if _, err := os.Stat(cfg.Run.XLSX); err == nil {
			files = append(files, cfg.Run.XLSX)
		}
	}
	if len(files) == 0 {
		return
	}
	printSuccess("Wrote %d files", len(files))
	for _, f := range files {
		printFile(f)
	}
}

// Hint returns a follow-up suggestion for err, or "" when there is none.
func Hint(err error) string {
	switch {
	case apperr.Is(err, apperr.ErrCodeNoValidLibrary):
		return "list the available libraries with: goenrichr libraries"
	case apperr.Is(err, apperr.ErrCodeCatalogUnavailable):
		return "the library catalog could not be fetched; check connectivity or use a default library"
	case errors.Is(err, context.DeadlineExceeded):
		return "the server was too slow; raise enrichr.export_timeout in the config file"
	}
	return ""
}
