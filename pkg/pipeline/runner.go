package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/genelist"
	"github.com/matzehuels/goenrichr/pkg/httputil"
	"github.com/matzehuels/goenrichr/pkg/job"
	"github.com/matzehuels/goenrichr/pkg/library"
	"github.com/matzehuels/goenrichr/pkg/observability"
	"github.com/matzehuels/goenrichr/pkg/plot"
	"github.com/matzehuels/goenrichr/pkg/sink"
	"github.com/matzehuels/goenrichr/pkg/table"
)

// Runner executes runs. It holds no per-run state, so one Runner can serve
// any number of sequential runs.
type Runner struct {
	Resolver  *library.Resolver
	Transport *job.Transport
	Sink      sink.Sink          // nil means sink.FileSink{}
	Plotter   plot.Plotter       // nil means plot.BarPlotter{}
	Exporters []sink.Exporter    // receive the aggregate once per run
	Sleep     httputil.SleepFunc // nil means httputil.Sleep
	Logger    *log.Logger        // nil means log.Default()
}

// NewRunner creates a runner with the file sink and bar plotter.
func NewRunner(resolver *library.Resolver, transport *job.Transport, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Resolver:  resolver,
		Transport: transport,
		Sink:      sink.FileSink{},
		Plotter:   plot.BarPlotter{},
		Logger:    logger,
	}
}

// Run normalizes in, validates opts.Libraries and processes each surviving
// library in order.
//
// With the Isolate policy a failed library is recorded in its outcome and
// the run continues; Run then returns the partial result together with an
// ALL_LIBRARIES_FAILED error only if no library completed. With FailFast
// the first failure is returned and no result is produced. Exporter failures
// are returned alongside the result.
func (r *Runner) Run(ctx context.Context, opts Options, in genelist.Input) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	rc := RunContext{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		Options:   opts,
		Persist:   opts.OutDir != "",
	}
	hooks := observability.Run()
	runID := rc.RunID.String()

	workDir, cleanup, err := r.prepareWorkDir(rc)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	rc.WorkDir = workDir

	logger, closeLog := r.openRunLog(rc)
	defer closeLog()

	// Normalizing
	hooks.OnPhase(ctx, runID, PhaseNormalizing.String())
	payload, err := genelist.Normalize(in)
	if err != nil {
		return nil, err
	}
	rc = rc.withPayload(payload)
	logger.Debug("normalized gene list", "records", payload.Len())

	// Validating
	hooks.OnPhase(ctx, runID, PhaseValidating.String())
	libs, err := r.Resolver.WithLogger(logger).Resolve(ctx, opts.Libraries)
	if err != nil {
		return nil, err
	}
	rc = rc.withLibraries(libs)

	// Processing
	hooks.OnPhase(ctx, runID, PhaseProcessing.String())
	hooks.OnRunStart(ctx, runID, len(libs))
	logger.Info("starting run",
		"run_id", runID,
		"description", opts.Description,
		"libraries", len(libs),
		"genes", payload.Len())

	res := &Result{RunID: rc.RunID, Libraries: libs}
	agg := table.NewAggregate()
	transport := r.Transport.WithLogger(logger)

	for i, lib := range libs {
		outcome, tagged := r.processLibrary(ctx, rc, transport, lib, logger)
		res.Outcomes = append(res.Outcomes, outcome)
		hooks.OnLibraryComplete(ctx, lib, outcome.Rows, outcome.Duration, outcome.Err)

		if outcome.Err != nil {
			logger.Error("library failed", "library", lib, "error", outcome.Err)
			if opts.FailurePolicy == FailFast {
				r.finish(ctx, rc, res, logger)
				return nil, outcome.Err
			}
			if ctx.Err() != nil {
				r.finish(ctx, rc, res, logger)
				return nil, ctx.Err()
			}
		} else {
			agg.Append(tagged)
		}

		if i < len(libs)-1 {
			if err := r.pause(ctx, r.Transport.Pacing.BetweenLibraries); err != nil {
				r.finish(ctx, rc, res, logger)
				return nil, err
			}
		}
	}
	res.Aggregated = agg.Table()

	// Done
	r.finish(ctx, rc, res, logger)
	if res.Succeeded() == 0 {
		return res, apperr.Wrap(apperr.ErrCodeAllLibrariesFailed, res.Failed()[0].Err,
			"all %d libraries failed", len(libs))
	}
	return res, r.export(ctx, rc, res.Aggregated, logger)
}

// processLibrary runs one job and, on success, persists and plots the
// tagged table.
func (r *Runner) processLibrary(ctx context.Context, rc RunContext, transport *job.Transport, lib string, logger runLogger) (LibraryOutcome, *table.Table) {
	start := time.Now()
	opts := rc.Options
	logger.Info("analysis", "description", opts.Description, "library", lib)

	jr, err := transport.Run(ctx, rc.Payload, lib, opts.Description)
	if err != nil {
		out := LibraryOutcome{Library: lib, Err: err, Duration: time.Since(start)}
		var jerr *job.Error
		if errors.As(err, &jerr) {
			out.Job = jerr.Job
		}
		return out, nil
	}

	tagged := jr.Table.WithDataset(lib)
	out := LibraryOutcome{Library: lib, Job: jr.Job, Rows: tagged.Len()}
	logger.Info("fetched results",
		"library", lib,
		"rows", tagged.Len(),
		"recognized", fmt.Sprintf("%d/%d", jr.Job.RecognizedGeneCount, jr.Job.SubmittedGeneCount))

	if rc.Persist {
		path := sink.ReportPath(rc.WorkDir, lib, opts.Description)
		if err := r.sink().Persist(ctx, tagged, path); err != nil {
			out.Err = fmt.Errorf("%s: %w", lib, err)
			out.Duration = time.Since(start)
			return out, nil
		}
		out.Report = path

		if !opts.NoPlot {
			out.Plot = r.plot(tagged, rc, lib, logger)
		}
	}
	out.Duration = time.Since(start)
	return out, tagged
}

// plot renders the chart for one library. Chart problems never fail the
// library; they are logged and the chart is skipped.
func (r *Runner) plot(t *table.Table, rc RunContext, lib string, logger runLogger) string {
	opts := rc.Options
	img, err := r.plotter().Plot(t, plot.Options{
		Cutoff:  opts.Cutoff,
		TopTerm: opts.TopTerm,
		Format:  opts.Format,
		Title:   lib,
	})
	if errors.Is(err, plot.ErrNoEnrichedTerms) {
		logger.Warn("no enriched terms", "library", lib, "cutoff", opts.Cutoff)
		return ""
	}
	if err != nil {
		logger.Warn("plot failed", "library", lib, "error", err)
		return ""
	}

	path := strings.TrimSuffix(sink.ReportPath(rc.WorkDir, lib, opts.Description), ".txt") + "." + strings.ToLower(opts.Format)
	if err := os.WriteFile(path, img, 0o644); err != nil {
		logger.Warn("write plot failed", "path", path, "error", err)
		return ""
	}
	return path
}

func (r *Runner) export(ctx context.Context, rc RunContext, agg *table.Table, logger runLogger) error {
	if len(r.Exporters) == 0 {
		return nil
	}
	info := sink.RunInfo{
		RunID:       rc.RunID.String(),
		Description: rc.Options.Description,
		Libraries:   rc.Libraries,
		StartedAt:   rc.StartedAt,
	}
	var errs []error
	for _, e := range r.Exporters {
		if err := e.Export(ctx, info, agg); err != nil {
			logger.Error("export failed", "exporter", e.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		logger.Info("exported results", "exporter", e.Name(), "rows", agg.Len())
	}
	return errors.Join(errs...)
}

func (r *Runner) finish(ctx context.Context, rc RunContext, res *Result, logger runLogger) {
	res.Duration = time.Since(rc.StartedAt)
	failed := len(res.Failed())
	observability.Run().OnPhase(ctx, rc.RunID.String(), PhaseDone.String())
	observability.Run().OnRunComplete(ctx, rc.RunID.String(), res.Succeeded(), failed, res.Duration)
	logger.Info("run complete",
		"succeeded", res.Succeeded(),
		"failed", failed,
		"duration", res.Duration.Round(time.Millisecond))
}

// prepareWorkDir creates the output directory, or a temporary one removed
// by the returned cleanup when no output directory was requested.
func (r *Runner) prepareWorkDir(rc RunContext) (string, func(), error) {
	if rc.Persist {
		if err := os.MkdirAll(rc.Options.OutDir, 0o755); err != nil {
			return "", nil, apperr.Wrap(apperr.ErrCodePersist, err, "create output directory %s", rc.Options.OutDir)
		}
		return rc.Options.OutDir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "goenrichr-"+rc.RunID.String())
	if err != nil {
		return "", nil, apperr.Wrap(apperr.ErrCodeInternal, err, "create working directory")
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger().Warn("remove working directory", "dir", dir, "error", err)
		}
	}, nil
}

// openRunLog returns a logger that writes to both the runner's logger and
// the run log file in the working directory. The resolver and transport log
// through it for the duration of the run.
func (r *Runner) openRunLog(rc RunContext) (runLogger, func()) {
	path := filepath.Join(rc.WorkDir, LogName(rc.Options.Description))
	f, err := os.Create(path)
	if err != nil {
		r.logger().Warn("run log unavailable", "path", path, "error", err)
		return runLogger{r.logger()}, func() {}
	}
	file := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           log.DebugLevel,
	})
	return runLogger{r.logger(), file}, func() { f.Close() }
}

func (r *Runner) pause(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return httputil.Sleep(ctx, d)
}

func (r *Runner) sink() sink.Sink {
	if r.Sink != nil {
		return r.Sink
	}
	return sink.FileSink{}
}

func (r *Runner) plotter() plot.Plotter {
	if r.Plotter != nil {
		return r.Plotter
	}
	return plot.BarPlotter{}
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// runLogger fans each record out to several loggers.
type runLogger []*log.Logger

func (l runLogger) Debug(msg any, kv ...any) {
	for _, lg := range l {
		lg.Debug(msg, kv...)
	}
}

func (l runLogger) Info(msg any, kv ...any) {
	for _, lg := range l {
		lg.Info(msg, kv...)
	}
}

func (l runLogger) Warn(msg any, kv ...any) {
	for _, lg := range l {
		lg.Warn(msg, kv...)
	}
}

func (l runLogger) Error(msg any, kv ...any) {
	for _, lg := range l {
		lg.Error(msg, kv...)
	}
}
