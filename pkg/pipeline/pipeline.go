// Package pipeline runs one gene list against a series of Enrichr libraries.
//
// A run moves through four phases:
//
//  1. Normalizing: the input is turned into a single [genelist.Payload]
//  2. Validating: requested libraries are checked against the catalog
//  3. Processing: each library is submitted, fetched, tagged, and persisted
//  4. Done: exporters receive the aggregated table
//
// Libraries are processed strictly in the order they were validated and a
// run never touches the network before at least one library has survived
// validation.
//
// # Usage
//
//	runner := pipeline.NewRunner(resolver, transport, logger)
//	result, err := runner.Run(ctx, pipeline.Options{
//	    Description: "demo",
//	    Libraries:   []string{"KEGG_2021_Human"},
//	    OutDir:      "Enrichr",
//	}, genelist.IdentifierList{"TP53", "BRCA1", "EGFR"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Aggregated.Len())
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/genelist"
	"github.com/matzehuels/goenrichr/pkg/job"
	"github.com/matzehuels/goenrichr/pkg/plot"
	"github.com/matzehuels/goenrichr/pkg/table"
)

const (
	// DefaultDescription names a run when none is given.
	DefaultDescription = "foo"

	// DefaultOutDir is where the CLI writes results unless told otherwise.
	DefaultOutDir = "Enrichr"

	// DefaultCutoff is the adjusted p-value threshold for plotting.
	DefaultCutoff = 0.05

	// DefaultTopTerm is the maximum number of bars per chart.
	DefaultTopTerm = 10

	// DefaultFormat is the chart format.
	DefaultFormat = plot.FormatSVG
)

// Phase is the run's position in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseNormalizing
	PhaseValidating
	PhaseProcessing
	PhaseDone
)

var phaseNames = [...]string{"idle", "normalizing", "validating", "processing", "done"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// FailurePolicy decides what a failed library does to the rest of the run.
type FailurePolicy int

const (
	// Isolate records the failure and moves on to the next library.
	Isolate FailurePolicy = iota
	// FailFast aborts the run on the first failed library and discards
	// the partial aggregate.
	FailFast
)

func (p FailurePolicy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "isolate"
}

// Options configures a single run.
type Options struct {
	Description   string   // empty means DefaultDescription
	Libraries     []string // requested names, in processing order
	OutDir        string   // empty means no persistence and a temporary working directory
	Cutoff        float64  // <= 0 means DefaultCutoff
	Format        string   // empty means DefaultFormat
	TopTerm       int      // <= 0 means DefaultTopTerm
	NoPlot        bool
	FailurePolicy FailurePolicy
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Description == "" {
		o.Description = DefaultDescription
	}
	if err := apperr.ValidateDescription(o.Description); err != nil {
		return err
	}
	if len(o.Libraries) == 0 {
		return apperr.New(apperr.ErrCodeNoValidLibrary, "no libraries requested")
	}
	if o.Cutoff <= 0 {
		o.Cutoff = DefaultCutoff
	}
	if o.Cutoff > 1 {
		return apperr.New(apperr.ErrCodeInvalidInput, "cutoff %g must be in (0, 1]", o.Cutoff)
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if !plot.ValidFormat(o.Format) {
		return apperr.New(apperr.ErrCodeInvalidInput, "unsupported plot format %q", o.Format)
	}
	if o.TopTerm <= 0 {
		o.TopTerm = DefaultTopTerm
	}
	return nil
}

// RunContext is the state a run carries from one phase to the next. Each
// phase returns a new value; nothing mutates a RunContext in place.
type RunContext struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Options   Options
	Payload   genelist.Payload
	Libraries []string // validated, in processing order
	WorkDir   string
	Persist   bool // false when running without an output directory
}

func (rc RunContext) withPayload(p genelist.Payload) RunContext {
	rc.Payload = p
	return rc
}

func (rc RunContext) withLibraries(libs []string) RunContext {
	rc.Libraries = libs
	return rc
}

// LibraryOutcome is the result of processing one library.
type LibraryOutcome struct {
	Library  string
	Job      job.Job
	Rows     int
	Report   string // persisted report path, empty when not persisted
	Plot     string // chart path, empty when skipped
	Err      error
	Duration time.Duration
}

// OK reports whether the library completed.
func (o LibraryOutcome) OK() bool { return o.Err == nil }

// Result is the outcome of a run.
type Result struct {
	RunID      uuid.UUID
	Libraries  []string
	Aggregated *table.Table
	Outcomes   []LibraryOutcome
	Duration   time.Duration
}

// Succeeded returns the number of libraries that completed.
func (r *Result) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the outcomes of libraries that did not complete.
func (r *Result) Failed() []LibraryOutcome {
	var out []LibraryOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// LogName is the run log file name inside the working directory.
func LogName(description string) string {
	return "goenrichr.enrichr." + description + ".log"
}
