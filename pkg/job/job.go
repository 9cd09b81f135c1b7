// Package job drives one gene list through the Enrichr protocol for a single
// library: submit, verify, enrich, fetch.
//
// Steps run strictly in order. Only the fetch step is retried; a failed
// submit, verify, or enrich ends the job immediately. Fixed pauses after the
// submit and fetch calls keep the request rate polite regardless of outcome.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/goenrichr/pkg/integrations/enrichr"
	"github.com/matzehuels/goenrichr/pkg/table"
)

// API is the subset of the Enrichr client a job needs.
type API interface {
	AddList(ctx context.Context, list, description string) (*enrichr.AddListResponse, error)
	View(ctx context.Context, userListID int64) ([]string, error)
	Enrich(ctx context.Context, userListID int64, library string) error
	Export(ctx context.Context, userListID int64, filename, library string) (string, error)
}

// Logger receives progress records. *log.Logger satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// State is a job's position in the protocol.
type State int

const (
	StatePending State = iota
	StateSubmitted
	StateVerified
	StateEnriched
	StateFetched
	StateFailed
)

var stateNames = [...]string{"pending", "submitted", "verified", "enriched", "fetched", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Job records the server-side identity and progress of one library's
// enrichment. It lives for a single run.
type Job struct {
	Library             string
	Description         string
	UserListID          int64
	ShortID             string
	RecognizedGeneCount int
	SubmittedGeneCount  int
	FetchAttempts       int
	State               State
}

// Result is a completed job and its report.
type Result struct {
	Job   Job
	Table *table.Table
}

// Error carries the job as it stood when a step failed.
type Error struct {
	Job Job
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Job.Library, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Pacing holds the fixed pauses between calls.
type Pacing struct {
	AfterSubmit      time.Duration
	AfterFetch       time.Duration
	BetweenLibraries time.Duration
}

// DefaultPacing matches the public server's documented etiquette.
func DefaultPacing() Pacing {
	return Pacing{
		AfterSubmit:      time.Second,
		AfterFetch:       time.Second,
		BetweenLibraries: 2 * time.Second,
	}
}

// ReportName is the export file name requested from the server for library.
func ReportName(library, description string) string {
	return library + "." + description + ".enrichr.reports"
}
