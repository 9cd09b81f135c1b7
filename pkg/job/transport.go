package job

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/genelist"
	"github.com/matzehuels/goenrichr/pkg/httputil"
	"github.com/matzehuels/goenrichr/pkg/observability"
	"github.com/matzehuels/goenrichr/pkg/table"
)

// Transport runs jobs against an API.
type Transport struct {
	API    API
	Retry  httputil.Policy    // applied to the fetch step only
	Pacing Pacing             // fixed pauses; zero values disable them
	Sleep  httputil.SleepFunc // nil means httputil.Sleep
	Logger Logger             // nil means log.Default()
}

// NewTransport creates a Transport with the default retry policy and pacing.
func NewTransport(api API, logger *log.Logger) *Transport {
	t := &Transport{
		API:    api,
		Retry:  httputil.DefaultPolicy(),
		Pacing: DefaultPacing(),
	}
	if logger != nil {
		t.Logger = logger
	}
	return t
}

// WithLogger returns a copy of t that logs to logger.
func (t *Transport) WithLogger(logger Logger) *Transport {
	c := *t
	c.Logger = logger
	return &c
}

func (t *Transport) logger() Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return log.Default()
}

func (t *Transport) pause(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	return httputil.Sleep(ctx, d)
}

// Run submits payload and retrieves the enrichment report for library.
// On failure the returned error is a [*Error] wrapping a coded error:
// SUBMISSION_FAILED, VERIFICATION_FAILED, ENRICHMENT_FAILED,
// FETCH_RETRY_EXHAUSTED, or FETCH_FAILED.
func (t *Transport) Run(ctx context.Context, payload genelist.Payload, library, description string) (*Result, error) {
	j := Job{Library: library, Description: description, State: StatePending}
	logger := t.logger()
	hooks := observability.Job()

	fail := func(code apperr.Code, err error, format string, args ...any) (*Result, error) {
		j.State = StateFailed
		return nil, &Error{Job: j, Err: apperr.Wrap(code, err, format, args...)}
	}

	// Submit
	start := time.Now()
	resp, err := t.API.AddList(ctx, payload.Text(), description)
	hooks.OnStep(ctx, library, "submit", time.Since(start), err)
	if perr := t.pause(ctx, t.Pacing.AfterSubmit); err == nil {
		err = perr
	}
	if err != nil {
		return fail(apperr.ErrCodeSubmission, err, "submit gene list")
	}
	j.UserListID, j.ShortID = resp.UserListID, resp.ShortID
	j.State = StateSubmitted
	logger.Info("submitted gene list", "library", library, "user_list_id", j.UserListID, "short_id", j.ShortID)

	// Verify
	start = time.Now()
	returned, err := t.API.View(ctx, j.UserListID)
	hooks.OnStep(ctx, library, "verify", time.Since(start), err)
	if err != nil {
		return fail(apperr.ErrCodeVerification, err, "read back gene list %d", j.UserListID)
	}
	genes := payload.Genes()
	j.SubmittedGeneCount = len(genes)
	j.RecognizedGeneCount = countRecognized(genes, returned)
	j.State = StateVerified
	logger.Info("genes successfully recognized by Enrichr", "library", library, "recognized", j.RecognizedGeneCount, "submitted", j.SubmittedGeneCount)

	// Enrich
	start = time.Now()
	err = t.API.Enrich(ctx, j.UserListID, library)
	hooks.OnStep(ctx, library, "enrich", time.Since(start), err)
	if err != nil {
		return fail(apperr.ErrCodeEnrichment, err, "enrich gene list %d", j.UserListID)
	}
	j.State = StateEnriched
	logger.Debug("enrichment computed", "library", library, "user_list_id", j.UserListID)

	// Fetch
	start = time.Now()
	body, err := t.fetch(ctx, &j, logger)
	hooks.OnStep(ctx, library, "fetch", time.Since(start), err)
	if perr := t.pause(ctx, t.Pacing.AfterFetch); err == nil {
		err = perr
	}
	if err != nil {
		if errors.Is(err, httputil.ErrExhausted) {
			return fail(apperr.ErrCodeFetchRetryExhausted, err, "download report after %d attempts", j.FetchAttempts)
		}
		return fail(apperr.ErrCodeFetch, err, "download report")
	}

	tbl, err := table.ReadTSV(strings.NewReader(body))
	if err != nil {
		return fail(apperr.ErrCodeFetch, err, "parse report")
	}
	j.State = StateFetched
	logger.Info("downloaded enrichment report", "library", library, "rows", tbl.Len(), "attempts", j.FetchAttempts)

	return &Result{Job: j, Table: tbl}, nil
}

func (t *Transport) fetch(ctx context.Context, j *Job, logger Logger) (string, error) {
	policy := t.Retry
	if policy.Sleep == nil {
		policy.Sleep = t.Sleep
	}
	attempts := max(policy.MaxAttempts, 1)
	filename := ReportName(j.Library, j.Description)

	var body string
	err := policy.Do(ctx, func(attempt int) error {
		j.FetchAttempts = attempt
		b, err := t.API.Export(ctx, j.UserListID, filename, j.Library)
		observability.Job().OnFetchAttempt(ctx, j.Library, attempt, err)
		if err != nil {
			logger.Warn("report download failed", "library", j.Library, "attempt", attempt, "of", attempts, "error", err)
			return err
		}
		body = b
		return nil
	})
	return body, err
}

func countRecognized(submitted, returned []string) int {
	known := make(map[string]struct{}, len(returned))
	for _, g := range returned {
		known[g] = struct{}{}
	}
	n := 0
	for _, g := range submitted {
		if _, ok := known[g]; ok {
			n++
		}
	}
	return n
}
