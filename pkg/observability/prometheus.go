package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "goenrichr"

// Prometheus implements every hook interface by recording into a private
// registry. A CLI run is short-lived, so metrics are delivered with [Prometheus.Push]
// rather than scraped.
type Prometheus struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	libraries     *prometheus.CounterVec
	libraryRows   prometheus.Counter
	steps         *prometheus.HistogramVec
	fetchAttempts *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewPrometheus creates a Prometheus hook set with its own registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Enrichment runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		libraries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "libraries_total",
			Help:      "Library jobs by outcome.",
		}, []string{"outcome"}),
		libraryRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_rows_total",
			Help:      "Result rows fetched across all libraries.",
		}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_step_duration_seconds",
			Help:      "Duration of job protocol steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "outcome"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Export download attempts by outcome.",
		}, []string{"outcome"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses, and writes by key type.",
		}, []string{"event", "key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Outgoing HTTP requests by path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Outgoing HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	p.registry.MustRegister(
		p.runs, p.runDuration, p.libraries, p.libraryRows, p.steps,
		p.fetchAttempts, p.cacheEvents, p.httpRequests, p.httpDuration,
	)
	return p
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Push sends all collected metrics to a Pushgateway under the given job name.
func (p *Prometheus) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(p.registry).PushContext(ctx)
}

// Install registers p for every hook category.
func (p *Prometheus) Install() {
	SetRunHooks(p)
	SetJobHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnRunStart(context.Context, string, int) {}

func (p *Prometheus) OnPhase(context.Context, string, string) {}

func (p *Prometheus) OnLibraryComplete(_ context.Context, _ string, rows int, _ time.Duration, err error) {
	p.libraries.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		p.libraryRows.Add(float64(rows))
	}
}

func (p *Prometheus) OnRunComplete(_ context.Context, _ string, succeeded, _ int, d time.Duration) {
	result := "ok"
	if succeeded == 0 {
		result = "error"
	}
	p.runs.WithLabelValues(result).Inc()
	p.runDuration.Observe(d.Seconds())
}

func (p *Prometheus) OnStep(_ context.Context, _ string, step string, d time.Duration, err error) {
	p.steps.WithLabelValues(step, outcome(err)).Observe(d.Seconds())
}

func (p *Prometheus) OnFetchAttempt(_ context.Context, _ string, _ int, err error) {
	p.fetchAttempts.WithLabelValues(outcome(err)).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues("hit", keyType).Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues("miss", keyType).Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, _ int) {
	p.cacheEvents.WithLabelValues("set", keyType).Inc()
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, _ string, path string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, path, statusLabel(status)).Inc()
	p.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, method, _ string, path string, _ error) {
	p.httpRequests.WithLabelValues(method, path, "error").Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var (
	_ RunHooks   = (*Prometheus)(nil)
	_ JobHooks   = (*Prometheus)(nil)
	_ CacheHooks = (*Prometheus)(nil)
	_ HTTPHooks  = (*Prometheus)(nil)
)
