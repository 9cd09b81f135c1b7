// Package cli implements the goenrichr command-line interface.
//
// # Commands
//
//   - enrich: submit a gene list to one or more Enrichr libraries
//   - libraries: list (or interactively pick) the server's libraries
//   - cache: inspect and clear the library catalog cache
//   - config: show the effective configuration
//   - completion: generate shell completion scripts
//
// # Logging
//
// Progress is logged with charmbracelet/log to stderr at info level, or
// debug level with --verbose. Results and summaries go to stdout.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/goenrichr/pkg/buildinfo"
	"github.com/matzehuels/goenrichr/pkg/cache"
	"github.com/matzehuels/goenrichr/pkg/config"
	"github.com/matzehuels/goenrichr/pkg/httputil"
	"github.com/matzehuels/goenrichr/pkg/integrations/enrichr"
	"github.com/matzehuels/goenrichr/pkg/job"
	"github.com/matzehuels/goenrichr/pkg/library"
	"github.com/matzehuels/goenrichr/pkg/observability"
)

const appName = "goenrichr"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a CLI logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "goenrichr runs gene set enrichment analyses on Enrichr",
		Long: `goenrichr submits gene lists to the Enrichr web service, fetches the
enrichment tables for one or more gene set libraries, and writes one report
and bar chart per library.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/goenrichr/config.toml)")

	root.AddCommand(c.enrichCommand())
	root.AddCommand(c.librariesCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(config.LoadOptions{Path: c.configPath})
}

// =============================================================================
// Service Factories
// =============================================================================

func newClient(cfg config.Config) *enrichr.Client {
	return enrichr.NewClient(enrichr.Options{
		BaseURL:       cfg.Enrichr.BaseURL,
		Timeout:       cfg.Enrichr.Timeout,
		ExportTimeout: cfg.Enrichr.ExportTimeout,
		RateLimit:     cfg.Enrichr.RateLimit,
	})
}

// newCache picks the catalog cache backend. A backend that cannot be
// reached or created degrades to no caching.
func (c *CLI) newCache(ctx context.Context, cfg config.Config, noCache bool) cache.Cache {
	if noCache || cfg.Cache.Disabled {
		return cache.NewNullCache()
	}
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, appName+":")
		if err != nil {
			c.Logger.Warn("catalog cache disabled", "backend", "redis", "error", err)
			return cache.NewNullCache()
		}
		return rc
	}
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		c.Logger.Warn("catalog cache disabled", "backend", "file", "error", err)
		return cache.NewNullCache()
	}
	return fc
}

func (c *CLI) newResolver(client *enrichr.Client, store cache.Cache, cfg config.Config) *library.Resolver {
	return &library.Resolver{
		Source: client,
		Cache:  store,
		TTL:    cfg.Cache.TTL,
		Logger: c.Logger,
	}
}

func (c *CLI) newTransport(client *enrichr.Client, cfg config.Config) *job.Transport {
	t := job.NewTransport(client, c.Logger)
	t.Retry = httputil.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     httputil.ExponentialJitter(cfg.Retry.BaseDelay, cfg.Retry.MaxDelay),
	}
	t.Pacing = job.Pacing{
		AfterSubmit:      cfg.Pacing.AfterSubmit,
		AfterFetch:       cfg.Pacing.AfterFetch,
		BetweenLibraries: cfg.Pacing.BetweenLibraries,
	}
	return t
}

// installMetrics registers Prometheus hooks when a Pushgateway is configured.
// The returned function pushes the collected metrics.
func (c *CLI) installMetrics(cfg config.Config) func(context.Context) {
	if cfg.Metrics.PushgatewayURL == "" {
		return func(context.Context) {}
	}
	p := observability.NewPrometheus()
	p.Install()
	return func(ctx context.Context) {
		defer observability.Reset()
		if err := p.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			c.Logger.Warn("push metrics", "url", cfg.Metrics.PushgatewayURL, "error", err)
			return
		}
		c.Logger.Debug("pushed metrics", "url", cfg.Metrics.PushgatewayURL)
	}
}
