// Package config loads goenrichr settings.
//
// Values are layered, later layers winning:
//
//  1. [Default]
//  2. a TOML file, by default $XDG_CONFIG_HOME/goenrichr/config.toml
//  3. .env files, which only seed variables not already in the environment
//  4. GOENRICHR_* environment variables
//  5. command-line flags, applied by the CLI
//
// A minimal file:
//
//	[enrichr]
//	base_url = "https://maayanlab.cloud/Enrichr"
//	export_timeout = "10m"
//
//	[run]
//	libraries = ["KEGG_2021_Human", "GO_Biological_Process_2023"]
//	cutoff = 0.01
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/integrations/enrichr"
	"github.com/matzehuels/goenrichr/pkg/plot"
	"github.com/matzehuels/goenrichr/pkg/sink"
)

const (
	appName = "goenrichr"

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "GOENRICHR_"

	maxAttemptsLimit = 10
)

// Config is the complete goenrichr configuration.
type Config struct {
	Enrichr EnrichrConfig `toml:"enrichr" envPrefix:"ENRICHR_"`
	Run     RunConfig     `toml:"run"     envPrefix:"RUN_"`
	Retry   RetryConfig   `toml:"retry"   envPrefix:"RETRY_"`
	Pacing  PacingConfig  `toml:"pacing"  envPrefix:"PACING_"`
	Cache   CacheConfig   `toml:"cache"   envPrefix:"CACHE_"`
	Mongo   MongoConfig   `toml:"mongo"   envPrefix:"MONGO_"`
	Metrics MetricsConfig `toml:"metrics" envPrefix:"METRICS_"`
}

// EnrichrConfig points at the Enrichr deployment.
type EnrichrConfig struct {
	BaseURL       string        `toml:"base_url"       env:"BASE_URL"`
	Timeout       time.Duration `toml:"timeout"        env:"TIMEOUT"`
	ExportTimeout time.Duration `toml:"export_timeout" env:"EXPORT_TIMEOUT"`
	RateLimit     float64       `toml:"rate_limit"     env:"RATE_LIMIT"` // requests per second, negative disables
}

// RunConfig holds defaults for enrich runs.
type RunConfig struct {
	Description string   `toml:"description" env:"DESCRIPTION"`
	Libraries   []string `toml:"libraries"   env:"LIBRARIES" envSeparator:","`
	OutDir      string   `toml:"outdir"      env:"OUTDIR"`
	Cutoff      float64  `toml:"cutoff"      env:"CUTOFF"`
	Format      string   `toml:"format"      env:"FORMAT"`
	TopTerm     int      `toml:"top_term"    env:"TOP_TERM"`
	NoPlot      bool     `toml:"no_plot"     env:"NO_PLOT"`
	FailFast    bool     `toml:"fail_fast"   env:"FAIL_FAST"`
	XLSX        string   `toml:"xlsx"        env:"XLSX"`
}

// RetryConfig shapes the export download retry.
type RetryConfig struct {
	MaxAttempts int           `toml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay   time.Duration `toml:"base_delay"   env:"BASE_DELAY"`
	MaxDelay    time.Duration `toml:"max_delay"    env:"MAX_DELAY"`
}

// PacingConfig holds the fixed pauses between calls.
type PacingConfig struct {
	AfterSubmit      time.Duration `toml:"after_submit"      env:"AFTER_SUBMIT"`
	AfterFetch       time.Duration `toml:"after_fetch"       env:"AFTER_FETCH"`
	BetweenLibraries time.Duration `toml:"between_libraries" env:"BETWEEN_LIBRARIES"`
}

// CacheConfig selects the catalog cache backend.
type CacheConfig struct {
	Disabled bool          `toml:"disabled"  env:"DISABLED"`
	Dir      string        `toml:"dir"       env:"DIR"`
	RedisURL string        `toml:"redis_url" env:"REDIS_URL"`
	TTL      time.Duration `toml:"ttl"       env:"TTL"`
}

// MongoConfig enables the MongoDB exporter when URI is set.
type MongoConfig struct {
	URI        string `toml:"uri"        env:"URI"`
	Database   string `toml:"database"   env:"DATABASE"`
	Collection string `toml:"collection" env:"COLLECTION"`
}

// MetricsConfig enables pushing run metrics when PushgatewayURL is set.
type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
	Job            string `toml:"job"             env:"JOB"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Enrichr: EnrichrConfig{
			BaseURL:       enrichr.DefaultBaseURL,
			Timeout:       30 * time.Second,
			ExportTimeout: enrichr.DefaultExportTimeout,
			RateLimit:     4,
		},
		Run: RunConfig{
			Description: "foo",
			OutDir:      "Enrichr",
			Cutoff:      0.05,
			Format:      plot.FormatSVG,
			TopTerm:     10,
		},
		Retry: RetryConfig{
			MaxAttempts: 6,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Pacing: PacingConfig{
			AfterSubmit:      time.Second,
			AfterFetch:       time.Second,
			BetweenLibraries: 2 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Mongo: MongoConfig{
			Database:   sink.DefaultMongoDatabase,
			Collection: sink.DefaultMongoCollection,
		},
		Metrics: MetricsConfig{
			Job: appName,
		},
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// Path is the TOML file. Empty means DefaultPath, which may be absent;
	// an explicit path must exist.
	Path string

	// EnvFiles are loaded with godotenv. Nil means ".env"; missing files
	// are ignored.
	EnvFiles []string
}

// Load builds a Config from defaults, the TOML file, .env files and the
// environment, then sanitizes it.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path, _ = DefaultPath()
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return cfg, err
			}
		}
	}

	files := opts.EnvFiles
	if files == nil {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return cfg, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "load %s", f)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "parse environment")
	}

	cfg.Sanitize()
	return cfg, cfg.Validate()
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return apperr.New(apperr.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/goenrichr/config.toml, falling back
// to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Sanitize clamps values into their working ranges. Zero or negative
// durations fall back to defaults.
func (c *Config) Sanitize() {
	def := Default()

	c.Enrichr.BaseURL = strings.TrimRight(strings.TrimSpace(c.Enrichr.BaseURL), "/")
	if c.Enrichr.BaseURL == "" {
		c.Enrichr.BaseURL = def.Enrichr.BaseURL
	}
	positive(&c.Enrichr.Timeout, def.Enrichr.Timeout)
	positive(&c.Enrichr.ExportTimeout, def.Enrichr.ExportTimeout)

	if c.Run.Description == "" {
		c.Run.Description = def.Run.Description
	}
	if c.Run.Cutoff <= 0 || c.Run.Cutoff > 1 {
		c.Run.Cutoff = def.Run.Cutoff
	}
	c.Run.Format = strings.ToLower(strings.TrimSpace(c.Run.Format))
	if c.Run.Format == "" {
		c.Run.Format = def.Run.Format
	}
	if c.Run.TopTerm <= 0 {
		c.Run.TopTerm = def.Run.TopTerm
	}

	c.Retry.MaxAttempts = min(max(c.Retry.MaxAttempts, 1), maxAttemptsLimit)
	positive(&c.Retry.BaseDelay, def.Retry.BaseDelay)
	positive(&c.Retry.MaxDelay, def.Retry.MaxDelay)
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		c.Retry.MaxDelay = c.Retry.BaseDelay
	}

	c.Pacing.AfterSubmit = max(c.Pacing.AfterSubmit, 0)
	c.Pacing.AfterFetch = max(c.Pacing.AfterFetch, 0)
	c.Pacing.BetweenLibraries = max(c.Pacing.BetweenLibraries, 0)

	positive(&c.Cache.TTL, def.Cache.TTL)

	if c.Mongo.Database == "" {
		c.Mongo.Database = def.Mongo.Database
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = def.Mongo.Collection
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = def.Metrics.Job
	}
}

// Validate reports settings that cannot be clamped.
func (c *Config) Validate() error {
	if err := apperr.ValidateURL(c.Enrichr.BaseURL); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "enrichr.base_url")
	}
	if !plot.ValidFormat(c.Run.Format) {
		return apperr.New(apperr.ErrCodeInvalidConfig, "run.format %q must be one of %s",
			c.Run.Format, strings.Join(plot.Formats, ", "))
	}
	if err := apperr.ValidateDescription(c.Run.Description); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "run.description")
	}
	if c.Metrics.PushgatewayURL != "" {
		if err := apperr.ValidateURL(c.Metrics.PushgatewayURL); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "metrics.pushgateway_url")
		}
	}
	return nil
}

// String renders the configuration as TOML.
func (c Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}

func positive(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
