package library

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/goenrichr/pkg/cache"
	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/observability"
)

// Source lists the libraries a server offers.
type Source interface {
	Libraries(ctx context.Context) ([]string, error)
	BaseURL() string
}

// Logger receives resolver warnings. *log.Logger satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// Resolver validates requested names, fetching the catalog from Source and
// caching it.
type Resolver struct {
	Source Source
	Cache  cache.Cache   // nil disables caching
	TTL    time.Duration // zero means cache.TTLCatalog
	Logger Logger        // nil means log.Default()
}

// WithLogger returns a copy of r that logs to logger.
func (r *Resolver) WithLogger(logger Logger) *Resolver {
	c := *r
	c.Logger = logger
	return &c
}

func (r *Resolver) logger() Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// Catalog returns the server's library names in server order. Unless refresh
// is set, a cached copy younger than TTL is used. Fetch or decode failures
// are reported as CATALOG_UNAVAILABLE and are not retried.
func (r *Resolver) Catalog(ctx context.Context, refresh bool) ([]string, error) {
	key := cache.CatalogKey(r.Source.BaseURL())
	hooks := observability.Cache()

	if r.Cache != nil && !refresh {
		data, ok, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.logger().Debug("catalog cache read failed", "error", err)
		}
		if ok {
			var names []string
			if json.Unmarshal(data, &names) == nil {
				hooks.OnCacheHit(ctx, "catalog")
				return names, nil
			}
		}
		hooks.OnCacheMiss(ctx, "catalog")
	}

	names, err := r.Source.Libraries(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeCatalogUnavailable, err, "fetch library catalog")
	}
	if len(names) == 0 {
		return nil, apperr.New(apperr.ErrCodeCatalogUnavailable, "library catalog is empty")
	}

	if r.Cache != nil {
		if data, err := json.Marshal(names); err == nil {
			ttl := r.TTL
			if ttl <= 0 {
				ttl = cache.TTLCatalog
			}
			if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
				r.logger().Debug("catalog cache write failed", "error", err)
			} else {
				hooks.OnCacheSet(ctx, "catalog", len(data))
			}
		}
	}
	return names, nil
}

// Known returns the catalog as a Set.
func (r *Resolver) Known(ctx context.Context, refresh bool) (Set, error) {
	names, err := r.Catalog(ctx, refresh)
	if err != nil {
		return nil, err
	}
	return NewSet(names...), nil
}

// Resolve returns the requested names that may be submitted, in requested
// order without duplicates.
//
// Names unsafe for use in file names are dropped with a warning. A single
// default library is accepted without contacting the server. When the
// catalog cannot be fetched but every requested name is a default, the
// defaults are accepted with a warning. An empty result is NO_VALID_LIBRARY.
func (r *Resolver) Resolve(ctx context.Context, requested []string) ([]string, error) {
	var safe []string
	for _, name := range requested {
		if err := apperr.ValidateLibraryName(name); err != nil {
			r.logger().Warn("ignoring library", "name", name, "reason", apperr.UserMessage(err))
			continue
		}
		safe = append(safe, name)
	}

	switch {
	case len(safe) == 0:
		return nil, noValidLibrary(requested)
	case len(safe) == 1 && DefaultLibraries.Has(safe[0]):
		return safe, nil
	}

	catalog, err := r.Known(ctx, false)
	if err != nil {
		if len(Validate(safe, DefaultLibraries)) != len(dedupe(safe)) {
			return nil, err
		}
		r.logger().Warn("library catalog unavailable, accepting default libraries", "error", err)
		catalog = DefaultLibraries
	}

	for _, name := range safe {
		if !catalog.Has(name) {
			r.logger().Warn("not an Enrichr library", "name", name)
		}
	}

	valid := Validate(safe, catalog)
	if len(valid) == 0 {
		return nil, noValidLibrary(requested)
	}
	return valid, nil
}

func noValidLibrary(requested []string) error {
	return apperr.New(apperr.ErrCodeNoValidLibrary,
		"no valid Enrichr library among %q; run 'goenrichr libraries' to list supported names", requested)
}

func dedupe(names []string) []string {
	return Validate(names, NewSet(names...))
}
