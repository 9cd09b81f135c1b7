package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/goenrichr/pkg/cache"
	"github.com/matzehuels/goenrichr/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the library catalog cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove cached catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.clearCache(cmd.Context(), cfg)
		},
	}
}

func (c *CLI) clearCache(ctx context.Context, cfg config.Config) error {
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	n, err := fc.Clear()
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	printSuccess("Cleared %d cached entries", n)
	printDetail("Directory: %s", fc.Dir())

	if cfg.Cache.RedisURL == "" {
		return nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, appName+":")
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := rc.Delete(ctx, cache.CatalogKey(cfg.Enrichr.BaseURL)); err != nil {
		return fmt.Errorf("clear redis catalog: %w", err)
	}
	printSuccess("Cleared Redis catalog for %s", cfg.Enrichr.BaseURL)
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := cacheDir(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// cacheDir is the configured cache directory or the XDG default.
func cacheDir(cfg config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cache.DefaultDir()
}
