package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracemap/internal/config"
	"github.com/matzehuels/tracemap/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the diagram cache",
	}
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached diagram and rendered artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Cache.Backend == config.BackendNone {
				printInfo("Caching is disabled")
				return nil
			}

			store, err := c.newCache(cmd.Context(), cfg.Cache, false)
			if err != nil {
				return err
			}
			defer store.Close()

			clearer, ok := store.(cache.Clearer)
			if !ok {
				return fmt.Errorf("cache backend %q cannot be cleared", cfg.Cache.Backend)
			}
			n, err := clearer.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cleared %d cached entries", n)
			printDetail("Backend: %s", describeCache(cfg.Cache))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache lives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup(cmd)
			if err != nil {
				return err
			}
			fmt.Println(describeCache(cfg.Cache))
			return nil
		},
	}
}

// describeCache names the cache location: a directory, a Redis URL with
// its key prefix, or "disabled".
func describeCache(cc config.CacheConfig) string {
	switch cc.Backend {
	case config.BackendNone:
		return "disabled"
	case config.BackendRedis:
		u, err := url.Parse(cc.RedisURL)
		if err != nil {
			return "redis (prefix " + cc.Prefix + ")"
		}
		return u.Redacted() + " (prefix " + cc.Prefix + ")"
	}
	if cc.Dir != "" {
		return cc.Dir
	}
	dir, err := cacheDir()
	if err != nil {
		return "unavailable"
	}
	return dir
}
