package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/matzehuels/tracemap/internal/config"
	"github.com/matzehuels/tracemap/pkg/buildinfo"
	"github.com/matzehuels/tracemap/pkg/cache"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

const appName = "tracemap"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	viper   *viper.Viper
	verbose bool
	logFile io.Closer
}

// New creates a CLI whose logger writes to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		viper:  viper.New(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Close releases the log file, if one was opened.
func (c *CLI) Close() error {
	if c.logFile == nil {
		return nil
	}
	err := c.logFile.Close()
	c.logFile = nil
	return err
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "tracemap lays out requirement/measure traceability diagrams",
		Long: `tracemap turns a snapshot of grouped requirements and measures into a
positioned node/edge diagram: a clustered layered view or a columnar
matrix view, ready for an interactive flow canvas or a static SVG.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: .tracemap/config.yaml, then ~/.config/tracemap/config.yaml)")
	pf.String("log-file", "", "write logs to a rotating file instead of stderr")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup binds cmd's flags to their config keys, loads the configuration and
// points the logger at its destination. Every command calls it first.
func (c *CLI) setup(cmd *cobra.Command) (*config.Config, error) {
	bind := func(key, flag string) error {
		if f := cmd.Flags().Lookup(flag); f != nil {
			return c.viper.BindPFlag(key, f)
		}
		return nil
	}
	for flag, key := range flagKeys {
		if err := bind(key, flag); err != nil {
			return nil, err
		}
	}
	if err := bind("config", "config"); err != nil {
		return nil, err
	}
	if err := bind("log.file", "log-file"); err != nil {
		return nil, err
	}

	cfg, err := config.Load(c.viper)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := c.configureLogger(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *CLI) configureLogger(lc config.LogConfig) error {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.verbose {
		level = log.DebugLevel
	}
	c.Logger.SetLevel(level)

	if lc.File == "" || c.logFile != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
		Compress:   lc.Compress,
	}
	c.Logger.SetOutput(w)
	c.logFile = w
	return nil
}

// newRunner creates a pipeline runner over the configured cache.
func (c *CLI) newRunner(ctx context.Context, cc config.CacheConfig, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, cc, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, cc config.CacheConfig, disabled bool) (cache.Cache, error) {
	if disabled || cc.Backend == config.BackendNone {
		return cache.NewNullCache(), nil
	}
	if cc.Backend == config.BackendRedis {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: cc.RedisURL, Prefix: cc.Prefix})
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		return rc, nil
	}
	dir := cc.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/tracemap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// flagKeys maps layout flags to their config keys.
var flagKeys = map[string]string{
	"strategy":           "layout.strategy",
	"engine":             "layout.engine",
	"inter-entity-gap":   "layout.inter_entity_gap",
	"inter-group-gap":    "layout.inter_group_gap",
	"column-width":       "layout.column_width",
	"column-gap":         "layout.column_gap",
	"header-height":      "layout.header_height",
	"rank-gap":           "layout.rank_gap",
	"min-cluster-height": "layout.min_cluster_height",
	"node-width":         "layout.node_width",
	"base-height":        "layout.base_height",
	"multi-parent":       "layout.enable_multi_parent_adjustment",
	"regroup":            "layout.regroup",
	"addr":               "server.addr",
	"debounce":           "watch.debounce",
}

// addLayoutFlags registers the layout options. Unset flags defer to the
// configuration, so the flag defaults here are only shown in help.
func addLayoutFlags(fs *pflag.FlagSet) {
	fs.StringP("strategy", "s", "", "layout strategy: clustered (default), columnar")
	fs.StringP("engine", "e", "", "layered engine for clustered: native (default), dot")
	fs.Float64("inter-entity-gap", 0, "vertical gap between entities")
	fs.Float64("inter-group-gap", 0, "gap between group clusters")
	fs.Float64("column-width", 0, "column width (columnar)")
	fs.Float64("column-gap", 0, "gap between columns (columnar)")
	fs.Float64("header-height", 0, "group header height")
	fs.Float64("rank-gap", 0, "horizontal gap between ranks (clustered)")
	fs.Float64("min-cluster-height", 0, "minimum cluster height (clustered)")
	fs.Float64("node-width", 0, "entity node width")
	fs.Float64("base-height", 0, "entity base height before content scaling")
	fs.Bool("multi-parent", false, "center multi-parent entities between their parents")
	fs.Bool("regroup", true, "restack clustered output per group")
}
