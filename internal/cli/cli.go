package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/heatmap/pkg/buildinfo"
	"github.com/matzehuels/heatmap/pkg/cache"
	"github.com/matzehuels/heatmap/pkg/config"
	"github.com/matzehuels/heatmap/pkg/heatmap"
	"github.com/matzehuels/heatmap/pkg/observability"
	"github.com/matzehuels/heatmap/pkg/palette"
	"github.com/matzehuels/heatmap/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "heatmap"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath  string
	schemeFiles []string
	cfg         *config.Config
	palettes    *palette.Registry
}

// New creates a new CLI instance with a default logger.
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
		Short: "Heatmap renders point sets as colorized density images",
		Long: `Heatmap stamps a soft dot for every input point onto a canvas, maps the
accumulated density through a color scheme and writes a transparent PNG.
Geographic point sets can also be exported as a KML ground overlay.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.NewLogHooks(c.Logger).Install()
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringSliceVar(&c.schemeFiles, "schemes", nil, "additional TOML scheme files")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.schemesCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the config file and registers its custom schemes and the
// schemes of every --schemes file.
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	registry := palette.NewRegistry()
	if err := cfg.RegisterSchemes(registry); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if len(cfg.Schemes) > 0 {
		c.Logger.Debug("registered custom schemes", "count", len(cfg.Schemes), "config", path)
	}
	for _, file := range c.schemeFiles {
		n, err := registry.LoadFile(file)
		if err != nil {
			return err
		}
		c.Logger.Debug("registered custom schemes", "count", n, "file", file)
	}
	c.cfg, c.palettes = cfg, registry
	return nil
}

// config returns the loaded configuration, or the defaults when no command
// hook ran.
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

func (c *CLI) registry() *palette.Registry {
	if c.palettes == nil {
		c.palettes = palette.NewRegistry()
	}
	return c.palettes
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	cfg := c.config()
	var keyer cache.Keyer
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Prefix)
	}
	engine := heatmap.New(c.registry(), heatmap.WithWorkers(cfg.Render.Workers))
	runner := pipeline.NewRunner(store, keyer, engine, c.Logger)
	runner.ArtifactTTL = cfg.Cache.TTL.Duration
	return runner, nil
}

// newCache opens the configured cache backend.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.config()
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendMemory:
		return cache.NewMemoryCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		dir, err := cfg.CacheDir()
		if err != nil {
			c.Logger.Warn("cache disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
}

// =============================================================================
// Options Helpers
// =============================================================================

// renderDefaults returns pipeline options seeded from the config file.
func (c *CLI) renderDefaults() pipeline.Options {
	r := c.config().Render
	opacity := r.Opacity
	return pipeline.Options{
		DotSize: r.DotSize,
		Opacity: &opacity,
		Width:   r.Width,
		Height:  r.Height,
		Scheme:  r.Scheme,
		Combine: r.Combine,
		Alpha:   r.Alpha,
		Workers: r.Workers,
	}
}
