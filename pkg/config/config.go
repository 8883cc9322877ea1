// Package config loads the heatmap TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/heatmap/config.toml (or
// ~/.config/heatmap/config.toml). Every key is optional; a missing file
// yields [Default]:
//
//	[render]
//	dotsize = 150
//	opacity = 128
//	width = 1024
//	height = 1024
//	scheme = "classic"
//	combine = "min"
//	alpha = "constant"
//	workers = 0
//
//	[cache]
//	backend = "file"   # file, redis, memory or none
//	dir = "~/.cache/heatmap"
//	redis_addr = "localhost:6379"
//	redis_db = 0
//	ttl = "168h"
//
//	[server]
//	addr = ":8080"
//	max_points = 1000000
//
//	[[scheme]]
//	name = "ocean"
//	blend = "hcl"
//	stops = [{color = "#ffffff", pos = 0.0}, {color = "#000066", pos = 1.0}]
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
	"github.com/matzehuels/heatmap/pkg/palette"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config is the parsed configuration file.
type Config struct {
	Render  Render              `toml:"render"`
	Cache   Cache               `toml:"cache"`
	Server  Server              `toml:"server"`
	Schemes []palette.SchemeDef `toml:"scheme"`
}

// Render holds render defaults applied before command-line flags.
type Render struct {
	DotSize int    `toml:"dotsize"`
	Opacity int    `toml:"opacity"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Scheme  string `toml:"scheme"`
	Combine string `toml:"combine"`
	Alpha   string `toml:"alpha"`
	Workers int    `toml:"workers"`
}

// Cache selects and configures the artifact cache.
type Cache struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	RedisDB   int      `toml:"redis_db"`
	TTL       Duration `toml:"ttl"`

	// Prefix is prepended to every key, so several installations can share
	// one Redis database.
	Prefix string `toml:"prefix"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string `toml:"addr"`
	MaxPoints       int    `toml:"max_points"`
	MaxCanvasPixels int    `toml:"max_canvas_pixels"`
	MaxDotSize      int    `toml:"max_dotsize"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	def := heatmap.DefaultConfig()
	return &Config{
		Render: Render{
			DotSize: def.DotSize,
			Opacity: def.Opacity,
			Width:   def.Width,
			Height:  def.Height,
			Scheme:  def.Scheme,
			Combine: string(def.Combine),
			Alpha:   string(def.Alpha),
		},
		Cache: Cache{
			Backend:   BackendFile,
			RedisAddr: "localhost:6379",
			TTL:       Duration{7 * 24 * time.Hour},
		},
		Server: Server{
			Addr:            ":8080",
			MaxPoints:       1_000_000,
			MaxCanvasPixels: 4096 * 4096,
			MaxDotSize:      1024,
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "heatmap", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".heatmap", "config.toml")
	}
	return filepath.Join(home, ".config", "heatmap", "config.toml")
}

// Load reads the file at path over the defaults. A missing file is not an
// error. Unknown keys fail with INVALID_FORMAT so typos surface early.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks values the rest of the program cannot recover from.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendMemory, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidParameter, "invalid cache backend: %q (must be one of: file, redis, memory, none)", c.Cache.Backend)
	}
	if c.Server.MaxPoints < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "server.max_points must not be negative")
	}
	if c.Server.MaxCanvasPixels < 0 || c.Server.MaxDotSize < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "server canvas and dot size limits must not be negative")
	}
	if _, err := heatmap.ParseCombineRule(c.Render.Combine); err != nil {
		return err
	}
	if _, err := heatmap.ParseAlphaMode(c.Render.Alpha); err != nil {
		return err
	}
	return nil
}

// CacheDir returns the configured cache directory, expanding a leading ~,
// or the XDG default when unset.
func (c *Config) CacheDir() (string, error) {
	if dir := c.Cache.Dir; dir != "" {
		if rest, ok := strings.CutPrefix(dir, "~/"); ok {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, rest), nil
		}
		return dir, nil
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "heatmap"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "heatmap"), nil
}

// RegisterSchemes adds the custom schemes to r.
func (c *Config) RegisterSchemes(r *palette.Registry) error {
	for _, def := range c.Schemes {
		p, err := def.Build()
		if err != nil {
			return err
		}
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}
