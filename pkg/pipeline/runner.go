package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/heatmap/pkg/cache"
	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
	hmio "github.com/matzehuels/heatmap/pkg/io"
	"github.com/matzehuels/heatmap/pkg/observability"
	"github.com/matzehuels/heatmap/pkg/overlay"
)

// formatMeta caches the bounds and saturation of a render alongside its
// artifacts, so cache hits can still georeference and report saturation.
const formatMeta = "meta"

// Runner executes the pipeline with caching. It holds no per-run state and
// may be shared between goroutines.
type Runner struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Engine     *heatmap.Engine
	HTTPClient *http.Client
	Logger     *log.Logger

	// ArtifactTTL is how long encoded renders stay cached. Zero uses
	// cache.TTLArtifact.
	ArtifactTTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer uses
// the DefaultKeyer and a nil engine renders with the default palettes.
func NewRunner(c cache.Cache, keyer cache.Keyer, engine *heatmap.Engine, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if engine == nil {
		engine = heatmap.New(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Engine: engine, Logger: logger}
}

// Execute loads opts.Input and renders it.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	points, sourceHit, err := r.LoadWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	loadTime := time.Since(start)
	opts.Logger.Info("loaded points", "source", opts.Input, "points", len(points), "duration", loadTime)

	result, _, err := r.RenderWithCacheInfo(ctx, points, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Stats.LoadTime = loadTime
	result.CacheInfo.SourceHit = sourceHit
	return result, nil
}

// LoadWithCacheInfo reads the points named by opts.Input. URL sources go
// through the cache; the bool reports a cache hit.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, opts Options) ([]heatmap.Point, bool, error) {
	if opts.Input == "" {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "input is required")
	}
	hooks := observability.Render()
	hooks.OnLoadStart(ctx, opts.Input)
	start := time.Now()

	var points []heatmap.Point
	var hit bool
	var err error
	if errors.IsURL(opts.Input) {
		points, hit, err = r.fetch(ctx, opts)
	} else if err = errors.ValidatePath(opts.Input); err == nil {
		points, err = hmio.Import(opts.Input)
	}
	hooks.OnLoadComplete(ctx, opts.Input, len(points), time.Since(start), err)
	return points, hit, err
}

// Load is LoadWithCacheInfo without the cache hit flag.
func (r *Runner) Load(ctx context.Context, opts Options) ([]heatmap.Point, error) {
	points, _, err := r.LoadWithCacheInfo(ctx, opts)
	return points, err
}

func (r *Runner) fetch(ctx context.Context, opts Options) ([]heatmap.Point, bool, error) {
	key := r.Keyer.SourceKey(opts.Input)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var points []heatmap.Point
			if err := json.Unmarshal(data, &points); err == nil {
				observability.Cache().OnCacheHit(ctx, "source")
				return points, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "source")
	}

	points, err := hmio.Fetch(ctx, r.HTTPClient, opts.Input)
	if err != nil {
		return nil, false, err
	}
	if data, err := json.Marshal(points); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLSource); err == nil {
			observability.Cache().OnCacheSet(ctx, "source", len(data))
		}
	}
	return points, false, nil
}

// RenderWithCacheInfo renders points and encodes every requested format.
// The bool reports whether all artifacts came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, points []heatmap.Point, opts Options) (*Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	if len(points) == 0 {
		return nil, false, errors.New(errors.ErrCodeEmptyInput, "no points to render")
	}
	pointsHash, err := cache.HashJSON(points)
	if err != nil {
		return nil, false, fmt.Errorf("hash points: %w", err)
	}
	pal, err := r.Engine.Palettes().Lookup(opts.Scheme)
	if err != nil {
		return nil, false, err
	}
	paletteHash, err := cache.HashJSON(pal.Colors)
	if err != nil {
		return nil, false, fmt.Errorf("hash palette: %w", err)
	}
	result := &Result{
		Points:     points,
		PointsHash: pointsHash,
		Artifacts:  make(map[string][]byte),
		Stats:      Stats{PointCount: len(points)},
	}

	if !opts.Refresh {
		if r.loadCached(ctx, result, opts, paletteHash) {
			result.CacheInfo.RenderHit = true
			observability.Cache().OnCacheHit(ctx, "render")
			opts.Logger.Debug("render served from cache", "hash", pointsHash[:12])
			r.warnSaturated(opts.Logger, result)
			return result, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "render")
	}

	cfg, err := opts.RenderConfig()
	if err != nil {
		return nil, false, err
	}
	engine := r.Engine
	if opts.Workers != 0 {
		engine = engine.With(heatmap.WithWorkers(opts.Workers))
	}

	hooks := observability.Render()
	hooks.OnRenderStart(ctx, len(points), cfg.Scheme)
	start := time.Now()
	res, err := engine.Render(points, cfg)
	result.Stats.RenderTime = time.Since(start)
	if err != nil {
		hooks.OnRenderComplete(ctx, len(points), 0, result.Stats.RenderTime, err)
		return nil, false, err
	}
	hooks.OnRenderComplete(ctx, len(points), res.Saturation, result.Stats.RenderTime, nil)
	opts.Logger.Info("rendered heatmap",
		"points", len(points),
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"scheme", cfg.Scheme,
		"duration", result.Stats.RenderTime)

	result.Render = res
	result.Bounds = res.Bounds
	result.Saturation = res.Saturation
	result.Saturated = res.Saturated
	r.warnSaturated(opts.Logger, result)

	start = time.Now()
	if err := encodeArtifacts(result, opts); err != nil {
		return nil, false, err
	}
	result.Stats.EncodeTime = time.Since(start)

	r.storeCached(ctx, result, opts, paletteHash)
	return result, false, nil
}

// Render is RenderWithCacheInfo without the cache hit flag.
func (r *Runner) Render(ctx context.Context, points []heatmap.Point, opts Options) (*Result, error) {
	result, _, err := r.RenderWithCacheInfo(ctx, points, opts)
	return result, err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

type renderMeta struct {
	Bounds     heatmap.BoundingBox `json:"bounds"`
	Saturation float64             `json:"saturation"`
	Saturated  bool                `json:"saturated"`
}

func encodeArtifacts(result *Result, opts Options) error {
	for _, format := range opts.Formats() {
		var data []byte
		var err error
		switch format {
		case FormatPNG:
			data, err = hmio.EncodePNG(result.Render.Image)
		case FormatKML:
			data, err = overlay.Marshal(result.Render, opts.KMLHref)
		default:
			err = ValidateFormat(format)
		}
		if err != nil {
			return fmt.Errorf("encode %s: %w", format, err)
		}
		result.Artifacts[format] = data
	}
	return nil
}

func (r *Runner) renderKey(result *Result, opts Options, paletteHash, format string) string {
	k := opts.RenderKeyOpts(format)
	k.Palette = paletteHash
	return r.Keyer.RenderKey(result.PointsHash, k)
}

func (r *Runner) loadCached(ctx context.Context, result *Result, opts Options, paletteHash string) bool {
	artifacts := make(map[string][]byte)
	for _, format := range append(opts.Formats(), formatMeta) {
		key := r.renderKey(result, opts, paletteHash, format)
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			return false
		}
		artifacts[format] = data
	}

	var meta renderMeta
	if err := json.Unmarshal(artifacts[formatMeta], &meta); err != nil {
		return false
	}
	delete(artifacts, formatMeta)
	result.Artifacts = artifacts
	result.Bounds = meta.Bounds
	result.Saturation = meta.Saturation
	result.Saturated = meta.Saturated
	return true
}

func (r *Runner) storeCached(ctx context.Context, result *Result, opts Options, paletteHash string) {
	if opts.Refresh {
		return
	}
	meta, err := json.Marshal(renderMeta{
		Bounds:     result.Bounds,
		Saturation: result.Saturation,
		Saturated:  result.Saturated,
	})
	if err != nil {
		return
	}
	entries := map[string][]byte{formatMeta: meta}
	for format, data := range result.Artifacts {
		entries[format] = data
	}
	for format, data := range entries {
		key := r.renderKey(result, opts, paletteHash, format)
		if err := r.Cache.Set(ctx, key, data, r.artifactTTL()); err != nil {
			opts.Logger.Warn("cache write failed", "format", format, "err", err)
			continue
		}
		observability.Cache().OnCacheSet(ctx, "render", len(data))
	}
}

func (r *Runner) warnSaturated(logger *log.Logger, result *Result) {
	if result.Saturated {
		logger.Warn(fmt.Sprintf("%.0f%% of output pixels are over 95%% density", result.Saturation*100),
			"hint", "try a smaller dot size or a larger canvas")
	}
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (r *Runner) artifactTTL() time.Duration {
	if r.ArtifactTTL > 0 {
		return r.ArtifactTTL
	}
	return cache.TTLArtifact
}
