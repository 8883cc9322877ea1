package heatmap

import (
	"slices"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/palette"
)

// Engine renders heatmaps. It holds no per-render state, so a single Engine
// may serve concurrent Render calls.
type Engine struct {
	palettes palette.Provider
	kernels  *KernelCache
	stamper  Stamper
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernelCache shares kernels through c instead of a private cache.
func WithKernelCache(c *KernelCache) Option {
	return func(e *Engine) { e.kernels = c }
}

// WithWorkers sets how many goroutines stamp a single render.
// Values <= 1 stamp sequentially, negative values use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithStamper replaces the compositing backend. When set, Config.Combine is
// ignored.
func WithStamper(s Stamper) Option {
	return func(e *Engine) { e.stamper = s }
}

// New creates an engine drawing palettes from p. A nil provider uses the
// default palette registry.
func New(p palette.Provider, opts ...Option) *Engine {
	if p == nil {
		p = palette.Default()
	}
	e := &Engine{palettes: p, workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.kernels == nil {
		e.kernels = NewKernelCache()
	}
	return e
}

// With returns a copy of e with opts applied. The copy shares e's palette
// provider and kernel cache unless opts replace them.
func (e *Engine) With(opts ...Option) *Engine {
	c := *e
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Palettes returns the engine's palette provider.
func (e *Engine) Palettes() palette.Provider {
	return e.palettes
}

// Render rasterizes points into a colorized heatmap.
//
// Inputs are checked before anything is allocated: an empty point set fails
// with EMPTY_INPUT, an unregistered scheme with UNKNOWN_SCHEME, and bad
// numeric parameters or non-finite points with INVALID_PARAMETER. Zero
// values of Combine and Alpha select the defaults.
func (e *Engine) Render(points []Point, cfg Config) (*Result, error) {
	if len(points) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no points to render")
	}
	pal, err := e.palettes.Lookup(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for i, p := range points {
		if !p.Finite() {
			return nil, errors.New(errors.ErrCodeInvalidParameter, "point %d has non-finite coordinates (%g, %g)", i, p.X, p.Y)
		}
	}
	cfg.Combine, _ = ParseCombineRule(string(cfg.Combine))
	cfg.Alpha, _ = ParseAlphaMode(string(cfg.Alpha))

	bounds, err := ResolveBounds(points, cfg.Area)
	if err != nil {
		return nil, err
	}
	kernel, err := e.kernels.Get(cfg.DotSize)
	if err != nil {
		return nil, err
	}

	stamper := e.stamper
	if stamper == nil {
		stamper = BlendStamper{Rule: cfg.Combine}
	}

	field := NewDensityField(cfg.Width, cfg.Height)
	placements := NewMapper(bounds, cfg.Width, cfg.Height, cfg.DotSize).PlaceAll(points)
	Accumulate(field, placements, kernel, stamper, e.workers)

	sat := Saturation(field)
	if cfg.Area != nil {
		area := *cfg.Area
		cfg.Area = &area
	}
	return &Result{
		Image:      Colorize(field, pal, cfg.Opacity, cfg.Alpha),
		Bounds:     bounds,
		Points:     slices.Clone(points),
		Config:     cfg,
		Saturation: sat,
		Saturated:  cfg.SaturationThreshold > 0 && sat > cfg.SaturationThreshold,
	}, nil
}

var defaultEngine = New(nil)

// Render renders points with the default palette registry and a shared
// kernel cache.
func Render(points []Point, cfg Config) (*Result, error) {
	return defaultEngine.Render(points, cfg)
}
