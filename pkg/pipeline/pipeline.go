// Package pipeline runs the load → render → encode sequence shared by the
// CLI and the HTTP API.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:  "points.csv",
//	    Scheme: "fire",
//	    KML:    true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts[pipeline.FormatPNG]
//
// The stages can also run separately: [Runner.Load] reads points from a
// file, URL or stdin, and [Runner.Render] renders an in-memory point set.
//
// # Caching
//
// Encoded artifacts are cached under a key derived from the hash of the
// point set, every parameter that changes the output and the colors of the
// selected scheme, so a cache hit is byte-identical to a fresh render. Remote point sources are cached for
// [cache.TTLSource]. Set Options.Refresh to bypass both.
package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/heatmap/pkg/cache"
	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
)

// Output formats.
const (
	FormatPNG = "png"
	FormatKML = "kml"
)

// DefaultKMLHref is the image reference written into KML overlays when the
// caller does not name the PNG file.
const DefaultKMLHref = "heatmap.png"

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPNG: true,
	FormatKML: true,
}

// Options configures one pipeline run. Zero values select defaults; it
// supports JSON for API requests.
type Options struct {
	// Input is a file path, an http(s) URL or "-" for stdin.
	Input string `json:"input,omitempty"`

	DotSize int    `json:"dotsize,omitempty"`
	Opacity *int   `json:"opacity,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Scheme  string `json:"scheme,omitempty"`
	Combine string `json:"combine,omitempty"`
	Alpha   string `json:"alpha,omitempty"`

	// Area overrides the bounding box as [minX, minY, maxX, maxY].
	Area *[4]float64 `json:"area,omitempty"`

	// Workers sets render parallelism; it does not affect the output.
	Workers int `json:"workers,omitempty"`

	// KML adds a ground overlay artifact referencing KMLHref.
	KML     bool   `json:"kml,omitempty"`
	KMLHref string `json:"kml_href,omitempty"`

	// Refresh bypasses cached sources and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result holds the outputs of a pipeline run.
type Result struct {
	// Render is the engine result. It is nil when the artifacts came from
	// the cache.
	Render *heatmap.Result

	Points     []heatmap.Point
	PointsHash string

	// Bounds and Saturation are always set, also on cache hits.
	Bounds     heatmap.BoundingBox
	Saturation float64
	Saturated  bool

	// Artifacts maps each format to its encoded bytes.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds timing and size information.
type Stats struct {
	PointCount int
	LoadTime   time.Duration
	RenderTime time.Duration
	EncodeTime time.Duration
}

// CacheInfo records which stages were served from the cache.
type CacheInfo struct {
	SourceHit bool
	RenderHit bool
}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidParameter, "invalid format: %q (must be one of: png, kml)", format)
	}
	return nil
}

// SetRenderDefaults fills unset render parameters with the engine defaults.
func (o *Options) SetRenderDefaults() {
	def := heatmap.DefaultConfig()
	if o.DotSize == 0 {
		o.DotSize = def.DotSize
	}
	if o.Opacity == nil {
		op := def.Opacity
		o.Opacity = &op
	}
	if o.Width == 0 {
		o.Width = def.Width
	}
	if o.Height == 0 {
		o.Height = def.Height
	}
	if o.Scheme == "" {
		o.Scheme = def.Scheme
	}
	if o.Combine == "" {
		o.Combine = string(def.Combine)
	}
	if o.Alpha == "" {
		o.Alpha = string(def.Alpha)
	}
	if o.KML && o.KMLHref == "" {
		o.KMLHref = DefaultKMLHref
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender applies defaults and checks the parameters that can be
// checked without a palette provider.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	cfg, err := o.RenderConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// RenderConfig converts the options into an engine configuration.
func (o *Options) RenderConfig() (heatmap.Config, error) {
	cfg := heatmap.DefaultConfig()
	cfg.DotSize = o.DotSize
	if o.Opacity != nil {
		cfg.Opacity = *o.Opacity
	}
	cfg.Width, cfg.Height = o.Width, o.Height
	cfg.Scheme = o.Scheme

	combine, err := heatmap.ParseCombineRule(o.Combine)
	if err != nil {
		return cfg, err
	}
	alpha, err := heatmap.ParseAlphaMode(o.Alpha)
	if err != nil {
		return cfg, err
	}
	cfg.Combine, cfg.Alpha = combine, alpha

	if o.Area != nil {
		a := o.Area
		cfg.Area = &heatmap.BoundingBox{
			Min: heatmap.Point{X: a[0], Y: a[1]},
			Max: heatmap.Point{X: a[2], Y: a[3]},
		}
	}
	return cfg, nil
}

// Formats returns the artifact formats this run produces.
func (o *Options) Formats() []string {
	if o.KML {
		return []string{FormatPNG, FormatKML}
	}
	return []string{FormatPNG}
}

// RenderKeyOpts returns the cache key options for format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	k := cache.RenderKeyOpts{
		Format:  format,
		DotSize: o.DotSize,
		Width:   o.Width,
		Height:  o.Height,
		Scheme:  o.Scheme,
		Area:    o.Area,
		Combine: o.Combine,
		Alpha:   o.Alpha,
	}
	if o.Opacity != nil {
		k.Opacity = *o.Opacity
	}
	if format == FormatKML {
		k.Href = o.KMLHref
	}
	return k
}

// ParseArea parses "minX,minY,maxX,maxY".
func ParseArea(s string) (*[4]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "area must be minX,minY,maxX,maxY, got %q", s)
	}
	var a [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidParameter, "area: invalid number %q", p)
		}
		a[i] = v
	}
	return &a, nil
}

// FormatArea is the inverse of ParseArea.
func FormatArea(a *[4]float64) string {
	if a == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", a[0], a[1], a[2], a[3])
}
