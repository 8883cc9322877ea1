package heatmap

import (
	"fmt"
	"image"
	"math"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/palette"
)

// Default render parameters.
const (
	DefaultDotSize             = 150
	DefaultOpacity             = 128
	DefaultWidth               = 1024
	DefaultHeight              = 1024
	DefaultSaturationThreshold = 0.8
)

// Upper limits that keep kernel and canvas sizes from overflowing int.
const (
	MaxDotSize   = 8192
	MaxDimension = 1 << 16
)

// Point is a data-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are finite.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// BoundingBox is the data-space rectangle mapped onto the canvas.
// Min == Max on an axis is a valid, degenerate box.
type BoundingBox struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Width returns the extent along x.
func (b BoundingBox) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the extent along y.
func (b BoundingBox) Height() float64 { return b.Max.Y - b.Min.Y }

// Degenerate reports which axes have zero extent.
func (b BoundingBox) Degenerate() (x, y bool) {
	return b.Max.X == b.Min.X, b.Max.Y == b.Min.Y
}

// Contains reports whether p lies inside b (edges included).
func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Validate checks that the box is finite and not inverted.
func (b BoundingBox) Validate() error {
	if !b.Min.Finite() || !b.Max.Finite() {
		return errors.New(errors.ErrCodeInvalidParameter, "area must have finite coordinates")
	}
	if b.Max.X < b.Min.X || b.Max.Y < b.Min.Y {
		return errors.New(errors.ErrCodeInvalidParameter,
			"area max (%g, %g) must not be below min (%g, %g)", b.Max.X, b.Max.Y, b.Min.X, b.Min.Y)
	}
	return nil
}

// String formats the box as "minX,minY,maxX,maxY".
func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}

// CombineRule selects how overlapping kernel stamps merge into a pixel.
type CombineRule string

// Combine rules.
const (
	CombineMin      CombineRule = "min"
	CombineMultiply CombineRule = "multiply"
	CombineAdditive CombineRule = "additive"
)

// ParseCombineRule converts a name into a CombineRule. Empty means min.
func ParseCombineRule(s string) (CombineRule, error) {
	switch CombineRule(s) {
	case "", CombineMin:
		return CombineMin, nil
	case CombineMultiply, CombineAdditive:
		return CombineRule(s), nil
	default:
		return "", errors.New(errors.ErrCodeInvalidParameter, "invalid combine rule: %q (must be one of: min, multiply, additive)", s)
	}
}

// Apply combines the running pixel value with a kernel value.
// Lower values are denser; the result is never above either operand.
func (r CombineRule) Apply(pix, k uint8) uint8 {
	switch r {
	case CombineMultiply:
		return uint8(uint16(pix) * uint16(k) / 255)
	case CombineAdditive:
		d := int(Cold) - int(k)
		if int(pix) <= d {
			return 0
		}
		return pix - uint8(d)
	default:
		return min(pix, k)
	}
}

// AlphaMode selects how pixel alpha is derived from density.
type AlphaMode string

// Alpha modes.
const (
	// AlphaConstant gives every pixel with density the configured opacity.
	AlphaConstant AlphaMode = "constant"
	// AlphaScaled scales opacity with density.
	AlphaScaled AlphaMode = "scaled"
)

// ParseAlphaMode converts a name into an AlphaMode. Empty means constant.
func ParseAlphaMode(s string) (AlphaMode, error) {
	switch AlphaMode(s) {
	case "", AlphaConstant:
		return AlphaConstant, nil
	case AlphaScaled:
		return AlphaScaled, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidParameter, "invalid alpha mode: %q (must be one of: constant, scaled)", s)
	}
}

// Config holds the parameters of a single render.
type Config struct {
	// DotSize is the kernel diameter in pixels.
	DotSize int `json:"dotsize"`
	// Opacity is the alpha given to pixels with density, 0-255.
	Opacity int `json:"opacity"`
	// Width and Height are the canvas size in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`
	// Scheme names the palette.
	Scheme string `json:"scheme"`
	// Area overrides the computed bounding box when non-nil.
	Area *BoundingBox `json:"area,omitempty"`

	Combine CombineRule `json:"combine,omitempty"`
	Alpha   AlphaMode   `json:"alpha,omitempty"`

	// SaturationThreshold is the fraction of near-fully-dense pixels above
	// which Result.Saturated is set. Zero disables the check.
	SaturationThreshold float64 `json:"saturation_threshold,omitempty"`
}

// DefaultConfig returns the reference defaults: 150px dots, opacity 128,
// a 1024x1024 canvas and the classic scheme.
func DefaultConfig() Config {
	return Config{
		DotSize:             DefaultDotSize,
		Opacity:             DefaultOpacity,
		Width:               DefaultWidth,
		Height:              DefaultHeight,
		Scheme:              palette.DefaultScheme,
		Combine:             CombineMin,
		Alpha:               AlphaConstant,
		SaturationThreshold: DefaultSaturationThreshold,
	}
}

// Validate checks the numeric parameters. Scheme lookup is done by the engine.
func (c Config) Validate() error {
	if c.DotSize <= 0 || c.DotSize > MaxDotSize {
		return errors.New(errors.ErrCodeInvalidParameter, "dot size must be in [1, %d], got %d", MaxDotSize, c.DotSize)
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width > MaxDimension || c.Height > MaxDimension {
		return errors.New(errors.ErrCodeInvalidParameter, "canvas size must be in [1, %d] per side, got %dx%d", MaxDimension, c.Width, c.Height)
	}
	if c.Opacity < 0 || c.Opacity > 255 {
		return errors.New(errors.ErrCodeInvalidParameter, "opacity must be in [0, 255], got %d", c.Opacity)
	}
	if c.SaturationThreshold < 0 || c.SaturationThreshold > 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "saturation threshold must be in [0, 1], got %g", c.SaturationThreshold)
	}
	if _, err := ParseCombineRule(string(c.Combine)); err != nil {
		return err
	}
	if _, err := ParseAlphaMode(string(c.Alpha)); err != nil {
		return err
	}
	if c.Area != nil {
		if err := c.Area.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Result is the outcome of a successful render. It is never mutated after
// Render returns and is the required input of overlay export.
type Result struct {
	// Image is the colorized canvas, non-premultiplied.
	Image *image.NRGBA
	// Bounds is the bounding box used to map points onto the canvas.
	Bounds BoundingBox
	// Points is a copy of the rendered points.
	Points []Point
	// Config is the configuration after defaults were resolved.
	Config Config
	// Saturation is the fraction of pixels at near-full density.
	Saturation float64
	// Saturated is set when Saturation exceeds Config.SaturationThreshold.
	Saturated bool
}
