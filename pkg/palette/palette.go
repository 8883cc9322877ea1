package palette

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/heatmap/pkg/errors"
)

// Size is the number of entries in every palette.
const Size = 256

// Blend modes for interpolating between stops.
const (
	BlendHCL = "hcl"
	BlendRGB = "rgb"
	BlendLab = "lab"
)

// Stop is a gradient keypoint: a hex color at a position in [0, 1].
// Position 0 corresponds to the densest value, 1 to the coldest.
type Stop struct {
	Color string  `toml:"color" json:"color"`
	Pos   float64 `toml:"pos" json:"pos"`
}

// Palette is an immutable 256-entry RGB lookup table.
type Palette struct {
	Name   string
	Colors [Size]color.RGBA
}

// At returns the color for density value v.
func (p *Palette) At(v uint8) color.RGBA {
	return p.Colors[v]
}

// Sample returns n colors evenly spaced across the table, densest first.
// It is used for swatches and legends.
func (p *Palette) Sample(n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []color.RGBA{p.Colors[0]}
	}
	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = p.Colors[i*(Size-1)/(n-1)]
	}
	return out
}

// keypoint is a parsed Stop.
type keypoint struct {
	col colorful.Color
	pos float64
}

// FromStops builds a palette by interpolating between stops.
//
// Stops must number at least two, lie in [0, 1] and be strictly ascending.
// Entries before the first stop take its color, entries after the last stop
// take the last color. blend selects the interpolation space (hcl, rgb or
// lab); empty means hcl.
func FromStops(name string, stops []Stop, blend string) (*Palette, error) {
	if err := errors.ValidateSchemeName(name); err != nil {
		return nil, err
	}
	if len(stops) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "scheme %q: need at least two stops, got %d", name, len(stops))
	}
	mix, err := blendFunc(blend)
	if err != nil {
		return nil, fmt.Errorf("scheme %q: %w", name, err)
	}

	kps := make([]keypoint, len(stops))
	for i, s := range stops {
		c, err := colorful.Hex(s.Color)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidParameter, err, "scheme %q: stop %d color %q", name, i, s.Color)
		}
		if s.Pos < 0 || s.Pos > 1 {
			return nil, errors.New(errors.ErrCodeInvalidParameter, "scheme %q: stop %d position %v outside [0, 1]", name, i, s.Pos)
		}
		if i > 0 && s.Pos <= stops[i-1].Pos {
			return nil, errors.New(errors.ErrCodeInvalidParameter, "scheme %q: stop positions must be strictly ascending", name)
		}
		kps[i] = keypoint{col: c, pos: s.Pos}
	}

	p := &Palette{Name: name}
	for i := range p.Colors {
		c := interpolate(kps, float64(i)/float64(Size-1), mix)
		r, g, b := c.Clamped().RGB255()
		p.Colors[i] = color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
	return p, nil
}

// FromColors builds a palette from exactly 256 explicit colors.
func FromColors(name string, colors []color.RGBA) (*Palette, error) {
	if err := errors.ValidateSchemeName(name); err != nil {
		return nil, err
	}
	if len(colors) != Size {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "scheme %q: need exactly %d colors, got %d", name, Size, len(colors))
	}
	p := &Palette{Name: name}
	for i, c := range colors {
		c.A = 0xff
		p.Colors[i] = c
	}
	return p, nil
}

type mixFunc func(a, b colorful.Color, t float64) colorful.Color

func blendFunc(mode string) (mixFunc, error) {
	switch mode {
	case "", BlendHCL:
		return func(a, b colorful.Color, t float64) colorful.Color { return a.BlendHcl(b, t) }, nil
	case BlendRGB:
		return func(a, b colorful.Color, t float64) colorful.Color { return a.BlendRgb(b, t) }, nil
	case BlendLab:
		return func(a, b colorful.Color, t float64) colorful.Color { return a.BlendLab(b, t) }, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidParameter, "unknown blend mode %q (must be one of: hcl, rgb, lab)", mode)
	}
}

func interpolate(kps []keypoint, t float64, mix mixFunc) colorful.Color {
	if t <= kps[0].pos {
		return kps[0].col
	}
	i := sort.Search(len(kps), func(i int) bool { return kps[i].pos >= t })
	if i >= len(kps) {
		return kps[len(kps)-1].col
	}
	lo, hi := kps[i-1], kps[i]
	return mix(lo.col, hi.col, (t-lo.pos)/(hi.pos-lo.pos))
}
