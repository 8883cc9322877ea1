package heatmap

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Cold is the density value of a pixel no kernel has touched.
const Cold uint8 = 0xff

// saturatedValue is the density below which a pixel counts as saturated
// (more than ~95% dense).
const saturatedValue uint8 = 0x10

// DensityField is a row-major grid of accumulated density, lower = denser.
type DensityField struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewDensityField allocates a width×height field with every pixel Cold.
func NewDensityField(width, height int) *DensityField {
	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = Cold
	}
	return &DensityField{Width: width, Height: height, Pix: pix}
}

// At returns the density at (x, y).
func (f *DensityField) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

// Band returns a view of rows [y0, y1) sharing f's pixels.
func (f *DensityField) Band(y0, y1 int) *DensityField {
	return &DensityField{
		Width:  f.Width,
		Height: y1 - y0,
		Pix:    f.Pix[y0*f.Width : y1*f.Width],
	}
}

// Saturation returns the fraction of pixels of f whose density is above ~95%.
func Saturation(f *DensityField) float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	n := 0
	for _, v := range f.Pix {
		if v < saturatedValue {
			n++
		}
	}
	return float64(n) / float64(len(f.Pix))
}

// Stamper composites a kernel into a field at a placement, touching only the
// in-bounds part of the kernel. Implementations must not retain f or k.
type Stamper interface {
	Stamp(f *DensityField, at Placement, k *Kernel)
}

// BlendStamper is the reference Stamper; it merges each kernel cell into the
// field with Rule.
type BlendStamper struct {
	Rule CombineRule
}

// Stamp implements Stamper.
func (s BlendStamper) Stamp(f *DensityField, at Placement, k *Kernel) {
	x0, x1 := max(at.X, 0), min(at.X+k.Size, f.Width)
	y0, y1 := max(at.Y, 0), min(at.Y+k.Size, f.Height)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	kx := x0 - at.X
	n := x1 - x0
	for y := y0; y < y1; y++ {
		dst := f.Pix[y*f.Width+x0 : y*f.Width+x1]
		ky := y - at.Y
		src := k.Pix[ky*k.Size+kx : ky*k.Size+kx+n]
		switch s.Rule {
		case CombineMultiply:
			for i, v := range src {
				dst[i] = uint8(uint16(dst[i]) * uint16(v) / 255)
			}
		case CombineAdditive:
			for i, v := range src {
				dst[i] = CombineAdditive.Apply(dst[i], v)
			}
		default:
			for i, v := range src {
				dst[i] = min(dst[i], v)
			}
		}
	}
}

// Accumulate stamps k at every placement into f.
//
// With workers <= 1 placements are stamped sequentially. Otherwise the rows
// of f are split into bands processed concurrently; each band stamps the
// placements that intersect it in input order, so every pixel receives the
// same sequence of contributions as in the sequential case and the result is
// identical for any combine rule. workers < 0 uses GOMAXPROCS.
func Accumulate(f *DensityField, placements []Placement, k *Kernel, s Stamper, workers int) {
	if workers < 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, f.Height)
	if workers <= 1 {
		for _, at := range placements {
			s.Stamp(f, at, k)
		}
		return
	}

	rows := (f.Height + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < f.Height; y0 += rows {
		y1 := min(y0+rows, f.Height)
		band := f.Band(y0, y1)
		g.Go(func() error {
			for _, at := range placements {
				if at.Y+k.Size <= y0 || at.Y >= y1 {
					continue
				}
				s.Stamp(band, Placement{X: at.X, Y: at.Y - y0}, k)
			}
			return nil
		})
	}
	_ = g.Wait()
}
