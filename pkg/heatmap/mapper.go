package heatmap

import "math"

// Placement is the top-left canvas pixel of a stamped kernel.
// It may lie partly or fully outside the canvas.
type Placement struct {
	X, Y int
}

// Mapper converts data-space points into kernel placements.
type Mapper struct {
	Bounds  BoundingBox
	Width   int
	Height  int
	DotSize int

	degenX, degenY bool
}

// NewMapper creates a mapper for the given bounds, canvas and dot size.
func NewMapper(b BoundingBox, width, height, dotSize int) *Mapper {
	dx, dy := b.Degenerate()
	return &Mapper{
		Bounds:  b,
		Width:   width,
		Height:  height,
		DotSize: dotSize,
		degenX:  dx,
		degenY:  dy,
	}
}

// Normalize maps p into [0, 1] on each axis relative to the bounds.
// A degenerate axis maps every point to 0.5.
func (m *Mapper) Normalize(p Point) (nx, ny float64) {
	nx, ny = 0.5, 0.5
	if !m.degenX {
		nx = (p.X - m.Bounds.Min.X) / m.Bounds.Width()
	}
	if !m.degenY {
		ny = (p.Y - m.Bounds.Min.Y) / m.Bounds.Height()
	}
	return nx, ny
}

// Pixel returns the canvas pixel for p. The y axis is flipped so that larger
// data y values land on smaller row indices. Points on the Max.X or Min.Y
// edge map one past the canvas (column Width, row Height); their kernels are
// clipped by the stamper, so the edge dot is drawn half visible.
func (m *Mapper) Pixel(p Point) (x, y int) {
	nx, ny := m.Normalize(p)
	return int(math.Floor(nx * float64(m.Width))), int(math.Floor((1 - ny) * float64(m.Height)))
}

// Place returns the placement that centres the kernel on p.
func (m *Mapper) Place(p Point) Placement {
	x, y := m.Pixel(p)
	half := m.DotSize / 2
	return Placement{X: x - half, Y: y - half}
}

// PlaceAll maps every point, preserving order.
func (m *Mapper) PlaceAll(points []Point) []Placement {
	out := make([]Placement, len(points))
	for i, p := range points {
		out[i] = m.Place(p)
	}
	return out
}
