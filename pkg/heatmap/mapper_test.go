package heatmap

import (
	"math"
	"testing"
)

func nan() float64 { return math.NaN() }

func TestMapperPixel(t *testing.T) {
	m := NewMapper(BoundingBox{Point{0, 0}, Point{100, 100}}, 100, 100, 50)

	tests := []struct {
		p      Point
		wx, wy int
	}{
		{Point{0, 0}, 0, 100},
		{Point{100, 100}, 100, 0},
		{Point{50, 50}, 50, 50},
		{Point{25, 75}, 25, 25},
		{Point{-10, 150}, -10, -50},
	}
	for _, tt := range tests {
		x, y := m.Pixel(tt.p)
		if x != tt.wx || y != tt.wy {
			t.Errorf("Pixel(%v) = (%d, %d), want (%d, %d)", tt.p, x, y, tt.wx, tt.wy)
		}
	}
}

func TestMapperPlace(t *testing.T) {
	m := NewMapper(BoundingBox{Point{0, 0}, Point{100, 100}}, 100, 100, 50)
	if got := m.Place(Point{50, 50}); got != (Placement{25, 25}) {
		t.Errorf("Place = %v, want {25 25}", got)
	}

	m = NewMapper(BoundingBox{Point{0, 0}, Point{100, 100}}, 100, 100, 7)
	if got := m.Place(Point{50, 50}); got != (Placement{47, 47}) {
		t.Errorf("Place with odd dot size = %v, want {47 47}", got)
	}
}

func TestMapperDegenerateAxis(t *testing.T) {
	tests := []struct {
		name   string
		bounds BoundingBox
		points []Point
	}{
		{"x", BoundingBox{Point{3, 0}, Point{3, 10}}, []Point{{3, 0}, {3, 5}, {3, 10}}},
		{"y", BoundingBox{Point{0, 7}, Point{10, 7}}, []Point{{0, 7}, {5, 7}, {10, 7}}},
		{"both", BoundingBox{Point{1, 1}, Point{1, 1}}, []Point{{1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMapper(tt.bounds, 200, 100, 10)
			dx, dy := tt.bounds.Degenerate()
			for _, p := range tt.points {
				nx, ny := m.Normalize(p)
				if math.IsNaN(nx) || math.IsNaN(ny) || math.IsInf(nx, 0) || math.IsInf(ny, 0) {
					t.Fatalf("Normalize(%v) = (%v, %v)", p, nx, ny)
				}
				x, y := m.Pixel(p)
				if dx && x != 100 {
					t.Errorf("degenerate x: Pixel(%v).x = %d, want 100", p, x)
				}
				if dy && y != 50 {
					t.Errorf("degenerate y: Pixel(%v).y = %d, want 50", p, y)
				}
			}
		})
	}
}

func TestMapperPlaceAllKeepsOrder(t *testing.T) {
	m := NewMapper(BoundingBox{Point{0, 0}, Point{10, 10}}, 10, 10, 2)
	points := []Point{{0, 10}, {10, 0}, {5, 5}}
	got := m.PlaceAll(points)
	want := []Placement{{-1, -1}, {9, 9}, {4, 4}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PlaceAll[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
