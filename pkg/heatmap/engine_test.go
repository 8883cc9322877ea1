package heatmap

import (
	"bytes"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/palette"
)

func TestRenderRandomPoints(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 42))
	points := make([]Point, 400)
	for i := range points {
		points[i] = Point{r.Float64(), r.Float64()}
	}

	res, err := Render(points, DefaultConfig())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := res.Image.Bounds(); b.Dx() != 1024 || b.Dy() != 1024 {
		t.Fatalf("image is %v, want 1024x1024", b)
	}

	var opaque, clear bool
	for i := 3; i < len(res.Image.Pix); i += 4 {
		if res.Image.Pix[i] == 0 {
			clear = true
		} else {
			opaque = true
		}
	}
	if !opaque {
		t.Error("no pixel with non-zero alpha")
	}
	if !clear {
		t.Error("no background pixel with zero alpha")
	}
}

func TestRenderSinglePointWithArea(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Area = &BoundingBox{Point{0, 0}, Point{100, 100}}
	cfg.Width, cfg.Height = 100, 100
	cfg.DotSize = 50

	res, err := Render([]Point{{50, 50}}, cfg)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	k, _ := BuildKernel(50)
	want := classic(t).At(k.Center())
	got := res.Image.NRGBAAt(50, 50)
	if got.R != want.R || got.G != want.G || got.B != want.B || got.A != uint8(cfg.Opacity) {
		t.Errorf("centre pixel = %v, want palette[%d] = %v with alpha %d", got, k.Center(), want, cfg.Opacity)
	}

	for _, c := range [][2]int{{0, 0}, {99, 0}, {0, 99}, {99, 99}} {
		if a := res.Image.NRGBAAt(c[0], c[1]).A; a != 0 {
			t.Errorf("corner %v alpha = %d, want 0", c, a)
		}
	}

	if res.Bounds != *cfg.Area {
		t.Errorf("Bounds = %v, want the override", res.Bounds)
	}
}

func TestRenderSinglePointReproducesKernel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Area = &BoundingBox{Point{0, 0}, Point{100, 100}}
	cfg.Width, cfg.Height = 100, 100
	cfg.DotSize = 30

	for _, rule := range allRules {
		t.Run(string(rule), func(t *testing.T) {
			cfg.Combine = rule
			res, err := Render([]Point{{40, 60}}, cfg)
			if err != nil {
				t.Fatal(err)
			}
			k, _ := BuildKernel(30)
			p := classic(t)
			// (40, 60) maps to pixel (40, 40); placement is (25, 25).
			for ky := range k.Size {
				for kx := range k.Size {
					got := res.Image.NRGBAAt(25+kx, 25+ky)
					want := p.At(k.At(kx, ky))
					if got.R != want.R || got.G != want.G || got.B != want.B {
						t.Fatalf("kernel cell (%d, %d) colored %v, want %v", kx, ky, got, want)
					}
				}
			}
		})
	}
}

func TestRenderCoincidentPointsCompound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 200, 200
	cfg.DotSize = 40
	cfg.Area = &BoundingBox{Point{0, 0}, Point{1, 1}}

	for _, rule := range allRules {
		t.Run(string(rule), func(t *testing.T) {
			k, _ := BuildKernel(cfg.DotSize)
			m := NewMapper(*cfg.Area, cfg.Width, cfg.Height, cfg.DotSize)
			one := NewDensityField(cfg.Width, cfg.Height)
			two := NewDensityField(cfg.Width, cfg.Height)
			p := Point{0.3, 0.6}
			Accumulate(one, m.PlaceAll([]Point{p}), k, BlendStamper{Rule: rule}, 1)
			Accumulate(two, m.PlaceAll([]Point{p, p}), k, BlendStamper{Rule: rule}, 1)

			x, y := m.Pixel(p)
			if two.At(x, y) > one.At(x, y) {
				t.Errorf("two points density %d less dense than one point %d", two.At(x, y), one.At(x, y))
			}
		})
	}
}

func TestRenderDegenerateAxis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 64, 64
	cfg.DotSize = 8

	res, err := Render([]Point{{5, 1}, {5, 2}, {5, 3}}, cfg)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// Every point lands on column 32, so the kernel centre column is dense.
	if a := res.Image.NRGBAAt(32, 32).A; a == 0 {
		t.Error("centre column transparent")
	}
	if a := res.Image.NRGBAAt(0, 32).A; a != 0 {
		t.Error("far left column should be transparent")
	}
}

func TestRenderEmptyInput(t *testing.T) {
	cfg := DefaultConfig()
	// A canvas this size would not fit in memory, so success here shows
	// nothing was allocated.
	cfg.Width, cfg.Height = 1<<30, 1<<30

	for _, points := range [][]Point{nil, {}} {
		_, err := Render(points, cfg)
		if !errors.Is(err, errors.ErrCodeEmptyInput) {
			t.Errorf("expected EMPTY_INPUT, got %v", err)
		}
	}
}

type countingStamper struct {
	mu    sync.Mutex
	calls int
}

func (s *countingStamper) Stamp(f *DensityField, at Placement, k *Kernel) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	BlendStamper{}.Stamp(f, at, k)
}

func TestRenderUnknownScheme(t *testing.T) {
	stamper := &countingStamper{}
	eng := New(palette.NewRegistry(), WithStamper(stamper))

	cfg := DefaultConfig()
	cfg.Scheme = "nope"
	cfg.Width, cfg.Height = 1<<30, 1<<30

	_, err := eng.Render([]Point{{1, 1}}, cfg)
	if !errors.Is(err, errors.ErrCodeUnknownScheme) {
		t.Fatalf("expected UNKNOWN_SCHEME, got %v", err)
	}
	if msg := errors.UserMessage(err); !strings.Contains(msg, "classic") {
		t.Errorf("message should list valid schemes, got %q", msg)
	}
	if stamper.calls != 0 {
		t.Errorf("stamper called %d times", stamper.calls)
	}
}

func TestRenderInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		points []Point
	}{
		{"zero dot size", func(c *Config) { c.DotSize = 0 }, nil},
		{"negative dot size", func(c *Config) { c.DotSize = -3 }, nil},
		{"dot size past limit", func(c *Config) { c.DotSize = MaxDotSize + 1 }, nil},
		{"dot size square overflows", func(c *Config) { c.DotSize = 1 << 32 }, nil},
		{"width past limit", func(c *Config) { c.Width = MaxDimension + 1 }, nil},
		{"zero width", func(c *Config) { c.Width = 0 }, nil},
		{"negative height", func(c *Config) { c.Height = -1 }, nil},
		{"opacity too high", func(c *Config) { c.Opacity = 256 }, nil},
		{"negative opacity", func(c *Config) { c.Opacity = -1 }, nil},
		{"inverted area", func(c *Config) { c.Area = &BoundingBox{Point{1, 1}, Point{0, 0}} }, nil},
		{"bad combine", func(c *Config) { c.Combine = "sum" }, nil},
		{"bad alpha", func(c *Config) { c.Alpha = "linear" }, nil},
		{"nan point", func(c *Config) {}, []Point{{0, 0}, {math.NaN(), 1}}},
		{"inf point", func(c *Config) {}, []Point{{math.Inf(1), 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			points := tt.points
			if points == nil {
				points = []Point{{0, 0}, {1, 1}}
			}
			_, err := Render(points, cfg)
			if !errors.Is(err, errors.ErrCodeInvalidParameter) {
				t.Errorf("expected INVALID_PARAMETER, got %v", err)
			}
		})
	}
}

func TestRenderResultIsIndependent(t *testing.T) {
	points := []Point{{0, 0}, {1, 1}}
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 32, 32
	cfg.DotSize = 8
	cfg.Area = &BoundingBox{Point{0, 0}, Point{1, 1}}

	res, err := Render(points, cfg)
	if err != nil {
		t.Fatal(err)
	}
	points[0] = Point{9, 9}
	cfg.Area.Max = Point{5, 5}

	if res.Points[0] != (Point{0, 0}) {
		t.Error("result points alias the caller's slice")
	}
	if res.Config.Area.Max != (Point{1, 1}) {
		t.Error("result config aliases the caller's area")
	}
}

func TestRenderSaturation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 20, 20
	cfg.DotSize = 60
	cfg.Combine = CombineMultiply

	points := make([]Point, 50)
	for i := range points {
		points[i] = Point{float64(i % 5), float64(i / 5)}
	}
	res, err := Render(points, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Saturated || res.Saturation <= cfg.SaturationThreshold {
		t.Errorf("expected saturated result, got saturation %v", res.Saturation)
	}

	// The min rule never goes below the kernel centre value.
	cfg.Combine = CombineMin
	res, err = Render(points, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Saturated {
		t.Errorf("min rule reported saturation %v", res.Saturation)
	}
}

func TestEngineWorkersMatchSequential(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 9))
	points := make([]Point, 200)
	for i := range points {
		points[i] = Point{r.NormFloat64(), r.NormFloat64()}
	}
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 256, 192
	cfg.DotSize = 40
	cfg.Combine = CombineMultiply

	seq, err := New(nil).Render(points, cfg)
	if err != nil {
		t.Fatal(err)
	}
	par, err := New(nil, WithWorkers(6), WithKernelCache(NewKernelCache())).Render(points, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(seq.Image.Pix, par.Image.Pix) {
		t.Error("parallel render differs from sequential render")
	}
}

func TestEngineConcurrentRenders(t *testing.T) {
	eng := New(nil, WithWorkers(2))
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 64, 64
	cfg.DotSize = 16

	points := []Point{{0, 0}, {1, 2}, {3, 1}}
	want, err := eng.Render(points, cfg)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := eng.Render(points, cfg)
			if err != nil {
				t.Error(err)
				return
			}
			if !bytes.Equal(got.Image.Pix, want.Image.Pix) {
				t.Error("concurrent render produced a different image")
			}
		}()
	}
	wg.Wait()
}

func TestEngineCustomStamper(t *testing.T) {
	stamper := &countingStamper{}
	eng := New(nil, WithStamper(stamper))
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 32, 32
	cfg.DotSize = 4

	if _, err := eng.Render([]Point{{0, 0}, {1, 1}, {2, 2}}, cfg); err != nil {
		t.Fatal(err)
	}
	if stamper.calls != 3 {
		t.Errorf("stamper called %d times, want 3", stamper.calls)
	}
}

func BenchmarkRender(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 2))
	points := make([]Point, 400)
	for i := range points {
		points[i] = Point{r.Float64(), r.Float64()}
	}
	eng := New(nil)
	cfg := DefaultConfig()

	b.ResetTimer()
	for range b.N {
		if _, err := eng.Render(points, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func TestEngineWithSharesKernelCache(t *testing.T) {
	kc := NewKernelCache()
	base := New(nil, WithKernelCache(kc))
	derived := base.With(WithWorkers(4))

	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 16, 16
	cfg.DotSize = 6
	if _, err := derived.Render([]Point{{0, 0}}, cfg); err != nil {
		t.Fatal(err)
	}
	if kc.Len() != 1 {
		t.Errorf("derived engine did not use the shared kernel cache")
	}
	if base.workers != 1 || derived.workers != 4 {
		t.Errorf("workers: base %d, derived %d", base.workers, derived.workers)
	}
}

func TestRenderDrawsPointsOnFarEdges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height, cfg.DotSize = 16, 16, 8

	res, err := Render([]Point{{0, 0}, {1, 1}}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	// {1, 1} maps to column 16, row 0: one past the right edge, so only the
	// left half of its dot lands on the canvas.
	if a := res.Image.NRGBAAt(15, 0).A; a == 0 {
		t.Error("max-x point left the top-right corner empty")
	}
	// {0, 0} maps to row 16, below the bottom edge.
	if a := res.Image.NRGBAAt(0, 15).A; a == 0 {
		t.Error("min-y point left the bottom-left corner empty")
	}
}
