package palette

import (
	"image/color"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/heatmap/pkg/errors"
)

func TestBuiltinSchemes(t *testing.T) {
	r := NewRegistry()
	want := []string{"classic", "fire", "omg", "pbj", "pgaitch"}

	names := r.Names()
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], name)
		}
	}

	for _, name := range want {
		p, err := r.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) error: %v", name, err)
		}
		if p.Name != name {
			t.Errorf("Lookup(%q).Name = %q", name, p.Name)
		}
		for i, c := range p.Colors {
			if c.A != 0xff {
				t.Errorf("%s[%d] alpha = %d, want 255", name, i, c.A)
				break
			}
		}
	}
}

func TestFromStopsEndpoints(t *testing.T) {
	p, err := FromStops("bw", []Stop{{"#000000", 0}, {"#ffffff", 1}}, BlendRGB)
	if err != nil {
		t.Fatalf("FromStops error: %v", err)
	}
	if got := p.At(0); got != (color.RGBA{0, 0, 0, 0xff}) {
		t.Errorf("At(0) = %v, want black", got)
	}
	if got := p.At(255); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("At(255) = %v, want white", got)
	}

	// RGB blending between black and white is a monotonic grey ramp.
	for i := 1; i < Size; i++ {
		if p.Colors[i].R < p.Colors[i-1].R {
			t.Fatalf("grey ramp not monotonic at %d: %d < %d", i, p.Colors[i].R, p.Colors[i-1].R)
		}
	}
}

func TestFromStopsClampsOutsideStops(t *testing.T) {
	p, err := FromStops("mid", []Stop{{"#ff0000", 0.25}, {"#0000ff", 0.75}}, "")
	if err != nil {
		t.Fatalf("FromStops error: %v", err)
	}
	if got := p.At(0); got != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Errorf("At(0) = %v, want first stop color", got)
	}
	if got := p.At(255); got != (color.RGBA{0, 0, 0xff, 0xff}) {
		t.Errorf("At(255) = %v, want last stop color", got)
	}
}

func TestFromStopsErrors(t *testing.T) {
	tests := []struct {
		name   string
		scheme string
		stops  []Stop
		blend  string
	}{
		{"bad name", "Bad Name", []Stop{{"#000", 0}, {"#fff", 1}}, ""},
		{"one stop", "one", []Stop{{"#000000", 0}}, ""},
		{"bad hex", "hex", []Stop{{"zzz", 0}, {"#ffffff", 1}}, ""},
		{"out of range", "range", []Stop{{"#000000", -0.1}, {"#ffffff", 1}}, ""},
		{"not ascending", "order", []Stop{{"#000000", 0.5}, {"#ffffff", 0.5}}, ""},
		{"bad blend", "blend", []Stop{{"#000000", 0}, {"#ffffff", 1}}, "hsv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromStops(tt.scheme, tt.stops, tt.blend)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidParameter) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidParameter)
			}
		})
	}
}

func TestFromColors(t *testing.T) {
	colors := make([]color.RGBA, Size)
	for i := range colors {
		colors[i] = color.RGBA{R: uint8(i)}
	}
	p, err := FromColors("ramp", colors)
	if err != nil {
		t.Fatalf("FromColors error: %v", err)
	}
	if got := p.At(42); got.R != 42 || got.A != 0xff {
		t.Errorf("At(42) = %v", got)
	}

	if _, err := FromColors("short", colors[:10]); err == nil {
		t.Error("expected error for short color list")
	}
}

func TestLookupUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("rainbow")
	if !errors.Is(err, errors.ErrCodeUnknownScheme) {
		t.Fatalf("Lookup(rainbow) error = %v, want UNKNOWN_SCHEME", err)
	}
	if !strings.Contains(err.Error(), "classic") {
		t.Errorf("error should list valid schemes: %v", err)
	}
}

func TestSample(t *testing.T) {
	p, _ := NewRegistry().Lookup("fire")
	s := p.Sample(5)
	if len(s) != 5 {
		t.Fatalf("Sample(5) len = %d", len(s))
	}
	if s[0] != p.Colors[0] || s[4] != p.Colors[255] {
		t.Error("Sample should include both ends of the table")
	}
	if p.Sample(0) != nil {
		t.Error("Sample(0) should be nil")
	}
}

func TestReadTOML(t *testing.T) {
	src := `
[[scheme]]
name = "ocean"
stops = [
  { color = "#ffffff", pos = 0.0 },
  { color = "#0077be", pos = 0.5 },
  { color = "#001f3f", pos = 1.0 },
]

[[scheme]]
name = "mono"
blend = "rgb"
stops = [
  { color = "#000000", pos = 0.0 },
  { color = "#ffffff", pos = 1.0 },
]
`
	palettes, err := ReadTOML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadTOML error: %v", err)
	}
	if len(palettes) != 2 {
		t.Fatalf("ReadTOML returned %d palettes, want 2", len(palettes))
	}

	r := NewRegistry()
	n, err := r.RegisterAll(palettes)
	if err != nil || n != 2 {
		t.Fatalf("RegisterAll = %d, %v", n, err)
	}
	if !r.Has("ocean") || !r.Has("mono") {
		t.Errorf("custom schemes not registered: %v", r.Names())
	}
}

func TestReadTOMLInvalid(t *testing.T) {
	_, err := ReadTOML(strings.NewReader("[[scheme]\nname="))
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ReadTOML(invalid) error = %v, want INVALID_FORMAT", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	custom, err := FromStops("custom", []Stop{{"#000000", 0}, {"#ffffff", 1}}, "")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Register(custom)
		}()
		go func() {
			defer wg.Done()
			if _, err := r.Lookup(DefaultScheme); err != nil {
				t.Errorf("Lookup(%q) error: %v", DefaultScheme, err)
			}
		}()
	}
	wg.Wait()
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return the same registry")
	}
}
