package palette

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/heatmap/pkg/errors"
)

// DefaultScheme is the scheme used when none is requested.
const DefaultScheme = "classic"

// Provider supplies palettes by name. Lookup fails with UNKNOWN_SCHEME when
// the name is not registered.
type Provider interface {
	Lookup(name string) (*Palette, error)
	Names() []string
}

// builtinStops are the keypoints of the shipped schemes, densest first.
var builtinStops = map[string][]Stop{
	"classic": {
		{"#ffffff", 0.00},
		{"#ff0000", 0.15},
		{"#ffff00", 0.35},
		{"#00ff00", 0.55},
		{"#00ffff", 0.75},
		{"#0000ff", 0.90},
		{"#000080", 1.00},
	},
	"fire": {
		{"#ffffff", 0.00},
		{"#ffff66", 0.20},
		{"#ffa500", 0.45},
		{"#ff0000", 0.70},
		{"#800000", 0.90},
		{"#200000", 1.00},
	},
	"omg": {
		{"#ffffff", 0.00},
		{"#ff66ff", 0.30},
		{"#9900cc", 0.60},
		{"#330066", 1.00},
	},
	"pbj": {
		{"#f4e2b0", 0.00},
		{"#c68642", 0.35},
		{"#8e2d6b", 0.70},
		{"#3b0a45", 1.00},
	},
	"pgaitch": {
		{"#ffffff", 0.00},
		{"#00ff99", 0.30},
		{"#006666", 0.70},
		{"#001a33", 1.00},
	},
}

// Registry is a concurrency-safe set of named palettes.
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]*Palette
}

// NewRegistry creates a registry preloaded with the built-in schemes.
func NewRegistry() *Registry {
	r := &Registry{schemes: make(map[string]*Palette, len(builtinStops))}
	for name, stops := range builtinStops {
		p, err := FromStops(name, stops, BlendHCL)
		if err != nil {
			panic(fmt.Sprintf("palette: builtin %s: %v", name, err))
		}
		r.schemes[name] = p
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry of built-in schemes.
// Schemes registered on it are visible to every caller.
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Lookup returns the palette registered under name.
func (r *Registry) Lookup(name string) (*Palette, error) {
	r.mu.RLock()
	p, ok := r.schemes[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.UnknownScheme(name, r.Names())
	}
	return p, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemes[name]
	return ok
}

// Names returns the registered scheme names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.schemes))
	for name := range r.schemes {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Register adds or replaces a palette.
func (r *Registry) Register(p *Palette) error {
	if p == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "palette cannot be nil")
	}
	if err := errors.ValidateSchemeName(p.Name); err != nil {
		return err
	}
	r.mu.Lock()
	r.schemes[p.Name] = p
	r.mu.Unlock()
	return nil
}

// SchemeDef is the TOML/JSON definition of a custom scheme.
type SchemeDef struct {
	Name  string `toml:"name" json:"name"`
	Blend string `toml:"blend" json:"blend,omitempty"`
	Stops []Stop `toml:"stops" json:"stops"`
}

// Build expands the definition into a palette.
func (d SchemeDef) Build() (*Palette, error) {
	return FromStops(d.Name, d.Stops, d.Blend)
}

type schemeFile struct {
	Schemes []SchemeDef `toml:"scheme"`
}

// ReadTOML decodes scheme definitions from r and builds them.
func ReadTOML(r io.Reader) ([]*Palette, error) {
	var f schemeFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode schemes")
	}
	out := make([]*Palette, 0, len(f.Schemes))
	for _, def := range f.Schemes {
		p, err := def.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadFile reads scheme definitions from a TOML file and registers them.
// It returns the number of schemes registered.
func (r *Registry) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	palettes, err := ReadTOML(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return r.RegisterAll(palettes)
}

// RegisterAll registers every palette, stopping at the first failure.
func (r *Registry) RegisterAll(palettes []*Palette) (int, error) {
	for i, p := range palettes {
		if err := r.Register(p); err != nil {
			return i, err
		}
	}
	return len(palettes), nil
}

var _ Provider = (*Registry)(nil)
