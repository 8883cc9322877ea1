package cache

import "fmt"

// Key prefixes.
const (
	prefixSource = "source"
	prefixRender = "render"
	prefixRecord = "record"
)

// RenderKeyOpts are the render parameters that change the output bytes.
type RenderKeyOpts struct {
	Format  string      `json:"format"`
	DotSize int         `json:"dotsize"`
	Opacity int         `json:"opacity"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Scheme  string      `json:"scheme"`
	// Palette fingerprints the scheme's colors, so redefining a scheme
	// under the same name invalidates its renders.
	Palette string      `json:"palette,omitempty"`
	Area    *[4]float64 `json:"area,omitempty"`
	Combine string      `json:"combine"`
	Alpha   string      `json:"alpha"`
	Href    string      `json:"href,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// SourceKey keys a downloaded point source by its URL.
	SourceKey(url string) string
	// RenderKey keys an encoded render of the point set with hash pointsHash.
	RenderKey(pointsHash string, opts RenderKeyOpts) string
	// RecordKey keys a server render record by its ID.
	RecordKey(id string) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SourceKey implements Keyer.
func (DefaultKeyer) SourceKey(url string) string {
	return hashKey(prefixSource, url)
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(pointsHash string, opts RenderKeyOpts) string {
	return hashKey(prefixRender, pointsHash, opts)
}

// RecordKey implements Keyer.
func (DefaultKeyer) RecordKey(id string) string {
	return fmt.Sprintf("%s:%s", prefixRecord, id)
}

// ScopedKeyer prefixes every key of an inner Keyer, so several deployments
// or tenants can share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (the DefaultKeyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SourceKey implements Keyer.
func (k *ScopedKeyer) SourceKey(url string) string {
	return k.prefix + k.inner.SourceKey(url)
}

// RenderKey implements Keyer.
func (k *ScopedKeyer) RenderKey(pointsHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(pointsHash, opts)
}

// RecordKey implements Keyer.
func (k *ScopedKeyer) RecordKey(id string) string {
	return k.prefix + k.inner.RecordKey(id)
}
