package heatmap

import (
	"math"
	"sync"

	"github.com/matzehuels/heatmap/pkg/errors"
)

// Kernel is the square intensity stamp placed at every point.
// Values are lowest (densest) at the centre and rise towards the corners.
type Kernel struct {
	Size int
	Pix  []uint8 // row-major, Size*Size
}

// At returns the kernel value at (x, y).
func (k *Kernel) At(x, y int) uint8 {
	return k.Pix[y*k.Size+x]
}

// Center returns the value at the kernel's centre cell.
func (k *Kernel) Center() uint8 {
	return k.At(k.Size/2, k.Size/2)
}

// BuildKernel builds a size×size radial falloff kernel.
//
// Each cell's distance d to the centre is normalised by the centre-to-corner
// distance md = 0.5*sqrt(2)*size and mapped to round(200*d/md + 50), clamped
// to [0, 255]: 50 at the centre, 250 at the corners.
func BuildKernel(size int) (*Kernel, error) {
	if size <= 0 || size > MaxDotSize {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "dot size must be in [1, %d], got %d", MaxDotSize, size)
	}

	k := &Kernel{Size: size, Pix: make([]uint8, size*size)}
	c := float64(size) / 2
	md := 0.5 * math.Sqrt2 * float64(size)
	for y := range size {
		dy := float64(y) - c
		row := k.Pix[y*size : (y+1)*size]
		for x := range row {
			d := math.Hypot(float64(x)-c, dy)
			v := math.Round(200*d/md + 50)
			row[x] = uint8(max(0, min(255, v)))
		}
	}
	return k, nil
}

// KernelCache shares kernels across renders, keyed by dot size.
// It is safe for concurrent use; kernels handed out must not be modified.
type KernelCache struct {
	mu      sync.RWMutex
	kernels map[int]*Kernel
}

// NewKernelCache creates an empty cache.
func NewKernelCache() *KernelCache {
	return &KernelCache{kernels: make(map[int]*Kernel)}
}

// Get returns the kernel for size, building it on first use.
func (c *KernelCache) Get(size int) (*Kernel, error) {
	c.mu.RLock()
	k, ok := c.kernels[size]
	c.mu.RUnlock()
	if ok {
		return k, nil
	}

	k, err := BuildKernel(size)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.kernels[size]; ok {
		return existing, nil
	}
	c.kernels[size] = k
	return k, nil
}

// Len returns the number of cached kernels.
func (c *KernelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.kernels)
}

// Reset drops all cached kernels.
func (c *KernelCache) Reset() {
	c.mu.Lock()
	c.kernels = make(map[int]*Kernel)
	c.mu.Unlock()
}
