// Package heatmap renders density heatmaps from 2D point sets.
//
// The engine is a pure, single-shot transform:
//
//	points → bounding box → placements → density field → palette → RGBA image
//
// Each point stamps a square radial-falloff [Kernel] whose centre lands on the
// point's pixel. Stamps compound into a [DensityField] where lower values mean
// denser (255 is [Cold], no density). The field is then mapped through a
// 256-entry palette; pixels without density are fully transparent.
//
// # Usage
//
//	eng := heatmap.New(palette.Default())
//	cfg := heatmap.DefaultConfig()
//	cfg.Scheme = "fire"
//	res, err := eng.Render(points, cfg)
//	if err != nil {
//	    return err
//	}
//	png.Encode(w, res.Image)
//
// The returned [Result] also carries the resolved [BoundingBox] and the points
// used, which the overlay package needs to georeference the image.
//
// # Combine Rules
//
// Overlapping stamps are combined per pixel by a [CombineRule]. All rules
// reproduce the kernel exactly for an isolated point and never make a pixel
// less dense when more points are added:
//
//   - [CombineMin] (default): min(pix, k), the darkest contribution wins
//   - [CombineMultiply]: pix*k/255, a multiplicative blend against a white canvas
//   - [CombineAdditive]: density (255-k) is added and clamped at full density
//
// # Concurrency
//
// [Engine.Render] is safe for concurrent use. Kernels are immutable and may be
// shared through a [KernelCache]. With [WithWorkers] the stamping loop is split
// into row bands that run in parallel; every pixel still sees its contributions
// in input order, so parallel output is identical to sequential output.
//
// # Errors
//
// Validation failures are reported as *errors.Error with codes EMPTY_INPUT,
// INVALID_PARAMETER or UNKNOWN_SCHEME, before any buffer is allocated.
package heatmap
