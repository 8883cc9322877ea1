// Package pkg provides the libraries behind the heatmap renderer.
//
// # Overview
//
// A heatmap is built by stamping a soft circular dot for every input point
// onto a white grayscale canvas, keeping the darkest value where dots
// overlap, and mapping the resulting density through a 256-color scheme into
// a transparent RGBA image. The pkg directory is organized into three areas:
//
//  1. [heatmap] and [palette] - the rendering engine and its color schemes
//  2. [io] and [overlay] - point import, PNG export and KML ground overlays
//  3. [pipeline], [cache], [config] - orchestration shared by CLI and API
//
// # Architecture
//
// The data flow through a render:
//
//	CSV / JSON / GeoJSON / KML / URL
//	         ↓
//	    [io] package (decode points)
//	         ↓
//	    [heatmap] package (bounds → kernel → placements → density → colorize)
//	         ↓
//	    [io] / [overlay] packages (PNG bytes, KML document)
//
// [pipeline.Runner] wraps these steps with caching and observability hooks.
//
// # Quick Start
//
// Render an in-memory point set:
//
//	import (
//	    "github.com/matzehuels/heatmap/pkg/heatmap"
//	    "github.com/matzehuels/heatmap/pkg/io"
//	)
//
//	cfg := heatmap.DefaultConfig()
//	cfg.DotSize = 60
//	cfg.Scheme = "fire"
//	res, err := heatmap.Render(points, cfg)
//	if err != nil {
//	    return err
//	}
//	return io.ExportPNG(res.Image, "out.png")
//
// # Main Packages
//
// [heatmap] - The engine. Rendering is a pure function of the point set and
// [heatmap.Config]; results are independent values and an [heatmap.Engine]
// is safe for concurrent use. Stamping can be split across row bands
// without changing the output.
//
// [palette] - Color schemes. Five built-in schemes (classic, fire, omg, pbj,
// pgaitch) plus custom schemes defined by color stops in TOML.
//
// [io] - Point import from files, stdin and URLs; PNG encoding.
//
// [overlay] - KML 2.2 ground overlays that georeference a rendered image.
//
// [pipeline] - Load → render → encode, with artifact and source caching.
//
// [cache] - File, memory, Redis and null cache backends with TTLs.
//
// [config] - The TOML configuration file.
//
// [errors] - Structured errors with machine-readable codes.
//
// [observability] - Hooks for load, render, cache and HTTP events.
//
// [httputil] - HTTP GET with retries for remote point sources.
//
// [buildinfo] - Version information.
//
// # Testing
//
//	go test ./...                         # All tests
//	go test ./pkg/heatmap -bench .        # Engine benchmarks
//	HEATMAP_TEST_REDIS_ADDR=localhost:6379 go test ./pkg/cache
package pkg
