// Package palette provides the 256-entry color tables used to colorize
// density fields.
//
// A [Palette] maps a density value (0 = densest, 255 = no density) to an RGB
// color. Palettes are defined as gradient keypoints ([Stop]) and expanded to
// 256 entries by blending neighbouring keypoints in HCL space, which keeps
// perceived brightness monotonic across the table.
//
// # Built-in Schemes
//
// The default [Registry] ships five schemes: classic, fire, omg, pbj and
// pgaitch. Additional schemes can be registered at runtime or loaded from a
// TOML file:
//
//	[[scheme]]
//	name = "ocean"
//	stops = [
//	  { color = "#ffffff", pos = 0.0 },
//	  { color = "#0077be", pos = 0.5 },
//	  { color = "#001f3f", pos = 1.0 },
//	]
//
// # Providers
//
// The rendering engine consumes palettes through the [Provider] interface and
// never mutates them. A [Registry] is safe for concurrent use.
package palette
