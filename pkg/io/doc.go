// Package io reads point sets and writes rendered heatmaps.
//
// # Point Formats
//
// Points can be read from several formats; [Import] picks one from the file
// extension and [Fetch] from the URL extension or the response Content-Type:
//
//   - CSV (.csv, .tsv): a header naming the x column (x, lon, lng, long,
//     longitude) and the y column (y, lat, latitude), or two unlabelled
//     numeric columns
//   - JSON (.json): an array of [x, y] pairs or of {"x": .., "y": ..} objects
//   - GeoJSON (.geojson): Point and MultiPoint geometries, bare or inside
//     Features, FeatureCollections and GeometryCollections
//   - KML (.kml): coordinates of every Placemark Point, as lon,lat[,alt]
//
// Geographic formats map longitude to x and latitude to y.
//
//	points, err := io.Import("crimes.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A path of "-" reads from standard input; the format then defaults to CSV
// unless the content starts with '[' or '{' (JSON) or '<' (KML).
//
// Malformed input fails with INVALID_INPUT and names the offending line or
// element. An input without points is not an error here; rendering an empty
// set fails with EMPTY_INPUT.
//
// # Output
//
// [EncodePNG], [WritePNG] and [ExportPNG] encode a rendered image as PNG.
// [WriteJSON] and [ExportJSON] write points in the JSON format above, which
// [ReadJSON] reads back.
package io
