package io

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
	"github.com/matzehuels/heatmap/pkg/httputil"
)

// Format identifies a point file format.
type Format string

// Supported point formats.
const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
	FormatKML     Format = "kml"
)

var extFormats = map[string]Format{
	".csv":     FormatCSV,
	".tsv":     FormatTSV,
	".json":    FormatJSON,
	".geojson": FormatGeoJSON,
	".kml":     FormatKML,
}

var mimeFormats = map[string]Format{
	"text/csv":                             FormatCSV,
	"text/tab-separated-values":            FormatTSV,
	"application/json":                     FormatJSON,
	"application/geo+json":                 FormatGeoJSON,
	"application/vnd.geo+json":             FormatGeoJSON,
	"application/vnd.google-earth.kml+xml": FormatKML,
	"application/xml":                      FormatKML,
	"text/xml":                             FormatKML,
}

// FormatFromPath returns the format implied by path's extension.
func FormatFromPath(path string) (Format, bool) {
	f, ok := extFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Read decodes points from r in the given format.
func Read(r io.Reader, format Format) ([]heatmap.Point, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatTSV:
		return readDelimited(r, '\t')
	case FormatJSON, FormatGeoJSON:
		return ReadJSON(r)
	case FormatKML:
		return ReadKML(r)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported point format: %q", format)
	}
}

// Import reads points from the file at path, choosing the format from its
// extension. "-" reads standard input and sniffs the format.
func Import(path string) ([]heatmap.Point, error) {
	if path == "-" {
		return ReadAuto(os.Stdin)
	}
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "cannot infer point format from %q (use .csv, .tsv, .json, .geojson or .kml)", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	points, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// ReadAuto sniffs the format from the first non-space byte of r.
func ReadAuto(r io.Reader) ([]heatmap.Point, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
		switch c := b[0]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			br.ReadByte()
			continue
		case c == '[' || c == '{':
			return ReadJSON(br)
		case c == '<':
			return ReadKML(br)
		default:
			return ReadCSV(br)
		}
	}
}

// Fetch downloads points from url. The format comes from the URL path's
// extension, falling back to the response Content-Type and then sniffing.
func Fetch(ctx context.Context, client *http.Client, rawURL string) ([]heatmap.Point, error) {
	if err := errors.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	body, ctype, err := httputil.Get(ctx, client, rawURL)
	if err != nil {
		return nil, err
	}

	format, ok := Format(""), false
	if u, err := url.Parse(rawURL); err == nil {
		format, ok = FormatFromPath(u.Path)
	}
	if !ok && ctype != "" {
		if mt, _, err := mime.ParseMediaType(ctype); err == nil {
			format, ok = mimeFormats[mt]
		}
	}
	if !ok {
		return ReadAuto(bytes.NewReader(body))
	}
	return Read(bytes.NewReader(body), format)
}

// ReadCSV decodes comma-separated points.
//
// The first record is a header when it names an x column (x, lon, lng, long,
// longitude) and a y column (y, lat, latitude), matched case-insensitively.
// Otherwise every record is data and the first two columns are x and y.
// Blank lines are skipped; a record whose coordinates do not parse fails with
// INVALID_INPUT.
func ReadCSV(r io.Reader) ([]heatmap.Point, error) {
	return readDelimited(r, ',')
}

func readDelimited(r io.Reader, comma rune) ([]heatmap.Point, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var points []heatmap.Point
	ix, iy := 0, 1
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed csv")
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if hx, hy, ok := headerColumns(rec); ok {
				ix, iy = hx, hy
				continue
			}
		}
		if ix >= len(rec) || iy >= len(rec) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: expected at least %d columns, got %d", line, max(ix, iy)+1, len(rec))
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(rec[ix]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(rec[iy]), 64)
		if errX != nil || errY != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: invalid coordinates %q, %q", line, rec[ix], rec[iy])
		}
		points = append(points, heatmap.Point{X: x, Y: y})
	}
	return points, nil
}

func headerColumns(rec []string) (ix, iy int, ok bool) {
	ix, iy = -1, -1
	for i, h := range rec {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "x", "lon", "lng", "long", "longitude":
			if ix == -1 {
				ix = i
			}
		case "y", "lat", "latitude":
			if iy == -1 {
				iy = i
			}
		}
	}
	return ix, iy, ix >= 0 && iy >= 0
}

// jsonPoint accepts {"x","y"} as well as {"lon"/"lng","lat"} objects.
type jsonPoint struct {
	X   *float64 `json:"x"`
	Y   *float64 `json:"y"`
	Lon *float64 `json:"lon"`
	Lng *float64 `json:"lng"`
	Lat *float64 `json:"lat"`
}

func (p jsonPoint) point() (heatmap.Point, bool) {
	x, y := p.X, p.Y
	if x == nil {
		x = firstSet(p.Lon, p.Lng)
	}
	if y == nil {
		y = p.Lat
	}
	if x == nil || y == nil {
		return heatmap.Point{}, false
	}
	return heatmap.Point{X: *x, Y: *y}, true
}

func firstSet(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

// ReadJSON decodes a JSON array of points, either [x, y] pairs or objects
// with x/y (or lon/lat) fields. A top-level object is decoded as GeoJSON.
func ReadJSON(r io.Reader) ([]heatmap.Point, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode json")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		return decodeGeoJSON(raw)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "expected an array of points")
	}
	points := make([]heatmap.Point, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '[' {
			var pair []float64
			if err := json.Unmarshal(item, &pair); err != nil || len(pair) < 2 {
				return nil, errors.New(errors.ErrCodeInvalidInput, "point %d: expected [x, y], got %s", i, item)
			}
			points = append(points, heatmap.Point{X: pair[0], Y: pair[1]})
			continue
		}
		var jp jsonPoint
		if err := json.Unmarshal(item, &jp); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "point %d", i)
		}
		p, ok := jp.point()
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "point %d: missing x/y fields", i)
		}
		points = append(points, p)
	}
	return points, nil
}

// ReadGeoJSON decodes the Point and MultiPoint geometries of a GeoJSON
// document. Other geometry types are ignored.
func ReadGeoJSON(r io.Reader) ([]heatmap.Point, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeGeoJSON(data)
}

type geoObject struct {
	Type        string          `json:"type"`
	Features    []geoObject     `json:"features"`
	Geometry    *geoObject      `json:"geometry"`
	Geometries  []geoObject     `json:"geometries"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func decodeGeoJSON(data []byte) ([]heatmap.Point, error) {
	var root geoObject
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode geojson")
	}
	if root.Type == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "geojson object has no type")
	}
	var points []heatmap.Point
	if err := walkGeoJSON(&root, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func walkGeoJSON(o *geoObject, points *[]heatmap.Point) error {
	switch o.Type {
	case "FeatureCollection":
		for i := range o.Features {
			if err := walkGeoJSON(&o.Features[i], points); err != nil {
				return err
			}
		}
	case "Feature":
		if o.Geometry != nil {
			return walkGeoJSON(o.Geometry, points)
		}
	case "GeometryCollection":
		for i := range o.Geometries {
			if err := walkGeoJSON(&o.Geometries[i], points); err != nil {
				return err
			}
		}
	case "Point":
		var c []float64
		if err := json.Unmarshal(o.Coordinates, &c); err != nil || len(c) < 2 {
			return errors.New(errors.ErrCodeInvalidInput, "invalid Point coordinates: %s", o.Coordinates)
		}
		*points = append(*points, heatmap.Point{X: c[0], Y: c[1]})
	case "MultiPoint":
		var cs [][]float64
		if err := json.Unmarshal(o.Coordinates, &cs); err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "invalid MultiPoint coordinates: %s", o.Coordinates)
		}
		for _, c := range cs {
			if len(c) < 2 {
				return errors.New(errors.ErrCodeInvalidInput, "invalid MultiPoint position: %v", c)
			}
			*points = append(*points, heatmap.Point{X: c[0], Y: c[1]})
		}
	}
	return nil
}

// ReadKML decodes the coordinates of every Point element, wherever it is
// nested. KML tuples are lon,lat[,alt]; altitude is ignored.
func ReadKML(r io.Reader) ([]heatmap.Point, error) {
	dec := xml.NewDecoder(r)
	var points []heatmap.Point
	inPoint := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return points, nil
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode kml")
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch {
			case el.Name.Local == "Point":
				inPoint++
			case el.Name.Local == "coordinates" && inPoint > 0:
				var text string
				if err := dec.DecodeElement(&text, &el); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode kml coordinates")
				}
				ps, err := parseKMLCoordinates(text)
				if err != nil {
					return nil, err
				}
				points = append(points, ps...)
			}
		case xml.EndElement:
			if el.Name.Local == "Point" {
				inPoint--
			}
		}
	}
}

func parseKMLCoordinates(text string) ([]heatmap.Point, error) {
	var points []heatmap.Point
	for _, tuple := range strings.Fields(text) {
		vals := strings.Split(tuple, ",")
		if len(vals) < 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid kml coordinate %q", tuple)
		}
		lon, errX := strconv.ParseFloat(vals[0], 64)
		lat, errY := strconv.ParseFloat(vals[1], 64)
		if errX != nil || errY != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid kml coordinate %q", tuple)
		}
		points = append(points, heatmap.Point{X: lon, Y: lat})
	}
	return points, nil
}
