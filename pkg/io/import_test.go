package io

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
)

func equalPoints(a, b []heatmap.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []heatmap.Point
	}{
		{"xy header", "x,y\n1,2\n3.5,-4\n", []heatmap.Point{{X: 1, Y: 2}, {X: 3.5, Y: -4}}},
		{"lat lon header reordered", "name,Latitude,Longitude\na,47.6,-122.3\nb,40.7,-74.0\n", []heatmap.Point{{X: -122.3, Y: 47.6}, {X: -74.0, Y: 40.7}}},
		{"headerless", "1,2\n3,4\n", []heatmap.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}},
		{"comments and blank lines", "# points\nx,y\n\n1, 2\n", []heatmap.Point{{X: 1, Y: 2}}},
		{"extra columns", "lng,lat,weight\n10,20,5\n", []heatmap.Point{{X: 10, Y: 20}}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCSV(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadCSV: %v", err)
			}
			if !equalPoints(got, tt.want) {
				t.Errorf("ReadCSV = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"bad number", "x,y\n1,2\n3,abc\n", "line 3"},
		{"short row", "x,y\n1\n", "line 2"},
		{"header only names one axis", "x,weight\n1,2\n", "line 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.line) {
				t.Errorf("error %q does not mention %q", err, tt.line)
			}
		})
	}
}

func TestReadTSV(t *testing.T) {
	got, err := Read(strings.NewReader("lon\tlat\n1\t2\n"), FormatTSV)
	if err != nil {
		t.Fatal(err)
	}
	if !equalPoints(got, []heatmap.Point{{X: 1, Y: 2}}) {
		t.Errorf("got %v", got)
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []heatmap.Point
	}{
		{"pairs", `[[1,2],[3,4,99]]`, []heatmap.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}},
		{"objects", `[{"x":1,"y":2},{"x":-1,"y":0.5}]`, []heatmap.Point{{X: 1, Y: 2}, {X: -1, Y: 0.5}}},
		{"lon lat objects", `[{"lat":10,"lon":20},{"lat":1,"lng":2}]`, []heatmap.Point{{X: 20, Y: 10}, {X: 2, Y: 1}}},
		{"mixed", `[[0,0],{"x":1,"y":1}]`, []heatmap.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		{"empty", `[]`, []heatmap.Point{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadJSON(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadJSON: %v", err)
			}
			if !equalPoints(got, tt.want) {
				t.Errorf("ReadJSON = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadJSONErrors(t *testing.T) {
	for _, input := range []string{`not json`, `[[1]]`, `[{"x":1}]`, `[true]`, `"str"`} {
		_, err := ReadJSON(strings.NewReader(input))
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ReadJSON(%s): expected INVALID_INPUT, got %v", input, err)
		}
	}
}

func TestReadGeoJSON(t *testing.T) {
	doc := `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 2]}},
	    {"type": "Feature", "geometry": {"type": "MultiPoint", "coordinates": [[3, 4], [5, 6, 7]]}},
	    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[9, 9], [8, 8]]}},
	    {"type": "Feature", "geometry": null},
	    {"type": "Feature", "geometry": {"type": "GeometryCollection", "geometries": [
	      {"type": "Point", "coordinates": [-1, -2]}
	    ]}}
	  ]
	}`
	want := []heatmap.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}, {X: -1, Y: -2}}

	got, err := ReadGeoJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadGeoJSON: %v", err)
	}
	if !equalPoints(got, want) {
		t.Errorf("ReadGeoJSON = %v, want %v", got, want)
	}

	// ReadJSON accepts GeoJSON objects too.
	got, err = ReadJSON(strings.NewReader(`{"type":"Point","coordinates":[7,8]}`))
	if err != nil || !equalPoints(got, []heatmap.Point{{X: 7, Y: 8}}) {
		t.Errorf("ReadJSON(geojson) = %v, %v", got, err)
	}

	_, err = ReadGeoJSON(strings.NewReader(`{"type":"Point","coordinates":[1]}`))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for short position, got %v", err)
	}
}

func TestReadKML(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Folder>
      <Placemark><name>a</name><Point><coordinates>-122.08,37.42,0</coordinates></Point></Placemark>
      <Placemark><Point><coordinates>
        1.5,2.5
      </coordinates></Point></Placemark>
    </Folder>
    <Placemark><LineString><coordinates>9,9 8,8</coordinates></LineString></Placemark>
  </Document>
</kml>`
	want := []heatmap.Point{{X: -122.08, Y: 37.42}, {X: 1.5, Y: 2.5}}

	got, err := ReadKML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadKML: %v", err)
	}
	if !equalPoints(got, want) {
		t.Errorf("ReadKML = %v, want %v", got, want)
	}

	_, err = ReadKML(strings.NewReader(`<kml><Placemark><Point><coordinates>abc</coordinates></Point></Placemark></kml>`))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestReadAuto(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"csv", "x,y\n1,2\n"},
		{"json", "  \n[[1,2]]"},
		{"geojson", `{"type":"Point","coordinates":[1,2]}`},
		{"kml", `<kml><Placemark><Point><coordinates>1,2</coordinates></Point></Placemark></kml>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAuto(strings.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if !equalPoints(got, []heatmap.Point{{X: 1, Y: 2}}) {
				t.Errorf("ReadAuto = %v", got)
			}
		})
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.csv")
	if err := os.WriteFile(path, []byte("x,y\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Import(path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !equalPoints(got, []heatmap.Point{{X: 1, Y: 2}}) {
		t.Errorf("Import = %v", got)
	}

	if _, err := Import(filepath.Join(dir, "missing.csv")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
	if _, err := Import(filepath.Join(dir, "points.xyz")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("expected INVALID_FORMAT, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/points.json":
			w.Write([]byte(`[[1,2]]`))
		case "/export":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Write([]byte("lat,lon\n2,1\n"))
		case "/unknown":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte(`<kml><Point><coordinates>1,2</coordinates></Point></kml>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/points.json", "/export", "/unknown"} {
		t.Run(path, func(t *testing.T) {
			got, err := Fetch(context.Background(), srv.Client(), srv.URL+path)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if !equalPoints(got, []heatmap.Point{{X: 1, Y: 2}}) {
				t.Errorf("Fetch = %v", got)
			}
		})
	}

	_, err := Fetch(context.Background(), srv.Client(), srv.URL+"/nope.csv")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	_, err = Fetch(context.Background(), srv.Client(), "ftp://example.com/points.csv")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ftp url: expected INVALID_INPUT, got %v", err)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	points := []heatmap.Point{{X: 1, Y: 2}, {X: -3.25, Y: 4e6}}
	var buf bytes.Buffer
	if err := WriteJSON(points, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !equalPoints(got, points) {
		t.Errorf("round trip = %v, want %v", got, points)
	}
}
