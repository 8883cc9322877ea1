// Package overlay exports rendered heatmaps as KML ground overlays.
//
// A ground overlay drapes the heatmap image over the map region it was
// rendered for. Points are read as lon/lat, so the overlay's LatLonBox is the
// render's bounding box: north and south from the y extent, east and west
// from the x extent.
//
// Export needs a [heatmap.Result]; without one there is no image or bounding
// box to reference and the call fails with STATE.
package overlay

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
	hmio "github.com/matzehuels/heatmap/pkg/io"
)

// Namespace is the KML 2.2 XML namespace.
const Namespace = "http://www.opengis.net/kml/2.2"

// GroundOverlay describes an image draped over a lat/lon box.
type GroundOverlay struct {
	Href     string
	North    float64
	South    float64
	East     float64
	West     float64
	Rotation float64
}

// FromResult builds the overlay for res, referencing the image at href.
func FromResult(res *heatmap.Result, href string) (GroundOverlay, error) {
	if res == nil || res.Image == nil {
		return GroundOverlay{}, errors.NoRenderedImage()
	}
	return FromBounds(res.Bounds, href), nil
}

// FromBounds builds the overlay for an image covering b, with x as longitude
// and y as latitude.
func FromBounds(b heatmap.BoundingBox, href string) GroundOverlay {
	return GroundOverlay{
		Href:  href,
		North: b.Max.Y,
		South: b.Min.Y,
		East:  b.Max.X,
		West:  b.Min.X,
	}
}

// coord marshals with the fixed 16-decimal precision Google Earth expects.
type coord float64

func (c coord) MarshalText() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(c), 'f', 16, 64), nil
}

type kmlDoc struct {
	XMLName xml.Name  `xml:"kml"`
	Xmlns   string    `xml:"xmlns,attr"`
	Folder  kmlFolder `xml:"Folder"`
}

type kmlFolder struct {
	Overlay kmlOverlay `xml:"GroundOverlay"`
}

type kmlOverlay struct {
	Href string    `xml:"Icon>href"`
	Box  latLonBox `xml:"LatLonBox"`
}

type latLonBox struct {
	North    coord   `xml:"north"`
	South    coord   `xml:"south"`
	East     coord   `xml:"east"`
	West     coord   `xml:"west"`
	Rotation float64 `xml:"rotation"`
}

// Write encodes o as a KML document.
func Write(w io.Writer, o GroundOverlay) error {
	doc := kmlDoc{
		Xmlns: Namespace,
		Folder: kmlFolder{Overlay: kmlOverlay{
			Href: o.Href,
			Box: latLonBox{
				North:    coord(o.North),
				South:    coord(o.South),
				East:     coord(o.East),
				West:     coord(o.West),
				Rotation: o.Rotation,
			},
		}},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal returns the KML document for res with the image at href.
func Marshal(res *heatmap.Result, href string) ([]byte, error) {
	o, err := FromResult(res, href)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Write(&buf, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PNGPath returns the image path paired with kmlPath: the same name with a
// .png extension.
func PNGPath(kmlPath string) string {
	return strings.TrimSuffix(kmlPath, filepath.Ext(kmlPath)) + ".png"
}

// Export writes res's image next to kmlPath (see [PNGPath]) and a KML file
// at kmlPath that references it by base name. It returns the image path.
// Nothing is written when res has no image.
func Export(res *heatmap.Result, kmlPath string) (string, error) {
	data, err := Marshal(res, filepath.Base(PNGPath(kmlPath)))
	if err != nil {
		return "", err
	}
	pngPath := PNGPath(kmlPath)
	if err := hmio.ExportPNG(res.Image, pngPath); err != nil {
		return "", err
	}
	if err := hmio.WriteFile(kmlPath, data); err != nil {
		return "", err
	}
	return pngPath, nil
}
