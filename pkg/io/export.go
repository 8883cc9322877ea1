package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
)

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// WriteJSON encodes points as an indented JSON array of {"x", "y"} objects.
// The output can be read back with [ReadJSON].
func WriteJSON(points []heatmap.Point, w io.Writer) error {
	if points == nil {
		points = []heatmap.Point{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(points); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes points to a JSON file at path.
func ExportJSON(points []heatmap.Point, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(points, w) })
}

// EncodePNG returns img encoded as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePNG encodes img as PNG to w.
func WritePNG(w io.Writer, img image.Image) error {
	if isNilImage(img) {
		return errors.NoRenderedImage()
	}
	if err := pngEncoder.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNG writes img to a PNG file at path.
func ExportPNG(img image.Image, path string) error {
	if isNilImage(img) {
		return errors.NoRenderedImage()
	}
	return writeFile(path, func(w io.Writer) error { return WritePNG(w, img) })
}

func isNilImage(img image.Image) bool {
	if img == nil {
		return true
	}
	n, ok := img.(*image.NRGBA)
	return ok && n == nil
}

// WriteFile writes data to path, leaving no partial file behind on error.
func WriteFile(path string, data []byte) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeFile streams into a temporary file next to path and renames it into
// place once fn succeeds.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".heatmap-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmp := f.Name()
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
