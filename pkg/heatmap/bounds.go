package heatmap

import (
	"github.com/matzehuels/heatmap/pkg/errors"
)

// ResolveBounds returns the bounding box used to map points onto the canvas.
//
// When area is non-nil it is validated and returned verbatim, even if some
// points fall outside it; those points map off-canvas and are clipped while
// stamping. Otherwise the box is the per-axis min/max of points, which is
// independent of point order. An empty point set has no bounds and fails
// with EMPTY_INPUT.
func ResolveBounds(points []Point, area *BoundingBox) (BoundingBox, error) {
	if area != nil {
		if err := area.Validate(); err != nil {
			return BoundingBox{}, err
		}
		return *area, nil
	}
	if len(points) == 0 {
		return BoundingBox{}, errors.New(errors.ErrCodeEmptyInput, "no points to compute bounds from")
	}

	b := BoundingBox{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = min(b.Min.X, p.X)
		b.Min.Y = min(b.Min.Y, p.Y)
		b.Max.X = max(b.Max.X, p.X)
		b.Max.Y = max(b.Max.Y, p.Y)
	}
	return b, nil
}
