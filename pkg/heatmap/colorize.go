package heatmap

import (
	"image"

	"github.com/matzehuels/heatmap/pkg/palette"
)

// Colorize maps every density value of f through p into a non-premultiplied
// RGBA image of the same size.
//
// With AlphaConstant, pixels still at Cold are fully transparent and all other
// pixels get opacity. With AlphaScaled, alpha is opacity scaled by density, so
// faint edges fade out.
func Colorize(f *DensityField, p *palette.Palette, opacity int, mode AlphaMode) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	op := uint8(max(0, min(255, opacity)))

	var alpha [palette.Size]uint8
	for v := range alpha {
		switch {
		case uint8(v) == Cold:
			alpha[v] = 0
		case mode == AlphaScaled:
			alpha[v] = uint8(int(op) * (int(Cold) - v) / int(Cold))
		default:
			alpha[v] = op
		}
	}

	for y := range f.Height {
		src := f.Pix[y*f.Width : (y+1)*f.Width]
		dst := img.Pix[y*img.Stride : y*img.Stride+4*f.Width]
		for x, v := range src {
			c := p.Colors[v]
			d := dst[4*x : 4*x+4 : 4*x+4]
			d[0], d[1], d[2], d[3] = c.R, c.G, c.B, alpha[v]
		}
	}
	return img
}
