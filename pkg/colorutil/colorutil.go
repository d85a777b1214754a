// Package colorutil provides the overlay palette used by inspection views.
package colorutil

import "image/color"

// Overlay colors.
var (
	Black      = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red        = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green      = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Orange     = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	Background = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// WithAlpha returns c with its alpha replaced by a (0-1), premultiplied.
func WithAlpha(c color.RGBA, a float64) color.RGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(255 * a),
	}
}
