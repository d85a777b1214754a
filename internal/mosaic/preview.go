package mosaic

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"gridstitch/pkg/colorutil"
	"gridstitch/pkg/geometry"
)

// Vector is one correspondence drawn on the preview, in canvas coordinates.
type Vector struct {
	From, To   geometry.Point2D
	Horizontal bool
}

// PreviewOptions configures RenderPreview.
type PreviewOptions struct {
	MaxSize     int  // longest side of the preview in pixels
	TileBorders bool // outline every tile
	Labels      bool // print "[i]name" inside every tile
}

// DefaultPreviewOptions returns the default preview settings.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{MaxSize: 1200, TileBorders: true, Labels: true}
}

// RenderPreview draws a scaled-down view of the tile placements with
// optional borders, labels and correspondence vectors. It only reads its
// inputs.
func RenderPreview(tiles []image.Image, names []string, extents []geometry.Extent, vectors []Vector, opts PreviewOptions) (image.Image, error) {
	if len(tiles) == 0 {
		return nil, ErrNoTiles
	}
	if len(tiles) != len(extents) {
		return nil, fmt.Errorf("got %d extents for %d tiles", len(extents), len(tiles))
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultPreviewOptions().MaxSize
	}

	bound := geometry.BoundingExtent(extents)
	scale := math.Min(1, float64(opts.MaxSize)/math.Max(bound.Width(), bound.Height()))
	w := max(1, int(math.Ceil(bound.Width()*scale)))
	h := max(1, int(math.Ceil(bound.Height()*scale)))

	toPreview := func(p geometry.Point2D) (float64, float64) {
		return (p.X - bound.Left) * scale, (p.Y - bound.Top) * scale
	}

	dc := gg.NewContext(w, h)
	dc.SetColor(colorutil.Background)
	dc.Clear()

	for i, t := range tiles {
		e := extents[i]
		x, y := toPreview(geometry.Point2D{X: e.Left, Y: e.Top})
		tw := max(1, int(math.Round(e.Width()*scale)))
		th := max(1, int(math.Round(e.Height()*scale)))
		dc.DrawImage(imaging.Resize(t, tw, th, imaging.Linear), int(math.Round(x)), int(math.Round(y)))

		if opts.TileBorders {
			dc.SetColor(colorutil.WithAlpha(colorutil.Red, 0.2))
			dc.SetLineWidth(1)
			dc.DrawRectangle(x, y, float64(tw), float64(th))
			dc.Stroke()
		}
		if opts.Labels {
			label := fmt.Sprintf("[%d]", i)
			if i < len(names) {
				label += names[i]
			}
			dc.SetColor(colorutil.White)
			dc.DrawString(label, x+0.2*float64(tw), y+0.3*float64(th))
		}
	}

	for _, v := range vectors {
		x1, y1 := toPreview(v.From)
		x2, y2 := toPreview(v.To)
		if v.Horizontal {
			dc.SetColor(colorutil.Orange)
		} else {
			dc.SetColor(colorutil.White)
		}
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()

		dc.SetColor(colorutil.Red)
		dc.DrawCircle(x1, y1, 2.5)
		dc.Fill()
		dc.SetColor(colorutil.Green)
		dc.DrawCircle(x2, y2, 1.5)
		dc.Fill()
	}

	return dc.Image(), nil
}
