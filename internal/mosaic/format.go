// Package mosaic composites registered tiles into a single raster and
// provides the tile loader, raster writer and inspection preview around it.
package mosaic

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

var (
	// ErrNoTiles is returned when there is nothing to composite.
	ErrNoTiles = errors.New("no tiles")
	// ErrUnsupportedFormat is returned for pixel layouts the compositor cannot allocate.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
)

// SampleType describes how one channel value is stored.
type SampleType int

const (
	Uint8 SampleType = iota
	Uint16
)

func (s SampleType) String() string {
	switch s {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	default:
		return "unknown"
	}
}

// Format is the channel count, sample type and memory layout of a bitmap.
type Format struct {
	Channels int
	Sample   SampleType
	Layout   string // Go image type backing the bitmap
}

func (f Format) String() string {
	return fmt.Sprintf("%dx%s (%s)", f.Channels, f.Sample, f.Layout)
}

// FormatOf reports the format of a decoded bitmap.
func FormatOf(img image.Image) (Format, error) {
	switch img.(type) {
	case *image.Gray:
		return Format{1, Uint8, "gray"}, nil
	case *image.Gray16:
		return Format{1, Uint16, "gray16"}, nil
	case *image.YCbCr:
		return Format{3, Uint8, "ycbcr"}, nil
	case *image.RGBA:
		return Format{4, Uint8, "rgba"}, nil
	case *image.NRGBA:
		return Format{4, Uint8, "nrgba"}, nil
	case *image.CMYK:
		return Format{4, Uint8, "cmyk"}, nil
	case *image.RGBA64:
		return Format{4, Uint16, "rgba64"}, nil
	case *image.NRGBA64:
		return Format{4, Uint16, "nrgba64"}, nil
	default:
		return Format{}, fmt.Errorf("%w: %T", ErrUnsupportedFormat, img)
	}
}

// ChannelMismatchError reports a tile whose format differs from the first tile's.
type ChannelMismatchError struct {
	Tile int
	Want Format
	Got  Format
}

func (e *ChannelMismatchError) Error() string {
	return fmt.Sprintf("tile %d has format %s, expected %s", e.Tile, e.Got, e.Want)
}

// newCanvas allocates a zeroed bitmap of format f. YCbCr tiles, as decoded
// from JPEG, have no writable Go counterpart and go onto an RGBA canvas.
func newCanvas(f Format, r image.Rectangle) (draw.Image, error) {
	switch f.Layout {
	case "gray":
		return image.NewGray(r), nil
	case "gray16":
		return image.NewGray16(r), nil
	case "rgba", "ycbcr":
		return image.NewRGBA(r), nil
	case "nrgba":
		return image.NewNRGBA(r), nil
	case "cmyk":
		return image.NewCMYK(r), nil
	case "rgba64":
		return image.NewRGBA64(r), nil
	case "nrgba64":
		return image.NewNRGBA64(r), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Layout)
	}
}
