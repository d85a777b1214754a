package mosaic

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var tileExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true,
}

// Load decodes a tile bitmap and reports its format.
func Load(path string) (image.Image, Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Format{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, Format{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	f, err := FormatOf(img)
	if err != nil {
		return nil, Format{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, f, nil
}

// Save encodes img to path, choosing the encoder from the file extension.
func Save(img image.Image, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !tileExtensions[ext] {
		return fmt.Errorf("unsupported output extension %q", ext)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	switch ext {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 95})
	case ".tif", ".tiff":
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case ".bmp":
		err = bmp.Encode(file, img)
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}

// ExpandPaths turns directories and glob patterns into a sorted list of
// tile files. Explicit file arguments are kept in the given order.
func ExpandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, err
			}
			var files []string
			for _, e := range entries {
				if !e.IsDir() && tileExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
					files = append(files, filepath.Join(arg, e.Name()))
				}
			}
			sort.Strings(files)
			out = append(out, files...)
		case err == nil:
			out = append(out, arg)
		default:
			matches, gerr := filepath.Glob(arg)
			if gerr != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, gerr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no tiles match %q", arg)
			}
			sort.Strings(matches)
			out = append(out, matches...)
		}
	}
	return out, nil
}
