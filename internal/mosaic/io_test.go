package mosaic

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := patterned(6, 5, 3)

	for _, name := range []string{"tile.png", "tile.tiff"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(src, path))

			img, f, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 6, 5), img.Bounds())
			if name == "tile.png" {
				assert.Equal(t, Format{1, Uint8, "gray"}, f)
				assert.Equal(t, src.Pix, img.(*image.Gray).Pix)
			}
		})
	}
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	assert.Error(t, Save(solid(2, 2, 0), filepath.Join(t.TempDir(), "out.webp")))
}

func TestLoadMissing(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"r1c0.png", "r0c1.png", "r0c0.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}

	got, err := ExpandPaths([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "r0c0.png"),
		filepath.Join(dir, "r0c1.png"),
		filepath.Join(dir, "r1c0.png"),
	}, got)

	got, err = ExpandPaths([]string{filepath.Join(dir, "r0*.png")})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = ExpandPaths([]string{filepath.Join(dir, "zzz*.png")})
	assert.Error(t, err)
}
