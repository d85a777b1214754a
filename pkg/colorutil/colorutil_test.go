package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithAlpha(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 51, A: 51}, WithAlpha(Red, 0.2))
	assert.Equal(t, Red, WithAlpha(Red, 2))
	assert.Equal(t, color.RGBA{}, WithAlpha(Red, -1))
}
