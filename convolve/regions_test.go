package convolve

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-convolve/images/kernels"
)

func TestConvolveRegionsMatchesFullConvolutionInside(t *testing.T) {
	k, err := kernels.Box(3)
	require.NoError(t, err)

	orig := randomBuffer(t, 11, 24, 16, 3)
	full := orig.Clone()
	require.NoError(t, Convolve(full, k))

	buf := orig.Clone()
	region := image.Rect(4, 2, 12, 9)
	require.NoError(t, ConvolveRegions(buf, k, []image.Rectangle{region}))

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			want := orig
			if image.Pt(x, y).In(region) {
				want = full
			}
			for c := 0; c < buf.Channels; c++ {
				require.Equal(t, want.At(x, y, c), buf.At(x, y, c), "pixel (%d,%d,%d)", x, y, c)
			}
		}
	}
}

func TestConvolveRegionsClipsAndSkipsEmpty(t *testing.T) {
	k, err := kernels.Gaussian(9, 0)
	require.NoError(t, err)

	orig := randomBuffer(t, 5, 10, 10, 1)
	buf := orig.Clone()
	require.NoError(t, ConvolveRegions(buf, k, []image.Rectangle{
		image.Rect(20, 20, 30, 30),
		image.Rect(3, 3, 3, 8),
	}))
	assert.Equal(t, orig.Pix, buf.Pix)

	full := orig.Clone()
	require.NoError(t, Convolve(full, k))
	require.NoError(t, ConvolveRegions(buf, k, []image.Rectangle{image.Rect(-5, -5, 50, 50)}))
	assert.Equal(t, full.Pix, buf.Pix)
}
