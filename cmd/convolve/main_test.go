package main

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-convolve/images"
)

func TestParseRect(t *testing.T) {
	r, err := parseRect("10, 20,30,40")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(10, 20, 40, 60), r)

	r, err = parseRect("-4,-2,8,6")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(-4, -2, 4, 4), r)

	for _, s := range []string{"10,10,-5,-5", "0,0,0,4", "0,0,4,0"} {
		_, err := parseRect(s)
		assert.True(t, errors.Is(err, images.ErrInvalidGeometry), "%s: unexpected error: %v", s, err)
	}

	_, err = parseRect("1,2,3")
	assert.ErrorContains(t, err, "want x,y,width,height")
	_, err = parseRect("1,2,three,4")
	assert.ErrorContains(t, err, "invalid value")
}

func TestFit(t *testing.T) {
	testCases := []struct {
		w, h       int
		maxW, maxH uint
		wantW      int
		wantH      int
	}{
		{1920, 1080, 1280, 0, 1280, 720},
		{1920, 1080, 0, 540, 960, 540},
		{640, 480, 1280, 720, 640, 480},
		{4000, 10, 100, 100, 100, 1},
	}
	for _, tc := range testCases {
		w, h := fit(tc.w, tc.h, tc.maxW, tc.maxH)
		assert.Equal(t, tc.wantW, w)
		assert.Equal(t, tc.wantH, h)
	}
}
