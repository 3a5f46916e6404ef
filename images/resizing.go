package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Thumbnail scales img down to fit within maxWidth x maxHeight, keeping the
// aspect ratio. Images that already fit are returned unchanged. A zero limit
// leaves that axis unconstrained.
//
// Arguments:
//   - img: The source image.
//   - maxWidth: The largest output width, or 0.
//   - maxHeight: The largest output height, or 0.
//
// Returns:
//   - image.Image: The scaled image, resampled with Lanczos3.
func Thumbnail(img image.Image, maxWidth, maxHeight uint) image.Image {
	b := img.Bounds()
	w, h := uint(b.Dx()), uint(b.Dy())
	if maxWidth == 0 {
		maxWidth = w
	}
	if maxHeight == 0 {
		maxHeight = h
	}
	if w <= maxWidth && h <= maxHeight {
		return img
	}
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)
}

// Resize scales img to exactly width x height with Lanczos3 resampling.
func Resize(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "invalid dimensions: width=%d, height=%d", width, height)
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3), nil
}
