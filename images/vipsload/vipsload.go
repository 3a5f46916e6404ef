// Package vipsload decodes and down-scales encoded images in one pass with
// libvips. It links against the libvips system library, so only binaries
// that opt into shrink-on-load import it.
package vipsload

import (
	"bytes"
	"image"
	"image/png"

	"github.com/cshum/vipsgen/vips"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images"
)

// Shrink decodes and down-scales encoded image bytes, which avoids
// materializing very large inputs at full size.
//
// Arguments:
//   - data: The encoded image (any format libvips can load).
//   - width: The target width.
//   - height: The target height bound; the aspect ratio is kept.
//
// Returns:
//   - image.Image: The scaled image.
//   - error: images.ErrInvalidGeometry for non-positive targets, or an error
//     if the image fails to load or resize.
func Shrink(data []byte, width, height int) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(images.ErrInvalidGeometry, "invalid dimensions: width=%d, height=%d", width, height)
	}

	img, err := vips.NewImageFromBuffer(data, &vips.LoadOptions{
		Access: vips.AccessSequential,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load image")
	}
	defer img.Close()

	err = img.ThumbnailImage(width, &vips.ThumbnailImageOptions{
		Height: height,
		FailOn: vips.FailOnError,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resize image")
	}

	// Re-encode losslessly for the Go decoder.
	out, err := img.PngsaveBuffer(&vips.PngsaveBufferOptions{})
	if err != nil || len(out) == 0 {
		return nil, errors.New("failed to encode resized image")
	}
	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode resized image")
	}
	return decoded, nil
}
