// Package geometry provides the affine helpers that usually surround a
// convolution in an image pipeline: crop, rotate and a general warp.
//
// All operations read an interleaved byte buffer and return a new 4-channel
// RGBA buffer of the requested extent. Destination pixels that map outside
// the source stay transparent.
package geometry

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/nvr-ai/go-convolve/images"
)

// Identity is the affine matrix that maps every point onto itself.
var Identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// checkExtent validates a requested output extent.
func checkExtent(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(images.ErrInvalidGeometry,
			"Width and height must be > 0 but received (%d,%d)", width, height)
	}
	return nil
}

// source wraps buf as an image and allocates the destination.
func source(buf *images.Buffer[uint8], width, height int) (image.Image, *image.RGBA, error) {
	if err := checkExtent(width, height); err != nil {
		return nil, nil, err
	}
	src, err := images.ToImage(buf)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := images.MulInt(width*4, height); !ok {
		return nil, nil, errors.Wrapf(images.ErrInvalidGeometry, "output of %dx%d overflows", width, height)
	}
	return src, image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

// Crop copies the width x height region whose top-left corner is (x, y).
// The region may extend past the source; those pixels are transparent.
//
// Arguments:
//   - buf: The source buffer (1, 3 or 4 channels).
//   - x, y: The top-left corner of the region in source coordinates.
//   - width, height: The output extent.
//
// Returns:
//   - *images.Buffer[uint8]: A new RGBA buffer.
//   - error: ErrInvalidGeometry for a non-positive extent or a bad source.
func Crop(buf *images.Buffer[uint8], x, y, width, height int) (*images.Buffer[uint8], error) {
	src, dst, err := source(buf, width, height)
	if err != nil {
		return nil, err
	}
	draw.Draw(dst, dst.Rect, src, image.Pt(x, y), draw.Src)
	return images.FromImage(dst)
}

// Rotate turns the image by angle radians around anchor and centers the
// result in a width x height canvas.
//
// Arguments:
//   - buf: The source buffer.
//   - angle: The rotation in radians, clockwise in image coordinates.
//   - anchor: The fixed point of the rotation in source coordinates.
//   - width, height: The output extent.
//
// Returns:
//   - *images.Buffer[uint8]: A new RGBA buffer, bilinearly resampled.
//   - error: ErrInvalidGeometry for a non-positive extent or a bad source.
func Rotate(buf *images.Buffer[uint8], angle float64, anchor image.Point, width, height int) (*images.Buffer[uint8], error) {
	if err := checkExtent(width, height); err != nil {
		return nil, err
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return Warp(buf, RotationMatrix(angle, anchor, buf.Width, buf.Height, width, height), width, height)
}

// RotationMatrix returns the destination-to-source matrix used by Rotate.
//
// A destination point p samples the source at
// anchor + R(angle) * (p - d - anchor), where d is half the growth of the
// canvas.
func RotationMatrix(angle float64, anchor image.Point, srcW, srcH, dstW, dstH int) f64.Aff3 {
	sin, cos := math.Sincos(angle)
	ax, ay := float64(anchor.X), float64(anchor.Y)
	dx := float64(dstW-srcW) / 2
	dy := float64(dstH-srcH) / 2
	// R * (-d - a) + a
	tx := cos*(-dx-ax) - sin*(-dy-ay) + ax
	ty := sin*(-dx-ax) + cos*(-dy-ay) + ay
	return f64.Aff3{
		cos, -sin, tx,
		sin, cos, ty,
	}
}

// Warp resamples buf through an affine matrix.
//
// Arguments:
//   - buf: The source buffer.
//   - m: Maps destination coordinates to source coordinates.
//   - width, height: The output extent.
//
// Returns:
//   - *images.Buffer[uint8]: A new RGBA buffer, bilinearly resampled.
//   - error: ErrInvalidGeometry for a non-positive extent, a bad source or a
//     singular matrix.
func Warp(buf *images.Buffer[uint8], m f64.Aff3, width, height int) (*images.Buffer[uint8], error) {
	src, dst, err := source(buf, width, height)
	if err != nil {
		return nil, err
	}
	s2d, ok := Invert(m)
	if !ok {
		return nil, errors.Wrap(images.ErrInvalidGeometry, "affine matrix is singular")
	}
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)
	return images.FromImage(dst)
}

// Invert returns the inverse of an affine matrix and whether it exists.
func Invert(m f64.Aff3) (f64.Aff3, bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return f64.Aff3{}, false
	}
	inv := 1 / det
	a, b := m[4]*inv, -m[1]*inv
	d, e := -m[3]*inv, m[0]*inv
	c := -(a*m[2] + b*m[5])
	f := -(d*m[2] + e*m[5])
	return f64.Aff3{a, b, c, d, e, f}, true
}
