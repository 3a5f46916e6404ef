// Package convolve applies a 2D weight kernel to multi-channel raster images.
//
// Small kernels (both sides under 7) are evaluated directly in the spatial
// domain across parallel row tiles. Larger kernels are applied in the
// frequency domain, one channel at a time. Both paths read outside the image
// through the same edge mode (clamp by default) and quantize the result back
// to the buffer's sample type.
//
// Example:
//
//	k, _ := kernels.Gaussian(9, 0)
//	buf, _ := images.FromImage(img)
//	if err := convolve.Convolve(buf, k); err != nil {
//		return err
//	}
package convolve

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
)

// Convolve replaces every pixel of buf with the kernel-weighted sum of its
// neighborhood. buf is only modified once the whole result is computed.
//
// Arguments:
//   - buf: The interleaved image, modified in place.
//   - k: The kernel; its anchor is (Rows()/2, Cols()/2).
//   - opts: Optional settings, see Options.
//
// Returns:
//   - error: ErrInvalidGeometry for malformed buffers (buf untouched),
//     ErrResourceExhausted when scratch or workspace memory is unavailable.
func Convolve[T images.Sample](buf *images.Buffer[T], k *kernels.Kernel, opts ...Option) error {
	return ConvolveInto(buf, buf, k, opts...)
}

// ConvolveInto is like Convolve but writes the result into dst, which must
// have the geometry of src. dst may be src.
func ConvolveInto[T images.Sample](dst, src *images.Buffer[T], k *kernels.Kernel, opts ...Option) error {
	if err := src.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := dst.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if !images.SameGeometry(dst, src) {
		return errors.Wrapf(ErrInvalidGeometry, "destination %dx%dx%d does not match source %dx%dx%d",
			dst.Width, dst.Height, dst.Channels, src.Width, src.Height, src.Channels)
	}
	if k == nil {
		return ErrNilKernel
	}

	o := DefaultOptions().Apply(opts...)
	if o.MaxPixels > 0 {
		if n, ok := images.MulInt(src.Width, src.Height); !ok || n > o.MaxPixels {
			return errors.Wrapf(ErrResourceExhausted, "%dx%d image exceeds %d pixels", src.Width, src.Height, o.MaxPixels)
		}
	}

	strategy := o.resolve(k.Rows(), k.Cols())
	Logger().Debug("convolve", "strategy", strategy.String(), "edge", o.Edge.String())

	switch strategy {
	case StrategyDirect:
		return direct(dst, src, k, &o)
	default:
		return transformConvolve(dst, src, k, &o)
	}
}

// ConvolveRGBA convolves a raw interleaved 4-channel byte image in place.
//
// Arguments:
//   - pix: The pixel bytes, row-major with stride bytes per row.
//   - stride: The row pitch in bytes, at least width*4.
//   - width, height: The image extent in pixels.
//   - k: The kernel.
//   - opts: Optional settings.
//
// Returns:
//   - error: See Convolve.
func ConvolveRGBA(pix []byte, stride, width, height int, k *kernels.Kernel, opts ...Option) error {
	return Convolve(&images.Buffer[uint8]{
		Pix:      pix,
		Width:    width,
		Height:   height,
		Stride:   stride,
		Channels: 4,
	}, k, opts...)
}
