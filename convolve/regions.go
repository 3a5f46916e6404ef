package convolve

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
)

// ConvolveRegions convolves buf once and copies the result back only inside
// regions. Pixels outside every region keep their original values, while
// pixels inside a region see the full neighborhood, including samples
// outside the region. Regions are clipped to the image; empty ones are
// skipped and overlaps are harmless.
//
// Arguments:
//   - buf: The interleaved image, modified in place.
//   - k: The kernel.
//   - regions: Rectangles in pixel coordinates.
//   - opts: Optional settings, see Options.
//
// Returns:
//   - error: See Convolve. buf is untouched on error.
func ConvolveRegions[T images.Sample](buf *images.Buffer[T], k *kernels.Kernel, regions []image.Rectangle, opts ...Option) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	bounds := image.Rect(0, 0, buf.Width, buf.Height)
	clipped := make([]image.Rectangle, 0, len(regions))
	for _, r := range regions {
		if r = r.Canon().Intersect(bounds); !r.Empty() {
			clipped = append(clipped, r)
		}
	}
	if len(clipped) == 0 {
		return nil
	}

	var out *images.Buffer[T]
	var err error
	if aerr := allocate("region output", func() { out, err = images.NewBuffer[T](buf.Width, buf.Height, buf.Channels) }); aerr != nil {
		return aerr
	}
	if err != nil {
		return errors.Wrap(err, "region output")
	}
	if err := ConvolveInto(out, buf, k, opts...); err != nil {
		return err
	}

	c := buf.Channels
	for _, r := range clipped {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			copy(buf.Row(y)[r.Min.X*c:r.Max.X*c], out.Row(y)[r.Min.X*c:r.Max.X*c])
		}
	}
	Logger().Debug("convolved regions", "regions", len(clipped), "kernel", k.String())
	return nil
}
