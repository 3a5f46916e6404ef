package convolve

import (
	"github.com/ajroetker/go-highway/hwy/contrib/image"
	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
	"github.com/nvr-ai/go-convolve/transform"
)

// transformConvolve runs the frequency-domain path one channel at a time.
//
// Every channel of src is first split into its own plane normalized to
// [0, 1]. A single workspace is built for the image and kernel, each plane is
// convolved in channel order and written back to dst with quantization, and
// the workspace is closed before returning.
func transformConvolve[T images.Sample](dst, src *images.Buffer[T], k *kernels.Kernel, o *Options) (err error) {
	w, h, c := src.Width, src.Height, src.Channels
	top := images.MaxValue[T]()

	wsBytes, err := transform.WorkspaceBytes(h, w, k.Rows(), k.Cols())
	if err != nil {
		return exhausted(err)
	}
	if need := wsBytes + int64(w)*int64(h)*int64(c)*4; overBudget(o, need) {
		return exhausted(errors.Wrapf(transform.ErrAllocation,
			"transform path needs %d bytes, budget is %d", need, o.MaxBytes))
	}

	var planes []*image.Image[float32]
	if err := allocate("channel planes", func() {
		planes = deinterleave(src, 1/top)
	}); err != nil {
		return err
	}

	ws, err := transform.New(h, w, k.Rows(), k.Cols(), transform.WithEdge(o.Edge))
	if err != nil {
		return exhausted(err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			Logger().Warn("failed to release transform workspace", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	Logger().Debug("transform convolution",
		"width", w, "height", h, "channels", c, "kernel", k.String(),
		"paddedWidth", ws.PaddedWidth(), "paddedHeight", ws.PaddedHeight())

	weights := k.Weights()
	stride := ws.OutputWidth()
	for ch, plane := range planes {
		if err := ws.Convolve(plane, weights); err != nil {
			return err
		}
		out := ws.Output()
		for y := 0; y < h; y++ {
			quantize(dst.Row(y)[ch:], c, out[y*stride:y*stride+w], top)
		}
	}
	return nil
}

// deinterleave copies each channel of src into its own plane, multiplying
// samples by scale.
func deinterleave[T images.Sample](src *images.Buffer[T], scale float32) []*image.Image[float32] {
	w, h, c := src.Width, src.Height, src.Channels
	planes := make([]*image.Image[float32], c)
	for ch := range planes {
		planes[ch] = image.NewImage[float32](w, h)
	}
	for y := 0; y < h; y++ {
		row := src.Row(y)
		for ch, plane := range planes {
			dst := plane.RowSlice(y)
			for x := range dst {
				dst[x] = float32(row[x*c+ch])
			}
			if scale != 1 {
				vec.BaseScale(scale, dst)
			}
		}
	}
	return planes
}
