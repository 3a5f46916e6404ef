package convolve

import (
	"unsafe"

	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
	"github.com/nvr-ai/go-convolve/parallel"
)

// direct evaluates the weighted sum of every pixel in the spatial domain.
//
// Rows are split into fixed tiles. Each tile reads a float32 copy of the
// source and writes a scratch buffer; dst is only written after every tile
// has joined. Taps are accumulated in the same (j, i) order for every pixel,
// so the result does not depend on the tile count.
func direct[T images.Sample](dst, src *images.Buffer[T], k *kernels.Kernel, o *Options) error {
	w, h, c := src.Width, src.Height, src.Channels
	rowLen := w * c

	var zero T
	if need := int64(rowLen) * int64(h) * (4 + int64(unsafe.Sizeof(zero))); overBudget(o, need) {
		return errors.Wrapf(ErrResourceExhausted, "direct path needs %d bytes, budget is %d", need, o.MaxBytes)
	}

	var in []float32
	if err := allocate("direct source copy", func() { in = make([]float32, rowLen*h) }); err != nil {
		return err
	}
	pool, _ := o.scratch.(*images.Pool[T])
	var scratch *images.Buffer[T]
	var err error
	if aerr := allocate("direct scratch", func() { scratch, err = pool.Get(w, h, c) }); aerr != nil {
		return aerr
	}
	if err != nil {
		return err
	}
	defer pool.Put(scratch)

	exec := &parallel.Executor{Workers: o.Workers, Pool: o.Pool}
	Logger().Debug("direct convolution",
		"width", w, "height", h, "channels", c,
		"kernel", k.String(), "tiles", len(exec.Plan(w, h)))

	err = exec.Run(w, h, func(r parallel.Range) error {
		for y := r.Start; y < r.End; y++ {
			widen(in[y*rowLen:(y+1)*rowLen], src.Row(y))
		}
		return nil
	})
	if err != nil {
		return err
	}

	weights := k.Weights32()
	kH, kW := k.Rows(), k.Cols()
	cy, cx := k.Center()
	edge := o.Edge

	err = exec.Run(w, h, func(r parallel.Range) error {
		acc := make([]float32, rowLen)
		for y := r.Start; y < r.End; y++ {
			clear(acc)
			for j := 0; j < kH; j++ {
				sy := edge.Map(y+j-cy, h)
				row := in[sy*rowLen : (sy+1)*rowLen]
				for i := 0; i < kW; i++ {
					if wt := weights[j*kW+i]; wt != 0 {
						accumulate(acc, row, wt, i-cx, w, c, edge)
					}
				}
			}
			quantize(scratch.Row(y), 1, acc, 1)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return dst.CopyFrom(scratch)
}

// accumulate adds wt * row[x+dx] to acc[x] for every column x. Columns whose
// tap falls inside the row use a vector multiply-add; the rest go through the
// edge mode.
func accumulate(acc, row []float32, wt float32, dx, w, c int, edge kernels.EdgeMode) {
	lo := max(0, -dx)
	hi := min(w, w-dx)
	if lo < hi {
		vec.BaseMulConstAddTo(acc[lo*c:hi*c], wt, row[(lo+dx)*c:(hi+dx)*c])
	} else {
		lo, hi = w, w
	}
	for x := 0; x < lo; x++ {
		sx := edge.Map(x+dx, w)
		for ch := 0; ch < c; ch++ {
			acc[x*c+ch] += wt * row[sx*c+ch]
		}
	}
	for x := hi; x < w; x++ {
		sx := edge.Map(x+dx, w)
		for ch := 0; ch < c; ch++ {
			acc[x*c+ch] += wt * row[sx*c+ch]
		}
	}
}
