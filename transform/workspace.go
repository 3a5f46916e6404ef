// Package transform implements frequency-domain 2D convolution.
//
// A Workspace is sized for one source extent and one kernel extent. It owns
// the padded real grids, the half spectra and three transform plans
// (forward source, forward kernel, inverse). Plans are created and released
// under a process-wide lock; executing a plan does not take the lock.
package transform

import (
	"math"
	"runtime"
	"strings"

	"github.com/ajroetker/go-highway/hwy/contrib/image"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
)

var (
	// ErrAllocation is returned when the workspace buffers cannot be allocated.
	ErrAllocation = errors.New("cannot allocate memory for transform workspace")
	// ErrClosed is returned when a closed workspace is used.
	ErrClosed = errors.New("transform workspace is closed")
)

// Option configures a Workspace.
type Option func(*Workspace)

// WithEdge sets how the source is extended into the padding. The default is
// kernels.EdgeClamp.
func WithEdge(mode kernels.EdgeMode) Option {
	return func(w *Workspace) {
		w.edge = mode
	}
}

// WithMaxBytes rejects workspaces whose buffers would exceed n bytes with
// ErrAllocation. n <= 0 disables the check.
func WithMaxBytes(n int64) Option {
	return func(w *Workspace) {
		w.maxBytes = n
	}
}

// Workspace holds the buffers and plans for convolving a srcH x srcW plane
// with a kH x kW kernel.
type Workspace struct {
	srcH, srcW int
	kH, kW     int
	padH, padW int
	outH, outW int
	edge       kernels.EdgeMode
	maxBytes   int64

	// Padded index -> source index, per axis.
	rowMap, colMap []int

	inSrc, inKernel, dstFFT []float64
	outSrc, outKernel       []complex128
	dst                     []float32

	fwdSrc, fwdKernel, inv *plan
	closed                 bool
}

// New creates a workspace. Plan creation holds the process-wide planner lock.
//
// Arguments:
//   - srcH, srcW: The source plane extent.
//   - kH, kW: The kernel extent.
//   - opts: Optional settings.
//
// Returns:
//   - *Workspace: The workspace. Callers must Close it.
//   - error: images.ErrInvalidGeometry for non-positive extents, ErrAllocation
//     when the buffers do not fit in memory.
func New(srcH, srcW, kH, kW int, opts ...Option) (*Workspace, error) {
	if srcH <= 0 || srcW <= 0 || kH <= 0 || kW <= 0 {
		return nil, errors.Wrapf(images.ErrInvalidGeometry,
			"invalid workspace extents: source %dx%d, kernel %dx%d", srcW, srcH, kW, kH)
	}

	w := &Workspace{srcH: srcH, srcW: srcW, kH: kH, kW: kW, edge: kernels.EdgeClamp}
	for _, opt := range opts {
		opt(w)
	}

	sz, err := sizeFor(srcH, srcW, kH, kW)
	if err != nil {
		return nil, err
	}
	if w.maxBytes > 0 && sz.bytes() > w.maxBytes {
		return nil, errors.Wrapf(ErrAllocation, "padded grid %dx%d needs %d bytes, budget is %d",
			sz.padW, sz.padH, sz.bytes(), w.maxBytes)
	}
	w.padH, w.padW = sz.padH, sz.padW
	w.outH, w.outW = srcH+kH-1, srcW+kW-1
	realN, specN, outN := sz.realN, sz.specN, sz.outN

	err = allocate(func() {
		w.inSrc = make([]float64, realN)
		w.inKernel = make([]float64, realN)
		w.dstFFT = make([]float64, realN)
		w.outSrc = make([]complex128, specN)
		w.outKernel = make([]complex128, specN)
		w.dst = make([]float32, outN)
	})
	if err != nil {
		return nil, err
	}
	w.rowMap = extension(srcH, kH, w.padH, w.edge)
	w.colMap = extension(srcW, kW, w.padW, w.edge)

	err = withPlanner(func() error {
		if err := allocate(func() {
			w.fwdSrc = newPlan(w.padH, w.padW)
			w.fwdKernel = newPlan(w.padH, w.padW)
			w.inv = newPlan(w.padH, w.padW)
		}); err != nil {
			return err
		}
		live++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// sizes holds the padded extent and buffer element counts of a workspace.
type sizes struct {
	padH, padW         int
	realN, specN, outN int
}

// bytes returns the memory held by the workspace buffers.
func (s sizes) bytes() int64 {
	return int64(s.realN)*3*8 + int64(s.specN)*2*16 + int64(s.outN)*4
}

func sizeFor(srcH, srcW, kH, kW int) (sizes, error) {
	var s sizes
	var err error
	if s.padH, err = PaddedSize(srcH, kH); err != nil {
		return s, err
	}
	if s.padW, err = PaddedSize(srcW, kW); err != nil {
		return s, err
	}
	var ok1, ok2, ok3 bool
	s.realN, ok1 = images.MulInt(s.padH, s.padW)
	s.specN, ok2 = images.MulInt(s.padH, s.padW/2+1)
	s.outN, ok3 = images.MulInt(srcH+kH-1, srcW+kW-1)
	if !ok1 || !ok2 || !ok3 || s.realN > maxElements {
		return s, errors.Wrapf(ErrAllocation, "padded grid %dx%d is too large", s.padW, s.padH)
	}
	return s, nil
}

// WorkspaceBytes returns the buffer memory New would allocate for the given
// extents, or ErrAllocation when the padded grid cannot be addressed.
func WorkspaceBytes(srcH, srcW, kH, kW int) (int64, error) {
	if srcH <= 0 || srcW <= 0 || kH <= 0 || kW <= 0 {
		return 0, errors.Wrapf(images.ErrInvalidGeometry,
			"invalid workspace extents: source %dx%d, kernel %dx%d", srcW, srcH, kW, kH)
	}
	sz, err := sizeFor(srcH, srcW, kH, kW)
	if err != nil {
		return 0, err
	}
	return sz.bytes(), nil
}

// maxElements bounds a single padded grid so that every derived byte count
// fits in an int.
const maxElements = math.MaxInt / 64

// allocate runs fn and converts a failed slice allocation into ErrAllocation.
func allocate(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(runtime.Error)
			if ok && strings.Contains(re.Error(), "makeslice") {
				err = errors.Wrap(ErrAllocation, re.Error())
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

// extension maps each padded index along one axis to a source index.
//
// Indices below src are the source itself. The next k-1-k/2 indices extend
// past the far edge. The remaining indices sit circularly before index 0 and
// extend past the near edge. Both extensions go through the edge mode, which
// for EdgeClamp replicates the bottom/right edge and then the top/left edge.
func extension(src, k, padded int, mode kernels.EdgeMode) []int {
	breakpoint := src + (k - 1 - k/2)
	out := make([]int, padded)
	for p := range out {
		e := p
		if p >= breakpoint {
			e = p - padded
		}
		out[p] = mode.Map(e, src)
	}
	return out
}

// PaddedHeight returns the padded transform height.
func (w *Workspace) PaddedHeight() int { return w.padH }

// PaddedWidth returns the padded transform width.
func (w *Workspace) PaddedWidth() int { return w.padW }

// OutputHeight returns srcH+kH-1.
func (w *Workspace) OutputHeight() int { return w.outH }

// OutputWidth returns srcW+kW-1.
func (w *Workspace) OutputWidth() int { return w.outW }

// Output returns the result of the last Convolve, OutputHeight rows of
// OutputWidth samples. Pixel (x, y) of the source maps to Output()[y*OutputWidth()+x].
func (w *Workspace) Output() []float32 { return w.dst }

// Convolve computes, for every source pixel (x, y),
//
//	out(y, x) = sum_j sum_i src(y+j-cy, x+i-cx) * kernel[j*kW+i]
//
// where (cy, cx) = (kH/2, kW/2) and out-of-range source coordinates follow
// the edge mode. The result is available from Output.
//
// Arguments:
//   - src: A srcW x srcH plane.
//   - kernel: kH*kW row-major weights.
//
// Returns:
//   - error: ErrClosed after Close, images.ErrInvalidGeometry on size mismatch.
func (w *Workspace) Convolve(src *image.Image[float32], kernel []float64) error {
	if w.closed {
		return ErrClosed
	}
	if src == nil || src.Width() != w.srcW || src.Height() != w.srcH {
		return errors.Wrapf(images.ErrInvalidGeometry, "plane does not match %dx%d workspace", w.srcW, w.srcH)
	}
	if len(kernel) != w.kH*w.kW {
		return errors.Wrapf(images.ErrInvalidGeometry, "kernel of %d weights does not match %dx%d workspace",
			len(kernel), w.kW, w.kH)
	}

	w.embedSource(src)
	w.embedKernel(kernel)

	w.fwdSrc.forward(w.outSrc, w.inSrc)
	w.fwdKernel.forward(w.outKernel, w.inKernel)

	area := float64(w.padH) * float64(w.padW)
	var scale float64
	if area > 0 {
		scale = 1 / area
	}
	s := complex(scale, 0)
	for i, v := range w.outSrc {
		w.outSrc[i] = v * w.outKernel[i] * s
	}

	w.inv.inverse(w.dstFFT, w.outSrc)

	for y := 0; y < w.outH; y++ {
		row := w.dstFFT[y*w.padW : y*w.padW+w.outW]
		out := w.dst[y*w.outW : (y+1)*w.outW]
		for x, v := range row {
			out[x] = float32(v)
		}
	}
	return nil
}

// embedSource fills every cell of the padded source grid.
func (w *Workspace) embedSource(src *image.Image[float32]) {
	for py, sy := range w.rowMap {
		srcRow := src.RowSlice(sy)
		dst := w.inSrc[py*w.padW : (py+1)*w.padW]
		for px, sx := range w.colMap {
			dst[px] = float64(srcRow[sx])
		}
	}
}

// embedKernel places weight (j, i) at ((cy-j) mod padH, (cx-i) mod padW), so
// the circular product evaluates the same tap orientation as a spatial
// weighted sum.
func (w *Workspace) embedKernel(kernel []float64) {
	clear(w.inKernel)
	cy, cx := w.kH/2, w.kW/2
	for j := 0; j < w.kH; j++ {
		py := mod(cy-j, w.padH)
		for i := 0; i < w.kW; i++ {
			px := mod(cx-i, w.padW)
			w.inKernel[py*w.padW+px] = kernel[j*w.kW+i]
		}
	}
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// Close releases the plans under the planner lock. Calling Close more than
// once is safe.
func (w *Workspace) Close() error {
	return withPlanner(func() error {
		if w.closed {
			return nil
		}
		w.closed = true
		live--
		w.fwdSrc, w.fwdKernel, w.inv = nil, nil, nil
		w.inSrc, w.inKernel, w.dstFFT = nil, nil, nil
		w.outSrc, w.outKernel = nil, nil
		return nil
	})
}
