// Package kernels provides the weight matrices applied by the convolution
// engine, together with generators for common blur kernels.
package kernels

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidKernel is returned for kernels that cannot be applied.
var ErrInvalidKernel = errors.New("invalid kernel")

// Kernel is an immutable rows x cols matrix of real weights.
//
// The anchor of the kernel is (Rows()/2, Cols()/2) using integer division, so
// even-sized kernels are asymmetric by one cell.
type Kernel struct {
	m *mat.Dense
}

// New creates a kernel from row-major weights.
//
// Arguments:
//   - rows: The number of kernel rows (>= 1).
//   - cols: The number of kernel columns (>= 1).
//   - weights: rows*cols finite weights in row-major order. The slice is copied.
//
// Returns:
//   - *Kernel: The kernel.
//   - error: ErrInvalidKernel when the shape or the weights are unusable.
func New(rows, cols int, weights []float64) (*Kernel, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrInvalidKernel, "invalid kernel dimensions: %dx%d", rows, cols)
	}
	if rows > math.MaxInt/cols || len(weights) != rows*cols {
		return nil, errors.Wrapf(ErrInvalidKernel, "%dx%d kernel needs %d weights, got %d",
			rows, cols, rows*cols, len(weights))
	}
	for idx, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.Wrapf(ErrInvalidKernel, "weight %d is not finite: %v", idx, w)
		}
	}
	data := make([]float64, len(weights))
	copy(data, weights)
	return &Kernel{m: mat.NewDense(rows, cols, data)}, nil
}

// MustNew is like New but panics on error. Intended for package-level kernels.
func MustNew(rows, cols int, weights []float64) *Kernel {
	k, err := New(rows, cols, weights)
	if err != nil {
		panic(err)
	}
	return k
}

// FromMatrix copies any gonum matrix into a kernel.
func FromMatrix(m mat.Matrix) (*Kernel, error) {
	if m == nil {
		return nil, errors.Wrap(ErrInvalidKernel, "nil matrix")
	}
	rows, cols := m.Dims()
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrInvalidKernel, "invalid kernel dimensions: %dx%d", rows, cols)
	}
	weights := make([]float64, 0, rows*cols)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			weights = append(weights, m.At(j, i))
		}
	}
	return New(rows, cols, weights)
}

// Rows returns the number of kernel rows.
func (k *Kernel) Rows() int {
	r, _ := k.m.Dims()
	return r
}

// Cols returns the number of kernel columns.
func (k *Kernel) Cols() int {
	_, c := k.m.Dims()
	return c
}

// Center returns the anchor row and column.
func (k *Kernel) Center() (cy, cx int) {
	r, c := k.m.Dims()
	return r / 2, c / 2
}

// At returns the weight at row j, column i.
func (k *Kernel) At(j, i int) float64 {
	return k.m.At(j, i)
}

// Sum returns the sum of all weights.
func (k *Kernel) Sum() float64 {
	return mat.Sum(k.m)
}

// Weights returns a row-major copy of the weights.
func (k *Kernel) Weights() []float64 {
	r, c := k.m.Dims()
	out := make([]float64, r*c)
	for j := 0; j < r; j++ {
		mat.Row(out[j*c:(j+1)*c], j, k.m)
	}
	return out
}

// Weights32 returns a row-major float32 copy of the weights.
func (k *Kernel) Weights32() []float32 {
	w := k.Weights()
	out := make([]float32, len(w))
	for i, v := range w {
		out[i] = float32(v)
	}
	return out
}

// Matrix returns a copy of the kernel as a gonum matrix.
func (k *Kernel) Matrix() *mat.Dense {
	return mat.DenseCopyOf(k.m)
}

// Scale returns a new kernel with every weight multiplied by f.
func (k *Kernel) Scale(f float64) *Kernel {
	var out mat.Dense
	out.Scale(f, k.m)
	return &Kernel{m: &out}
}

// Normalize returns a kernel whose weights sum to one. A kernel whose weights
// sum to zero is returned unchanged.
func (k *Kernel) Normalize() *Kernel {
	sum := k.Sum()
	if sum == 0 {
		return &Kernel{m: mat.DenseCopyOf(k.m)}
	}
	return k.Scale(1 / sum)
}

// Pad returns a rows x cols kernel holding k at its anchor and zeros around
// it. The anchor of the padded kernel coincides with the anchor of k, so
// convolving with either produces the same weighted sums.
//
// Arguments:
//   - rows: The padded row count, at least Rows().
//   - cols: The padded column count, at least Cols().
//
// Returns:
//   - *Kernel: The padded kernel.
//   - error: ErrInvalidKernel when the target is smaller than k.
func (k *Kernel) Pad(rows, cols int) (*Kernel, error) {
	r, c := k.m.Dims()
	if rows < r || cols < c {
		return nil, errors.Wrapf(ErrInvalidKernel, "cannot pad %dx%d kernel to %dx%d", r, c, rows, cols)
	}
	oy := rows/2 - r/2
	ox := cols/2 - c/2
	out := mat.NewDense(rows, cols, nil)
	out.Slice(oy, oy+r, ox, ox+c).(*mat.Dense).Copy(k.m)
	return &Kernel{m: out}, nil
}

// String implements fmt.Stringer.
func (k *Kernel) String() string {
	r, c := k.m.Dims()
	return fmt.Sprintf("Kernel(%dx%d, sum=%.4g)", r, c, k.Sum())
}
