package kernels

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// poissonRetries bounds the re-draws of an all-zero Poisson kernel.
const poissonRetries = 50

// Identity returns a rows x cols kernel with a single unit weight at its anchor.
func Identity(rows, cols int) (*Kernel, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrInvalidKernel, "invalid kernel dimensions: %dx%d", rows, cols)
	}
	w := make([]float64, rows*cols)
	w[(rows/2)*cols+cols/2] = 1
	return New(rows, cols, w)
}

// Box returns a size x size averaging kernel.
//
// Arguments:
//   - size: The side length of the kernel (>= 1).
//
// Returns:
//   - *Kernel: A kernel whose weights are all 1/size².
//   - error: ErrInvalidKernel for non-positive sizes.
func Box(size int) (*Kernel, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidKernel, "invalid box size: %d", size)
	}
	w := make([]float64, size*size)
	v := 1 / float64(size*size)
	for i := range w {
		w[i] = v
	}
	return New(size, size, w)
}

// Gaussian returns a normalized size x size Gaussian kernel.
//
// Arguments:
//   - size: The side length of the kernel (>= 1).
//   - sigma: The standard deviation. Values <= 0 derive sigma from size as
//     0.3*((size-1)*0.5-1)+0.8.
//
// Returns:
//   - *Kernel: The kernel, summing to one.
//   - error: ErrInvalidKernel for non-positive sizes.
func Gaussian(size int, sigma float64) (*Kernel, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidKernel, "invalid gaussian size: %d", size)
	}
	if sigma <= 0 {
		sigma = 0.3*((float64(size)-1)*0.5-1) + 0.8
	}
	c := float64(size/2)
	if size%2 == 0 {
		c -= 0.5
	}
	denom := 2 * sigma * sigma
	w := make([]float64, size*size)
	for j := 0; j < size; j++ {
		dy := float64(j) - c
		for i := 0; i < size; i++ {
			dx := float64(i) - c
			w[j*size+i] = math.Exp(-(dx*dx + dy*dy) / denom)
		}
	}
	k, err := New(size, size, w)
	if err != nil {
		return nil, err
	}
	return k.Normalize(), nil
}

// Poisson returns a size x size kernel of Poisson-distributed weights with
// mean size, normalized to sum to one.
//
// An all-zero draw is repeated up to 50 times; if every draw is zero the
// zero kernel is returned as is.
//
// Arguments:
//   - size: The side length of the kernel (>= 1).
//   - src: The random source. Nil uses the global source.
//
// Returns:
//   - *Kernel: The kernel.
//   - error: ErrInvalidKernel for non-positive sizes.
func Poisson(size int, src rand.Source) (*Kernel, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidKernel, "invalid poisson size: %d", size)
	}
	dist := distuv.Poisson{Lambda: float64(size), Src: src}
	w := make([]float64, size*size)
	draw := func() float64 {
		var sum float64
		for i := range w {
			w[i] = dist.Rand()
			sum += w[i]
		}
		return sum
	}

	sum := draw()
	for iter := 0; sum == 0 && iter < poissonRetries; iter++ {
		sum = draw()
	}

	k, err := New(size, size, w)
	if err != nil {
		return nil, err
	}
	return k.Normalize(), nil
}
