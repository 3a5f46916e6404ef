package transform

import (
	"math"

	"github.com/pkg/errors"
)

// NextGoodSize returns the smallest integer >= n whose only prime factors are
// 2, 3 and 5. Those are the radices with dedicated butterflies in the
// transform backend; other factors fall back to a slow generic pass.
//
// Arguments:
//   - n: The minimum length. Values < 1 return 1.
//
// Returns:
//   - int: The transform-friendly length, or n itself when no such length
//     fits in an int.
func NextGoodSize(n int) int {
	if n <= 1 {
		return 1
	}
	for m := n; m > 0 && m < math.MaxInt; m++ {
		if isSmooth(m) {
			return m
		}
	}
	return n
}

func isSmooth(m int) bool {
	for _, p := range [...]int{2, 3, 5} {
		for m%p == 0 {
			m /= p
		}
	}
	return m == 1
}

// PaddedSize returns the transform length for one axis of a linear
// convolution of a src-long signal with a k-long kernel:
// max(NextGoodSize(src+k-1), src+k-1).
//
// Arguments:
//   - src: The source extent along the axis (>= 1).
//   - k: The kernel extent along the axis (>= 1).
//
// Returns:
//   - int: The padded length, never smaller than src+k-1.
//   - error: ErrAllocation when src+k-1 does not fit in an int.
func PaddedSize(src, k int) (int, error) {
	if src <= 0 || k <= 0 {
		return 0, errors.Errorf("invalid extents: source %d, kernel %d", src, k)
	}
	if src > math.MaxInt-k {
		return 0, errors.Wrapf(ErrAllocation, "padded extent %d+%d-1 overflows", src, k)
	}
	linear := src + k - 1
	return max(NextGoodSize(linear), linear), nil
}
