package convolve

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/transform"
)

var (
	// ErrResourceExhausted is returned when scratch or workspace memory
	// cannot be obtained, or the request exceeds Options.MaxPixels.
	ErrResourceExhausted = errors.New("cannot allocate memory for convolution")
	// ErrInvalidGeometry aliases images.ErrInvalidGeometry.
	ErrInvalidGeometry = images.ErrInvalidGeometry
	// ErrNilKernel is returned when no kernel is supplied.
	ErrNilKernel = errors.New("nil kernel")
)

// exhausted marks err as ErrResourceExhausted while keeping it inspectable.
func exhausted(err error) error {
	if errors.Is(err, transform.ErrAllocation) {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}
	return err
}

// overBudget reports whether need bytes exceed the call's memory budget.
func overBudget(o *Options, need int64) bool {
	return o.MaxBytes > 0 && need > o.MaxBytes
}

// allocate runs fn and turns a failed slice allocation into ErrResourceExhausted.
func allocate(what string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(runtime.Error)
			if ok && strings.Contains(re.Error(), "makeslice") {
				err = errors.Wrapf(ErrResourceExhausted, "%s: %v", what, re)
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}
