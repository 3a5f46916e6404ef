package kernels

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// FromTensor builds a kernel from a 2D tensor of float32 or float64 values.
//
// Arguments:
//   - t: A dense tensor of shape (rows, cols).
//
// Returns:
//   - *Kernel: The kernel.
//   - error: ErrInvalidKernel for tensors of the wrong rank or element type.
func FromTensor(t *tensor.Dense) (*Kernel, error) {
	if t == nil {
		return nil, errors.Wrap(ErrInvalidKernel, "nil tensor")
	}
	if t.Dims() != 2 {
		return nil, errors.Wrapf(ErrInvalidKernel, "kernel tensor must be 2D, got shape %v", t.Shape())
	}
	shape := t.Shape()
	rows, cols := shape[0], shape[1]

	var weights []float64
	switch data := t.Data().(type) {
	case []float64:
		weights = data
	case []float32:
		weights = make([]float64, len(data))
		for i, v := range data {
			weights[i] = float64(v)
		}
	default:
		return nil, errors.Wrapf(ErrInvalidKernel, "unsupported kernel tensor dtype %v", t.Dtype())
	}

	if !t.DataOrder().IsRowMajor() || t.IsMaterializable() {
		weights = make([]float64, 0, rows*cols)
		for j := 0; j < rows; j++ {
			for i := 0; i < cols; i++ {
				v, err := t.At(j, i)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to read kernel tensor at (%d,%d)", j, i)
				}
				switch f := v.(type) {
				case float64:
					weights = append(weights, f)
				case float32:
					weights = append(weights, float64(f))
				}
			}
		}
	}
	return New(rows, cols, weights)
}

// ToTensor exports the kernel as a float64 tensor of shape (rows, cols).
func (k *Kernel) ToTensor() *tensor.Dense {
	return tensor.New(
		tensor.WithShape(k.Rows(), k.Cols()),
		tensor.WithBacking(k.Weights()),
	)
}
