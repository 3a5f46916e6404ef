// Package cvmat runs the convolution engine directly on OpenCV matrices.
//
// The Mat's pixel memory is borrowed for the duration of the call and
// rewritten in place; allocation and Close stay with the caller.
package cvmat

import (
	"crypto/md5"
	"fmt"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-convolve/convolve"
	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
)

// ErrUnsupportedType is returned for Mat element types the engine cannot address.
var ErrUnsupportedType = errors.New("unsupported mat type")

// Convolve applies k to m in place.
//
// Supported types are 8-bit and 16-bit unsigned and 32-bit float with one to
// four channels. Float samples are treated as normalized and clamped to [0, 1].
//
// Arguments:
//   - m: A continuous, non-empty Mat.
//   - k: The kernel.
//   - opts: Engine options.
//
// Returns:
//   - error: ErrInvalidGeometry for empty or non-continuous mats,
//     ErrUnsupportedType for other element types, or any engine error.
func Convolve(m *gocv.Mat, k *kernels.Kernel, opts ...convolve.Option) error {
	if m == nil || m.Empty() {
		return errors.Wrap(images.ErrInvalidGeometry, "empty mat")
	}
	if !m.IsContinuous() {
		return errors.Wrap(images.ErrInvalidGeometry, "mat is not continuous")
	}

	switch m.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		data, err := m.DataPtrUint8()
		return run(m, data, err, 1, k, opts)
	case gocv.MatTypeCV16UC1, gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4:
		data, err := m.DataPtrUint16()
		return run(m, data, err, 2, k, opts)
	case gocv.MatTypeCV32FC1, gocv.MatTypeCV32FC3, gocv.MatTypeCV32FC4:
		data, err := m.DataPtrFloat32()
		return run(m, data, err, 4, k, opts)
	default:
		return errors.Wrapf(ErrUnsupportedType, "type %d with %d channels", int(m.Type()), m.Channels())
	}
}

// run wraps the Mat memory in a buffer and hands it to the engine.
func run[T images.Sample](m *gocv.Mat, data []T, err error, elemSize int, k *kernels.Kernel, opts []convolve.Option) error {
	if err != nil {
		return errors.Wrap(err, "failed to access mat data")
	}
	buf := &images.Buffer[T]{
		Pix:      data,
		Width:    m.Cols(),
		Height:   m.Rows(),
		Stride:   m.Step() / elemSize,
		Channels: m.Channels(),
	}
	return convolve.Convolve(buf, k, opts...)
}

// ComputeMatChecksum generates a deterministic checksum for a Mat.
//
// Arguments:
// - mat: The Mat to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	checksum := ComputeMatChecksum(frame)
//	fmt.Printf("Frame checksum: %s\n", checksum)
//
// ```
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	data := mat.ToBytes()
	hash := md5.New()
	hash.Write(data)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
