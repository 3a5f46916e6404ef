// Package images - Interleaved raster buffers consumed by the convolution engine.
package images

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// MaxChannels is the largest channel count a Buffer may carry.
const MaxChannels = 4

// ErrInvalidGeometry is returned when an image or region has impossible dimensions.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Sample is the set of element types a Buffer may hold.
//
//   - uint8: byte samples in [0, 255].
//   - uint16: wide samples in [0, 65535].
//   - float32: normalized samples in [0, 1].
type Sample interface {
	~uint8 | ~uint16 | ~float32
}

// MaxValue returns the full-scale value of the sample type T.
//
// Returns:
//   - 255 for uint8, 65535 for uint16 and 1 for float32.
func MaxValue[T Sample]() float32 {
	var zero T
	// Unsigned types wrap to their maximum, floats go negative.
	top := zero - 1
	if float32(top) < 0 {
		return 1
	}
	return float32(top)
}

// IsFloat reports whether T is a floating point sample type.
func IsFloat[T Sample]() bool {
	var zero T
	return float32(zero-1) < 0
}

// Buffer is a caller-owned interleaved raster.
//
// Pixel (x, y) channel c lives at Pix[y*Stride + x*Channels + c]. Stride is
// expressed in elements, not bytes, and may exceed Width*Channels when rows
// are padded.
type Buffer[T Sample] struct {
	// Pix holds the samples, row-major, channels interleaved.
	Pix []T `json:"-" yaml:"-"`
	// Width is the number of columns.
	Width int `json:"width" yaml:"width"`
	// Height is the number of rows.
	Height int `json:"height" yaml:"height"`
	// Stride is the distance in elements between the starts of two rows.
	Stride int `json:"stride" yaml:"stride"`
	// Channels is the number of interleaved samples per pixel (1..4).
	Channels int `json:"channels" yaml:"channels"`
}

// NewBuffer allocates a tightly packed buffer.
//
// Arguments:
//   - width: The number of columns.
//   - height: The number of rows.
//   - channels: The number of interleaved channels (1..4).
//
// Returns:
//   - *Buffer[T]: The zeroed buffer.
//   - error: ErrInvalidGeometry when the dimensions are not representable.
func NewBuffer[T Sample](width, height, channels int) (*Buffer[T], error) {
	if err := ValidateGeometry(width, height, width*channels, channels); err != nil {
		return nil, err
	}
	n, ok := MulInt(width*channels, height)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidGeometry, "image of %dx%dx%d overflows", width, height, channels)
	}
	return &Buffer[T]{
		Pix:      make([]T, n),
		Width:    width,
		Height:   height,
		Stride:   width * channels,
		Channels: channels,
	}, nil
}

// ValidateGeometry checks the dimensions of an interleaved raster without
// looking at its pixels.
func ValidateGeometry(width, height, stride, channels int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidGeometry, "invalid image dimensions: %dx%d", width, height)
	}
	if channels < 1 || channels > MaxChannels {
		return errors.Wrapf(ErrInvalidGeometry, "invalid channel count: %d", channels)
	}
	row, ok := MulInt(width, channels)
	if !ok {
		return errors.Wrapf(ErrInvalidGeometry, "row of %d pixels overflows", width)
	}
	if stride < row {
		return errors.Wrapf(ErrInvalidGeometry, "stride %d smaller than row of %d samples", stride, row)
	}
	return nil
}

// Validate checks the buffer geometry against its pixel slice.
//
// Returns:
//   - error: ErrInvalidGeometry (wrapped) when the buffer cannot be addressed.
func (b *Buffer[T]) Validate() error {
	if b == nil {
		return errors.Wrap(ErrInvalidGeometry, "nil buffer")
	}
	if err := ValidateGeometry(b.Width, b.Height, b.Stride, b.Channels); err != nil {
		return err
	}
	last, ok := MulInt(b.Stride, b.Height-1)
	if !ok {
		return errors.Wrapf(ErrInvalidGeometry, "stride %d x height %d overflows", b.Stride, b.Height)
	}
	need := last + b.Width*b.Channels
	if need < last || len(b.Pix) < need {
		return errors.Wrapf(ErrInvalidGeometry, "pixel buffer of %d samples, need %d", len(b.Pix), need)
	}
	return nil
}

// Row returns the samples of row y without the stride padding.
func (b *Buffer[T]) Row(y int) []T {
	off := y * b.Stride
	return b.Pix[off : off+b.Width*b.Channels : off+b.Width*b.Channels]
}

// At returns channel c of pixel (x, y).
func (b *Buffer[T]) At(x, y, c int) T {
	return b.Pix[y*b.Stride+x*b.Channels+c]
}

// Set writes channel c of pixel (x, y).
func (b *Buffer[T]) Set(x, y, c int, v T) {
	b.Pix[y*b.Stride+x*b.Channels+c] = v
}

// Fill sets every channel of every pixel to the given per-channel values.
// Missing channels are left untouched.
func (b *Buffer[T]) Fill(values ...T) {
	for y := 0; y < b.Height; y++ {
		row := b.Row(y)
		for x := 0; x < b.Width; x++ {
			for c := 0; c < b.Channels && c < len(values); c++ {
				row[x*b.Channels+c] = values[c]
			}
		}
	}
}

// Clone returns a tightly packed deep copy of the buffer.
func (b *Buffer[T]) Clone() *Buffer[T] {
	out := &Buffer[T]{
		Pix:      make([]T, b.Width*b.Channels*b.Height),
		Width:    b.Width,
		Height:   b.Height,
		Stride:   b.Width * b.Channels,
		Channels: b.Channels,
	}
	for y := 0; y < b.Height; y++ {
		copy(out.Row(y), b.Row(y))
	}
	return out
}

// CopyFrom copies the visible samples of src into b. Both buffers must have
// the same width, height and channel count.
func (b *Buffer[T]) CopyFrom(src *Buffer[T]) error {
	if b.Width != src.Width || b.Height != src.Height || b.Channels != src.Channels {
		return errors.Wrapf(ErrInvalidGeometry, "copy %dx%dx%d into %dx%dx%d",
			src.Width, src.Height, src.Channels, b.Width, b.Height, b.Channels)
	}
	for y := 0; y < b.Height; y++ {
		copy(b.Row(y), src.Row(y))
	}
	return nil
}

// SameGeometry reports whether a and b have identical width, height and channels.
func SameGeometry[T Sample](a, b *Buffer[T]) bool {
	return a.Width == b.Width && a.Height == b.Height && a.Channels == b.Channels
}

// FromImage converts any image into a 4-channel byte buffer holding
// premultiplied RGBA samples.
//
// Arguments:
//   - img: The source image.
//
// Returns:
//   - *Buffer[uint8]: A buffer sharing the pixel memory of an *image.RGBA.
//   - error: ErrInvalidGeometry for empty images.
func FromImage(img image.Image) (*Buffer[uint8], error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}
	return &Buffer[uint8]{
		Pix:      rgba.Pix,
		Width:    rgba.Rect.Dx(),
		Height:   rgba.Rect.Dy(),
		Stride:   rgba.Stride,
		Channels: 4,
	}, nil
}

// ToImage wraps or converts a byte buffer into a standard library image.
//
// One channel becomes *image.Gray, three channels become opaque *image.RGBA
// and four channels are shared with an *image.RGBA without copying.
func ToImage(b *Buffer[uint8]) (image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, b.Width, b.Height)
	switch b.Channels {
	case 1:
		return &image.Gray{Pix: b.Pix, Stride: b.Stride, Rect: rect}, nil
	case 4:
		return &image.RGBA{Pix: b.Pix, Stride: b.Stride, Rect: rect}, nil
	case 3:
		out := image.NewRGBA(rect)
		for y := 0; y < b.Height; y++ {
			src := b.Row(y)
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < b.Width; x++ {
				dst[x*4+0] = src[x*3+0]
				dst[x*4+1] = src[x*3+1]
				dst[x*4+2] = src[x*3+2]
				dst[x*4+3] = 0xff
			}
		}
		return out, nil
	default:
		return nil, errors.Wrapf(ErrInvalidGeometry, "no image model for %d channels", b.Channels)
	}
}

// MulInt multiplies two non-negative ints and reports whether the product fits.
func MulInt(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}
