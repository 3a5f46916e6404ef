// Package images - Image definition for processing utilities.
package images

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Image represents an encoded image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatGIF is the GIF image format. Only the first frame is used.
	FormatGIF ImageFormat = "gif"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF is the TIFF image format.
	FormatTIFF ImageFormat = "tiff"
)

// ErrUnsupportedFormat is returned for formats that cannot be read or written.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ParseImageFormat parses a format name or file extension such as "jpg" or ".png".
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "gif":
		return FormatGIF, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", s)
	}
}

// FormatFromPath returns the format implied by a file extension.
func FormatFromPath(path string) (ImageFormat, error) {
	return ParseImageFormat(filepath.Ext(path))
}

// LoadImage reads an encoded image and its dimensions without decoding pixels.
//
// Arguments:
//   - path: The image file.
//
// Returns:
//   - *Image: The encoded image.
//   - error: An error if the file cannot be read or is not a known format.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %s", path)
	}
	return NewImage(data)
}

// NewImage wraps encoded bytes, sniffing the format and dimensions.
func NewImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedFormat, err.Error())
	}
	format, err := ParseImageFormat(name)
	if err != nil {
		return nil, err
	}
	return &Image{Format: format, Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode decodes the pixels of the image.
func (i *Image) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s image", i.Format)
	}
	return img, nil
}

// Buffer decodes the image into a 4-channel byte buffer.
func (i *Image) Buffer() (*Buffer[uint8], error) {
	img, err := i.Decode()
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}
