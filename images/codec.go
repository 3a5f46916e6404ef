package images

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
)

// DecodeFile reads and decodes an image file into a 4-channel byte buffer.
func DecodeFile(path string) (*Buffer[uint8], ImageFormat, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, "", err
	}
	buf, err := img.Buffer()
	if err != nil {
		return nil, "", err
	}
	return buf, img.Format, nil
}

// Encode writes img to w.
//
// Arguments:
//   - w: The destination.
//   - img: The image to encode.
//   - format: One of FormatPNG, FormatJPEG, FormatWebP or FormatGIF.
//   - quality: JPEG and lossy WebP quality in [1, 100]. 0 picks a default
//     and selects lossless WebP.
//
// Returns:
//   - error: ErrUnsupportedFormat for formats without an encoder.
func Encode(w io.Writer, img image.Image, format ImageFormat, quality int) error {
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatJPEG:
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatWebP:
		err = webp.Encode(w, img, &webp.Options{Lossless: quality <= 0, Quality: float32(quality)})
	case FormatGIF:
		err = gif.Encode(w, img, nil)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "no encoder for %q", format)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", format)
	}
	return nil
}

// EncodeFile writes a byte buffer to path in the given format.
func EncodeFile(path string, b *Buffer[uint8], format ImageFormat, quality int) (err error) {
	img, err := ToImage(b)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", path)
		}
	}()
	return Encode(f, img, format, quality)
}
