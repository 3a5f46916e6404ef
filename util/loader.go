// Package util loads image corpora from disk for benchmarks and the CLI.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number parsed from a "frame-N" name, or -1.
	Frame int
	// Format is the format implied by the extension.
	Format images.ImageFormat
}

// Decode decodes the file into a 4-channel byte buffer.
func (f ImageFile) Decode() (*images.Buffer[uint8], error) {
	img, err := images.NewImage(f.Data)
	if err != nil {
		return nil, errors.Wrap(err, f.Path)
	}
	buf, err := img.Buffer()
	if err != nil {
		return nil, errors.Wrap(err, f.Path)
	}
	return buf, nil
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Files named "frame-N.ext" are ordered by N; other images follow in name
// order. Subdirectories and unknown extensions are skipped.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var out []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		format, err := images.FormatFromPath(file.Name())
		if err != nil {
			continue
		}
		imgPath := filepath.Join(dir, file.Name())
		data, readErr := os.ReadFile(imgPath)
		if readErr != nil {
			return nil, errors.Wrapf(readErr, "failed to read %s", imgPath)
		}
		out = append(out, ImageFile{
			Path:   imgPath,
			Data:   data,
			Frame:  frameNumber(file.Name()),
			Format: format,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Frame < 0) != (b.Frame < 0) {
			return a.Frame >= 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})

	return out, nil
}

// LoadDirectoryImages loads and decodes every image in dir, in frame order.
func LoadDirectoryImages(dir string) ([]*images.Buffer[uint8], error) {
	files, err := LoadDirectoryImageFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]*images.Buffer[uint8], 0, len(files))
	for _, f := range files {
		buf, err := f.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, buf)
	}
	return out, nil
}

// frameNumber parses N out of "frame-N.ext", returning -1 for other names.
func frameNumber(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	n, ok := strings.CutPrefix(base, "frame-")
	if !ok {
		return -1
	}
	frame, err := strconv.Atoi(n)
	if err != nil || frame < 0 {
		return -1
	}
	return frame
}
