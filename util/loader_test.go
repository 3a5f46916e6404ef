package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-convolve/images"
)

// writeFrame encodes a solid w x h image to dir/name.
func writeFrame(t *testing.T, dir, name string, w, h int, shade uint8) {
	t.Helper()
	buf, err := images.NewBuffer[uint8](w, h, 4)
	require.NoError(t, err)
	buf.Fill(shade, shade, shade, 255)
	format, err := images.FormatFromPath(name)
	require.NoError(t, err)
	require.NoError(t, images.EncodeFile(filepath.Join(dir, name), buf, format, 95))
}

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "frame-10.png", 4, 3, 30)
	writeFrame(t, dir, "frame-2.png", 4, 3, 20)
	writeFrame(t, dir, "cover.png", 2, 2, 90)
	writeFrame(t, dir, "frame-1.jpg", 8, 8, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)

	var frames []int
	for _, f := range files {
		frames = append(frames, f.Frame)
		assert.NotEmpty(t, f.Data)
	}
	assert.Equal(t, []int{1, 2, 10, -1}, frames)
	assert.Equal(t, images.FormatJPEG, files[0].Format)

	bufs, err := LoadDirectoryImages(dir)
	require.NoError(t, err)
	require.Len(t, bufs, 4)
	assert.Equal(t, 8, bufs[0].Width)
	assert.Equal(t, uint8(20), bufs[1].At(0, 0, 0))
	assert.Equal(t, uint8(30), bufs[2].At(3, 2, 1))
	assert.Equal(t, 2, bufs[3].Width)
}

func TestLoadDirectoryImagesErrors(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-1.png"), []byte("not a png"), 0o644))
	_, err = LoadDirectoryImages(dir)
	assert.ErrorContains(t, err, "frame-1.png")
}

func TestFrameNumber(t *testing.T) {
	assert.Equal(t, 42, frameNumber("frame-42.jpg"))
	assert.Equal(t, -1, frameNumber("frame-x.jpg"))
	assert.Equal(t, -1, frameNumber("still.png"))
}
