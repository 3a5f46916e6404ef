package images

import (
	"crypto/md5"
	"fmt"
	"unsafe"
)

// ComputeChecksum generates a deterministic checksum over the visible samples
// of a buffer. Stride padding is not hashed, so two buffers with the same
// pixels and different strides hash the same.
//
// Arguments:
// - b: The buffer to compute the checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	checksum := ComputeChecksum(frame)
//	fmt.Printf("Frame checksum: %s\n", checksum)
//
// ```
func ComputeChecksum[T Sample](b *Buffer[T]) string {
	if b == nil || len(b.Pix) == 0 {
		return "empty"
	}

	hash := md5.New()
	for y := 0; y < b.Height; y++ {
		row := b.Row(y)
		if len(row) == 0 {
			continue
		}
		size := len(row) * int(unsafe.Sizeof(row[0]))
		hash.Write(unsafe.Slice((*byte)(unsafe.Pointer(&row[0])), size))
	}
	return fmt.Sprintf("%x", hash.Sum(nil))
}
