// Package parallel splits image rows into fixed tiles and runs them concurrently.
//
// Tiles are contiguous, fixed at submission time and joined before Run
// returns. There is no work stealing, so a given tile always covers the same
// rows for a given geometry and worker count.
package parallel

import (
	"runtime"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxTiles caps the number of concurrent row tiles.
	MaxTiles = 12
	// PixelsPerTile is the minimum number of pixels worth a tile of its own.
	PixelsPerTile = 65536
)

// Range is a half-open row interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.End - r.Start }

// TileCount returns clamp(min(workers, width*height/65536), 1, 12).
//
// Arguments:
//   - width: The image width.
//   - height: The image height.
//   - workers: The hardware concurrency. Values <= 0 use GOMAXPROCS.
//
// Returns:
//   - int: The number of row tiles to run.
func TileCount(width, height, workers int) int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	n := workers
	if width > 0 && height > 0 {
		// Divide first so large frames cannot overflow.
		byPixels := (width / PixelsPerTile) * height
		byPixels += (width % PixelsPerTile) * height / PixelsPerTile
		n = min(n, byPixels)
	} else {
		n = 1
	}
	return max(1, min(n, MaxTiles))
}

// Tiles splits height rows into n contiguous ranges of height/n rows; the
// last range also takes the remainder. n is clamped to [1, height].
func Tiles(height, n int) []Range {
	if height <= 0 {
		return nil
	}
	n = max(1, min(n, height))
	segment := height / n
	out := make([]Range, n)
	for i := range n {
		out[i] = Range{Start: i * segment, End: (i + 1) * segment}
	}
	out[n-1].End = height
	return out
}

// Executor runs row tiles. The zero value is usable and spawns one goroutine
// per tile; an Executor built with a worker pool reuses its goroutines.
type Executor struct {
	// Workers is the hardware concurrency used by TileCount. <= 0 uses GOMAXPROCS.
	Workers int
	// Pool, when set, runs tiles on persistent workers instead of fresh goroutines.
	Pool *workerpool.Pool
}

// Plan returns the tiles Run would use for an image of the given size.
func (e *Executor) Plan(width, height int) []Range {
	workers := e.Workers
	if workers <= 0 && e.Pool != nil {
		workers = e.Pool.NumWorkers()
	}
	return Tiles(height, TileCount(width, height, workers))
}

// Run executes fn once per tile and blocks until every tile has finished.
//
// Arguments:
//   - width: The image width, used to size the tiles.
//   - height: The number of rows to cover.
//   - fn: Called with each tile's row range. Tiles never overlap.
//
// Returns:
//   - error: The first error returned by fn, after all tiles have joined.
func (e *Executor) Run(width, height int, fn func(r Range) error) error {
	tiles := e.Plan(width, height)
	switch {
	case len(tiles) == 0:
		return nil
	case len(tiles) == 1:
		return fn(tiles[0])
	case e.Pool != nil:
		errs := make([]error, len(tiles))
		e.Pool.ParallelFor(len(tiles), func(start, end int) {
			for i := start; i < end; i++ {
				errs[i] = fn(tiles[i])
			}
		})
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	default:
		var g errgroup.Group
		for _, tile := range tiles {
			g.Go(func() error { return fn(tile) })
		}
		return g.Wait()
	}
}
