package parallel

import (
	"sync"
	"testing"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileCount(t *testing.T) {
	testCases := []struct {
		name     string
		width    int
		height   int
		workers  int
		expected int
	}{
		{name: "tiny image", width: 8, height: 8, workers: 16, expected: 1},
		{name: "one tile of pixels", width: 256, height: 256, workers: 16, expected: 1},
		{name: "pixel bound", width: 1024, height: 256, workers: 16, expected: 4},
		{name: "worker bound", width: 1920, height: 1080, workers: 2, expected: 2},
		{name: "capped", width: 3840, height: 2160, workers: 64, expected: 12},
		{name: "single worker", width: 3840, height: 2160, workers: 1, expected: 1},
		{name: "degenerate", width: 0, height: 10, workers: 8, expected: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TileCount(tc.width, tc.height, tc.workers))
		})
	}
}

func TestTilesCoverRowsOnce(t *testing.T) {
	for _, tc := range []struct{ height, n int }{{10, 3}, {7, 12}, {1080, 12}, {1, 1}, {5, 0}} {
		tiles := Tiles(tc.height, tc.n)
		require.NotEmpty(t, tiles)
		assert.Equal(t, 0, tiles[0].Start)
		assert.Equal(t, tc.height, tiles[len(tiles)-1].End)
		for i := 1; i < len(tiles); i++ {
			assert.Equal(t, tiles[i-1].End, tiles[i].Start)
			assert.Positive(t, tiles[i].Len())
		}
	}

	tiles := Tiles(10, 3)
	assert.Equal(t, []Range{{0, 3}, {3, 6}, {6, 10}}, tiles)
	assert.Nil(t, Tiles(0, 3))
}

func TestExecutorRun(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	executors := map[string]*Executor{
		"goroutines": {Workers: 12},
		"pool":       {Workers: 12, Pool: pool},
		"zero value": {},
	}

	for name, e := range executors {
		t.Run(name, func(t *testing.T) {
			const width, height = 1024, 768
			var mu sync.Mutex
			seen := make([]int, height)
			err := e.Run(width, height, func(r Range) error {
				mu.Lock()
				defer mu.Unlock()
				for y := r.Start; y < r.End; y++ {
					seen[y]++
				}
				return nil
			})
			require.NoError(t, err)
			for y, n := range seen {
				require.Equal(t, 1, n, "row %d", y)
			}
		})
	}
}

func TestExecutorRunReturnsTileError(t *testing.T) {
	boom := errors.New("boom")
	e := &Executor{Workers: 12}
	err := e.Run(1024, 1024, func(r Range) error {
		if r.Start == 0 {
			return boom
		}
		return nil
	})
	assert.True(t, errors.Is(err, boom))
}
