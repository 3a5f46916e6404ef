package convolve

import (
	"bytes"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
	"github.com/nvr-ai/go-convolve/transform"
)

var bothPaths = []Strategy{StrategyDirect, StrategyTransform}

func randomBuffer(t *testing.T, seed uint64, w, h, c int) *images.Buffer[uint8] {
	t.Helper()
	b, err := images.NewBuffer[uint8](w, h, c)
	require.NoError(t, err)
	r := rand.New(rand.NewPCG(seed, seed+1))
	for i := range b.Pix {
		b.Pix[i] = uint8(r.IntN(256))
	}
	return b
}

func TestSelectStrategy(t *testing.T) {
	testCases := []struct {
		rows, cols int
		expected   Strategy
	}{
		{1, 1, StrategyDirect},
		{6, 6, StrategyDirect},
		{1, 6, StrategyDirect},
		{7, 1, StrategyTransform},
		{1, 7, StrategyTransform},
		{7, 7, StrategyTransform},
		{31, 31, StrategyTransform},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, SelectStrategy(tc.rows, tc.cols), "%dx%d", tc.rows, tc.cols)
	}

	o := DefaultOptions().Apply(WithStrategy(StrategyTransform))
	assert.Equal(t, StrategyTransform, o.resolve(3, 3))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("FFT")
	require.NoError(t, err)
	assert.Equal(t, StrategyTransform, s)
	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, s)
	_, err = ParseStrategy("winograd")
	assert.Error(t, err)
}

func TestIdentityKernelLeavesImageUnchanged(t *testing.T) {
	id, err := kernels.Identity(1, 1)
	require.NoError(t, err)

	for _, s := range bothPaths {
		t.Run(s.String(), func(t *testing.T) {
			buf := randomBuffer(t, 42, 37, 23, 4)
			want := buf.Clone()
			require.NoError(t, Convolve(buf, id, WithStrategy(s)))
			assert.Equal(t, images.ComputeChecksum(want), images.ComputeChecksum(buf))
		})
	}
}

func TestCenterWeightIsBoundaryInsensitive(t *testing.T) {
	k := kernels.MustNew(3, 3, []float64{0, 0, 0, 0, 1, 0, 0, 0, 0})
	for _, s := range bothPaths {
		for _, edge := range []kernels.EdgeMode{kernels.EdgeClamp, kernels.EdgeMirror, kernels.EdgeWrap} {
			t.Run(s.String()+"/"+edge.String(), func(t *testing.T) {
				buf := &images.Buffer[uint8]{
					Pix:      []uint8{10, 20, 30, 40, 50, 60, 70, 80, 90},
					Width:    3,
					Height:   3,
					Stride:   3,
					Channels: 1,
				}
				require.NoError(t, Convolve(buf, k, WithStrategy(s), WithEdge(edge)))
				assert.Equal(t, []uint8{10, 20, 30, 40, 50, 60, 70, 80, 90}, buf.Pix)
			})
		}
	}
}

func TestTapOrientationAndEdgeClamp(t *testing.T) {
	// A single weight at kernel (0, 0) reads the pixel up and to the left.
	k := kernels.MustNew(3, 3, []float64{1, 0, 0, 0, 0, 0, 0, 0, 0})
	for _, s := range bothPaths {
		t.Run(s.String(), func(t *testing.T) {
			buf := &images.Buffer[uint8]{
				Pix:      []uint8{10, 20, 30, 40, 50, 60, 70, 80, 90},
				Width:    3,
				Height:   3,
				Stride:   3,
				Channels: 1,
			}
			require.NoError(t, Convolve(buf, k, WithStrategy(s)))
			assert.Equal(t, []uint8{10, 10, 20, 10, 10, 20, 40, 40, 50}, buf.Pix)
		})
	}
}

func TestPathEquivalenceNearCrossover(t *testing.T) {
	k5, err := kernels.Gaussian(5, 1.1)
	require.NoError(t, err)
	k9, err := k5.Pad(9, 9)
	require.NoError(t, err)
	require.Equal(t, StrategyDirect, SelectStrategy(k5.Rows(), k5.Cols()))
	require.Equal(t, StrategyTransform, SelectStrategy(k9.Rows(), k9.Cols()))

	src := randomBuffer(t, 7, 61, 45, 4)
	viaDirect := src.Clone()
	viaTransform := src.Clone()
	require.NoError(t, Convolve(viaDirect, k5))
	require.NoError(t, Convolve(viaTransform, k9))

	for i := range viaDirect.Pix {
		d := int(viaDirect.Pix[i]) - int(viaTransform.Pix[i])
		require.LessOrEqual(t, d*d, 1, "sample %d: %d vs %d", i, viaDirect.Pix[i], viaTransform.Pix[i])
	}
}

func TestDirectIsIndependentOfWorkerCount(t *testing.T) {
	k, err := kernels.Gaussian(3, 0)
	require.NoError(t, err)
	pool := workerpool.New(6)
	defer pool.Close()

	src := randomBuffer(t, 99, 1024, 768, 4)
	one := src.Clone()
	twelve := src.Clone()
	pooled := src.Clone()

	require.NoError(t, Convolve(one, k, WithWorkers(1)))
	require.NoError(t, Convolve(twelve, k, WithWorkers(12)))
	require.NoError(t, Convolve(pooled, k, WithWorkers(12), WithPool(pool)))

	assert.Equal(t, images.ComputeChecksum(one), images.ComputeChecksum(twelve))
	assert.Equal(t, images.ComputeChecksum(one), images.ComputeChecksum(pooled))
}

func TestConstantFieldInvariance(t *testing.T) {
	box, err := kernels.Box(3)
	require.NoError(t, err)
	gauss, err := kernels.Gaussian(11, 0)
	require.NoError(t, err)

	for name, k := range map[string]*kernels.Kernel{"box": box, "gaussian": gauss} {
		for _, s := range bothPaths {
			t.Run(name+"/"+s.String(), func(t *testing.T) {
				buf, err := images.NewBuffer[uint8](40, 30, 4)
				require.NoError(t, err)
				buf.Fill(77, 128, 3, 255)
				require.NoError(t, Convolve(buf, k, WithStrategy(s)))
				for y := 0; y < buf.Height; y++ {
					for x := 0; x < buf.Width; x++ {
						require.Equal(t, uint8(77), buf.At(x, y, 0))
						require.Equal(t, uint8(128), buf.At(x, y, 1))
						require.Equal(t, uint8(3), buf.At(x, y, 2))
						require.Equal(t, uint8(255), buf.At(x, y, 3))
					}
				}
			})
		}
	}
}

func TestZeroKernelGivesZeroImage(t *testing.T) {
	zero := kernels.MustNew(9, 9, make([]float64, 81))
	buf := randomBuffer(t, 5, 20, 20, 3)
	require.NoError(t, Convolve(buf, zero))
	for _, v := range buf.Pix {
		require.Equal(t, uint8(0), v)
	}
}

func TestSaturation(t *testing.T) {
	sharpen := kernels.MustNew(3, 3, []float64{0, -4, 0, -4, 17, -4, 0, -4, 0})
	for _, s := range bothPaths {
		t.Run(s.String(), func(t *testing.T) {
			buf := &images.Buffer[uint8]{Pix: []uint8{0, 0, 0, 0, 200, 0, 0, 0, 0}, Width: 3, Height: 3, Stride: 3, Channels: 1}
			require.NoError(t, Convolve(buf, sharpen, WithStrategy(s)))
			assert.Equal(t, uint8(255), buf.At(1, 1, 0))
			assert.Equal(t, uint8(0), buf.At(1, 0, 0))
		})
	}
}

func TestWideAndFloatSamples(t *testing.T) {
	box, err := kernels.Box(3)
	require.NoError(t, err)

	for _, s := range bothPaths {
		t.Run(s.String(), func(t *testing.T) {
			wide, err := images.NewBuffer[uint16](5, 5, 1)
			require.NoError(t, err)
			wide.Fill(60000)
			require.NoError(t, Convolve(wide, box, WithStrategy(s)))
			assert.Equal(t, uint16(60000), wide.At(2, 2, 0))

			flt, err := images.NewBuffer[float32](5, 5, 2)
			require.NoError(t, err)
			flt.Fill(0.25, 2)
			require.NoError(t, Convolve(flt, box, WithStrategy(s)))
			assert.InDelta(t, 0.25, flt.At(2, 2, 0), 1e-5)
			assert.Equal(t, float32(1), flt.At(2, 2, 1), "float samples are clamped to [0, 1]")
		})
	}
}

func TestInvalidGeometryLeavesBufferUntouched(t *testing.T) {
	k, err := kernels.Box(3)
	require.NoError(t, err)

	pix := []uint8{1, 2, 3, 4, 5, 6, 7}
	testCases := []*images.Buffer[uint8]{
		{Pix: pix, Width: 0, Height: 1, Stride: 4, Channels: 4},
		{Pix: pix, Width: 1, Height: -2, Stride: 4, Channels: 4},
		{Pix: pix, Width: 2, Height: 1, Stride: 4, Channels: 4},
		{Pix: pix, Width: 1, Height: 1, Stride: 4, Channels: 7},
	}
	for _, buf := range testCases {
		for _, s := range bothPaths {
			err := Convolve(buf, k, WithStrategy(s))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGeometry), "unexpected error: %v", err)
			assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7}, pix)
		}
	}

	err = ConvolveRGBA(make([]byte, 10), 8, 2, 2, k)
	assert.True(t, errors.Is(err, ErrInvalidGeometry))

	assert.True(t, errors.Is(Convolve(randomBuffer(t, 1, 2, 2, 1), nil), ErrNilKernel))

	a := randomBuffer(t, 1, 4, 4, 1)
	b := randomBuffer(t, 1, 4, 3, 1)
	assert.True(t, errors.Is(ConvolveInto(b, a, k), ErrInvalidGeometry))
}

func TestMaxPixelsIsResourceExhaustion(t *testing.T) {
	k, err := kernels.Box(9)
	require.NoError(t, err)
	buf := randomBuffer(t, 3, 64, 64, 4)
	want := buf.Clone()

	err = Convolve(buf, k, WithMaxPixels(1000))
	assert.True(t, errors.Is(err, ErrResourceExhausted))
	assert.Equal(t, images.ComputeChecksum(want), images.ComputeChecksum(buf))
}

func TestMemoryBudgetIsResourceExhaustion(t *testing.T) {
	small, err := kernels.Box(3)
	require.NoError(t, err)
	large, err := kernels.Box(9)
	require.NoError(t, err)

	buf := randomBuffer(t, 4, 64, 64, 4)
	want := images.ComputeChecksum(buf)
	base := transform.LiveWorkspaces()

	err = Convolve(buf, large, WithMaxBytes(4096))
	assert.True(t, errors.Is(err, ErrResourceExhausted), "unexpected error: %v", err)
	assert.True(t, errors.Is(err, transform.ErrAllocation), "unexpected error: %v", err)

	err = Convolve(buf, small, WithMaxBytes(4096))
	assert.True(t, errors.Is(err, ErrResourceExhausted), "unexpected error: %v", err)

	assert.Equal(t, want, images.ComputeChecksum(buf))
	assert.Equal(t, base, transform.LiveWorkspaces())

	require.NoError(t, Convolve(buf, large, WithMaxBytes(0)))
	assert.Positive(t, DefaultOptions().MaxBytes)
}

func TestExhaustedOnlyMarksAllocationFailures(t *testing.T) {
	err := exhausted(errors.Wrap(transform.ErrAllocation, "grid"))
	assert.True(t, errors.Is(err, ErrResourceExhausted))
	assert.True(t, errors.Is(err, transform.ErrAllocation))

	other := errors.New("plan failed")
	assert.Equal(t, other, exhausted(other))
}

func TestTransformPathReleasesWorkspace(t *testing.T) {
	base := transform.LiveWorkspaces()
	k, err := kernels.Gaussian(15, 0)
	require.NoError(t, err)
	for range 3 {
		require.NoError(t, Convolve(randomBuffer(t, 8, 33, 17, 3), k))
	}
	assert.Equal(t, base, transform.LiveWorkspaces())
}

func TestConvolveIntoKeepsSource(t *testing.T) {
	k, err := kernels.Box(5)
	require.NoError(t, err)
	src := randomBuffer(t, 11, 30, 20, 4)
	want := images.ComputeChecksum(src)
	dst, err := images.NewBuffer[uint8](30, 20, 4)
	require.NoError(t, err)

	inPlace := src.Clone()
	require.NoError(t, ConvolveInto(dst, src, k))
	require.NoError(t, Convolve(inPlace, k))

	assert.Equal(t, want, images.ComputeChecksum(src))
	assert.Equal(t, images.ComputeChecksum(inPlace), images.ComputeChecksum(dst))
}

func TestConvolveRGBAWithPaddedStride(t *testing.T) {
	const w, h, stride = 3, 2, 16
	pix := make([]byte, stride*(h-1)+w*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w*4; x++ {
			pix[y*stride+x] = 100
		}
		for x := w * 4; x < stride && y*stride+x < len(pix); x++ {
			pix[y*stride+x] = 7
		}
	}
	k, err := kernels.Box(3)
	require.NoError(t, err)
	require.NoError(t, ConvolveRGBA(pix, stride, w, h, k))
	assert.Equal(t, byte(100), pix[0])
	assert.Equal(t, byte(7), pix[w*4], "stride padding must be untouched")
}

func TestScratchPoolIsReused(t *testing.T) {
	k, err := kernels.Box(3)
	require.NoError(t, err)
	pool := images.NewPool[uint8]()
	a := randomBuffer(t, 21, 16, 16, 4)
	b := a.Clone()
	require.NoError(t, Convolve(a, k, WithScratchPool(pool)))
	require.NoError(t, Convolve(b, k, WithScratchPool(pool)))
	assert.Equal(t, images.ComputeChecksum(a), images.ComputeChecksum(b))
}

func TestLoggerRecordsStrategy(t *testing.T) {
	var out bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	k, err := kernels.Box(7)
	require.NoError(t, err)
	require.NoError(t, Convolve(randomBuffer(t, 2, 8, 8, 1), k))
	assert.Contains(t, out.String(), "strategy=transform")
	assert.Contains(t, out.String(), "paddedWidth=")
}
