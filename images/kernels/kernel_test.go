package kernels

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

func TestNewKernelValidation(t *testing.T) {
	testCases := []struct {
		name    string
		rows    int
		cols    int
		weights []float64
	}{
		{name: "zero rows", rows: 0, cols: 3, weights: nil},
		{name: "negative cols", rows: 3, cols: -1, weights: nil},
		{name: "short weights", rows: 2, cols: 2, weights: []float64{1, 2, 3}},
		{name: "nan weight", rows: 1, cols: 2, weights: []float64{1, math.NaN()}},
		{name: "inf weight", rows: 1, cols: 1, weights: []float64{math.Inf(-1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.rows, tc.cols, tc.weights)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidKernel))
		})
	}
}

func TestKernelAccessors(t *testing.T) {
	w := []float64{1, 2, 3, 4, 5, 6}
	k, err := New(2, 3, w)
	require.NoError(t, err)

	w[0] = 100
	assert.Equal(t, 1.0, k.At(0, 0), "weights must be copied")
	assert.Equal(t, 2, k.Rows())
	assert.Equal(t, 3, k.Cols())
	cy, cx := k.Center()
	assert.Equal(t, 1, cy)
	assert.Equal(t, 1, cx)
	assert.Equal(t, 21.0, k.Sum())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, k.Weights())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, k.Weights32())

	n := k.Normalize()
	assert.InDelta(t, 1.0, n.Sum(), 1e-12)
	assert.Equal(t, 21.0, k.Sum(), "normalize must not mutate the receiver")

	zero, err := New(1, 2, []float64{1, -1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -1}, zero.Normalize().Weights())
}

func TestKernelPadKeepsAnchor(t *testing.T) {
	k, err := Gaussian(5, 1.2)
	require.NoError(t, err)

	p, err := k.Pad(9, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, p.Rows())
	assert.InDelta(t, k.Sum(), p.Sum(), 1e-12)

	for j := 0; j < 5; j++ {
		for i := 0; i < 5; i++ {
			assert.Equal(t, k.At(j, i), p.At(j+2, i+2))
		}
	}
	assert.Equal(t, 0.0, p.At(0, 0))

	_, err = k.Pad(3, 9)
	assert.True(t, errors.Is(err, ErrInvalidKernel))
}

func TestFromMatrix(t *testing.T) {
	k, err := FromMatrix(mat.NewDense(2, 2, []float64{0, 1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, k.At(1, 1))
	assert.Equal(t, 3.0, k.Matrix().At(1, 1))

	_, err = FromMatrix(nil)
	assert.Error(t, err)
}

func TestGenerators(t *testing.T) {
	id, err := Identity(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, id.At(1, 2))
	assert.Equal(t, 1.0, id.Sum())

	box, err := Box(3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, box.Sum(), 1e-12)
	assert.InDelta(t, 1.0/9, box.At(2, 2), 1e-12)

	g, err := Gaussian(7, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, g.Sum(), 1e-12)
	assert.Greater(t, g.At(3, 3), g.At(0, 0))
	assert.Equal(t, g.At(0, 1), g.At(1, 0), "gaussian must be symmetric")

	_, err = Box(0)
	assert.Error(t, err)
	_, err = Gaussian(-1, 1)
	assert.Error(t, err)
}

func TestPoissonIsNormalizedAndSeeded(t *testing.T) {
	a, err := Poisson(5, rand.NewPCG(1, 2))
	require.NoError(t, err)
	b, err := Poisson(5, rand.NewPCG(1, 2))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, a.Sum(), 1e-9)
	assert.Equal(t, a.Weights(), b.Weights(), "same seed must give the same kernel")
	for _, w := range a.Weights() {
		assert.GreaterOrEqual(t, w, 0.0)
	}

	_, err = Poisson(0, nil)
	assert.Error(t, err)
}

func TestFromTensor(t *testing.T) {
	t64 := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{1, 2, 3, 4}))
	k, err := FromTensor(t64)
	require.NoError(t, err)
	assert.Equal(t, 4.0, k.At(1, 1))

	t32 := tensor.New(tensor.WithShape(1, 3), tensor.WithBacking([]float32{0.25, 0.5, 0.25}))
	k, err = FromTensor(t32)
	require.NoError(t, err)
	assert.Equal(t, 3, k.Cols())
	assert.InDelta(t, 1.0, k.Sum(), 1e-7)

	back := k.ToTensor()
	assert.Equal(t, []int{1, 3}, []int(back.Shape()))

	vec := tensor.New(tensor.WithShape(4), tensor.WithBacking([]float64{1, 2, 3, 4}))
	_, err = FromTensor(vec)
	assert.True(t, errors.Is(err, ErrInvalidKernel))

	ints := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]int{1, 2}))
	_, err = FromTensor(ints)
	assert.True(t, errors.Is(err, ErrInvalidKernel))
}

func TestEdgeModeMap(t *testing.T) {
	testCases := []struct {
		mode     EdgeMode
		in       []int
		expected []int
	}{
		{mode: EdgeClamp, in: []int{-2, -1, 0, 4, 5, 6}, expected: []int{0, 0, 0, 4, 4, 4}},
		{mode: EdgeMirror, in: []int{-2, -1, 0, 4, 5, 6}, expected: []int{1, 0, 0, 4, 4, 3}},
		{mode: EdgeWrap, in: []int{-2, -1, 0, 4, 5, 6}, expected: []int{3, 4, 0, 4, 0, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			for idx, in := range tc.in {
				assert.Equal(t, tc.expected[idx], tc.mode.Map(in, 5), "index %d", in)
			}
		})
	}
}

func TestParseEdgeMode(t *testing.T) {
	m, err := ParseEdgeMode("Mirror")
	require.NoError(t, err)
	assert.Equal(t, EdgeMirror, m)

	m, err = ParseEdgeMode("")
	require.NoError(t, err)
	assert.Equal(t, EdgeClamp, m)

	_, err = ParseEdgeMode("smear")
	assert.Error(t, err)
}
