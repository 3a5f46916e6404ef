package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-convolve/config"
	"github.com/nvr-ai/go-convolve/convolve"
	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
)

func TestNewSuite(t *testing.T) {
	outputDir := t.TempDir()

	suite := NewSuite(NewSuiteArgs{OutputPath: outputDir})

	assert.NotNil(t, suite)
	assert.Equal(t, outputDir, suite.outputDir)
	assert.NotNil(t, suite.logger)
	assert.Empty(t, suite.scenarios)
	assert.Empty(t, suite.results)
}

func TestScenarioBuilder(t *testing.T) {
	scenario := NewScenarioBuilder("test_scenario").
		WithSize(320, 240).
		WithChannels(3).
		WithGaussian(9).
		WithStrategy(convolve.StrategyTransform).
		WithEdge(kernels.EdgeMirror).
		WithWorkers(4).
		WithPersistentPool().
		WithIterations(50).
		WithWarmupRuns(5).
		Build()

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, 320, scenario.Resolution.Width)
	assert.Equal(t, 240, scenario.Resolution.Height)
	assert.Equal(t, 3, scenario.Channels)
	assert.Equal(t, config.KernelConfig{Type: config.KernelGaussian, Size: 9}, scenario.Kernel)
	assert.Equal(t, "transform", scenario.Strategy)
	assert.Equal(t, "mirror", scenario.Edge)
	assert.Equal(t, 4, scenario.Workers)
	assert.True(t, scenario.PersistentPool)
	assert.Equal(t, 50, scenario.Iterations)
	assert.Equal(t, 5, scenario.WarmupRuns)

	opts, err := scenario.Options()
	require.NoError(t, err)
	o := convolve.DefaultOptions().Apply(opts...)
	assert.Equal(t, convolve.StrategyTransform, o.Strategy)
	assert.Equal(t, kernels.EdgeMirror, o.Edge)

	k, err := scenario.BuildKernel()
	require.NoError(t, err)
	assert.Equal(t, 9, k.Rows())
}

func TestAddScenario(t *testing.T) {
	suite := NewSuite(NewSuiteArgs{OutputPath: t.TempDir()})

	scenario := NewScenarioBuilder("test").WithSize(64, 64).Build()
	suite.AddScenario(scenario)

	require.Len(t, suite.Scenarios(), 1)
	assert.Equal(t, scenario, suite.Scenarios()[0])
}

func TestPredefinedScenarios(t *testing.T) {
	predefined := &PredefinedScenarios{}

	quick := predefined.GetQuickScenarios()
	assert.NotEmpty(t, quick.Scenarios)
	assert.Equal(t, "Quick Performance Test", quick.Name)

	comprehensive := predefined.GetComprehensiveScenarios()
	assert.Len(t, comprehensive.Scenarios,
		len(images.GetSupportedResolutions())*len(KernelSizes)*2)
	for _, s := range comprehensive.Scenarios {
		assert.False(t, s.Resolution.Large, s.Name)
	}

	resolution := predefined.GetResolutionComparisonScenarios(7)
	assert.NotEmpty(t, resolution.Scenarios)
	assert.Contains(t, resolution.Name, "Resolution Comparison")

	vga, ok := images.GetResolutionByType(images.ResolutionTypeVGA)
	require.True(t, ok)
	crossover := predefined.GetCrossoverScenarios(vga, 11)
	assert.Len(t, crossover.Scenarios, 10, "sizes 3,5,7,9,11 times two strategies")

	scaling := predefined.GetWorkerScalingScenarios(vga, []int{1, 2, 4})
	require.Len(t, scaling.Scenarios, 3)
	assert.Equal(t, 4, scaling.Scenarios[2].Workers)
}

func TestScenarioSetFiles(t *testing.T) {
	set := (&PredefinedScenarios{}).GetQuickScenarios()

	for _, name := range []string{"scenarios.json", "scenarios.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveScenarioSet(set, path))

			loaded, err := LoadScenarioSet(path)
			require.NoError(t, err)
			assert.Equal(t, set, loaded)
		})
	}

	_, err := LoadScenarioSet(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBenchmarkConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "./benchmark_results", cfg.OutputDir)
	assert.Equal(t, time.Hour, cfg.Timeout)
	assert.True(t, cfg.SaveDetailedLog)

	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outputDir: /tmp/out\ntimeout: 90s\nmaxPixels: 1000\n"), 0o644))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", loaded.OutputDir)
	assert.Equal(t, 90*time.Second, loaded.Timeout)
	assert.Equal(t, 1000, loaded.MaxPixels)
	assert.True(t, loaded.SaveDetailedLog, "unset fields keep their defaults")

	jsonPath := filepath.Join(t.TempDir(), "bench.json")
	require.NoError(t, cfg.SaveConfig(jsonPath))
	roundTrip, err := LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, roundTrip)
}

func TestTimeTracker(t *testing.T) {
	var tracker TimeTracker
	assert.Equal(t, LatencyMetrics{}, tracker.Stats())

	for _, ms := range []int{4, 1, 3, 2, 5} {
		tracker.Record(time.Duration(ms) * time.Millisecond)
	}
	stats := tracker.Stats()
	assert.Equal(t, 5, tracker.Count())
	assert.Equal(t, time.Millisecond, stats.Min)
	assert.Equal(t, 5*time.Millisecond, stats.Max)
	assert.Equal(t, 3*time.Millisecond, stats.Mean)
	assert.Equal(t, 3*time.Millisecond, stats.P50)
	assert.Equal(t, 5*time.Millisecond, stats.P95)
	assert.Greater(t, stats.StdDev, time.Duration(0))
}

func TestRunScenario(t *testing.T) {
	suite := NewSuite(NewSuiteArgs{OutputPath: t.TempDir()})

	direct := NewScenarioBuilder("direct").
		WithSize(96, 64).
		WithGaussian(3).
		WithIterations(3).
		WithWarmupRuns(1).
		Build()

	metrics, err := suite.RunScenario(context.Background(), direct)
	require.NoError(t, err)
	assert.Equal(t, "direct", metrics.Strategy)
	assert.Zero(t, metrics.ErrorRate)
	assert.Greater(t, metrics.FramesPerSecond, 0.0)
	assert.NotEqual(t, "empty", metrics.Checksum)
	assert.Equal(t, 1, metrics.CPUStats.Tiles, "96x64 is below one tile's worth of pixels")

	pooled := direct
	pooled.Name = "pooled"
	pooled.Workers = 3
	pooled.PersistentPool = true
	pooledMetrics, err := suite.RunScenario(context.Background(), pooled)
	require.NoError(t, err)
	assert.Equal(t, metrics.Checksum, pooledMetrics.Checksum, "output must not depend on the worker setup")

	large := NewScenarioBuilder("transform").WithSize(96, 64).WithGaussian(9).WithIterations(2).Build()
	metrics, err = suite.RunScenario(context.Background(), large)
	require.NoError(t, err)
	assert.Equal(t, "transform", metrics.Strategy)
}

func TestRunScenarioErrors(t *testing.T) {
	suite := NewSuite(NewSuiteArgs{OutputPath: t.TempDir(), MaxPixels: 100})

	_, err := suite.RunScenario(context.Background(), NewScenarioBuilder("zero").WithSize(8, 8).WithIterations(0).Build())
	assert.Error(t, err)

	_, err = suite.RunScenario(context.Background(), NewScenarioBuilder("bad").WithSize(0, 8).Build())
	assert.Error(t, err)

	metrics, err := suite.RunScenario(context.Background(),
		NewScenarioBuilder("too large").WithSize(20, 20).WithIterations(2).WithWarmupRuns(0).Build())
	require.NoError(t, err)
	assert.Equal(t, 1.0, metrics.ErrorRate, "every frame exceeds the pixel limit")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = suite.RunScenario(ctx, NewScenarioBuilder("cancelled").WithSize(8, 8).Build())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAllScenariosWithCorpus(t *testing.T) {
	corpus := t.TempDir()
	frame, err := Synthetic(40, 30, 4)
	require.NoError(t, err)
	require.NoError(t, images.EncodeFile(filepath.Join(corpus, "frame-1.png"), frame, images.FormatPNG, 0))

	out := t.TempDir()
	suite := NewSuite(NewSuiteArgs{OutputPath: out, Detailed: true})
	require.NoError(t, suite.LoadCorpus(corpus))
	suite.AddScenarioSet((&PredefinedScenarios{}).GetCrossoverScenarios(
		images.Resolution{Type: "tiny", Name: "tiny", Width: 32, Height: 24}, 7))
	for i := range suite.scenarios {
		suite.scenarios[i].Iterations = 1
		suite.scenarios[i].WarmupRuns = 0
		suite.scenarios[i].Channels = 3
	}

	require.NoError(t, suite.RunAllScenarios(context.Background()))
	results := suite.GetResults()
	require.Len(t, results, 6)

	points := Crossover(results)
	require.Len(t, points, 3)
	assert.Equal(t, 3, points[0].KernelSize)
	assert.Equal(t, "direct", points[0].AutoSelected)
	assert.Equal(t, "transform", points[2].AutoSelected)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var csvFile, jsonFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".csv":
			csvFile = e.Name()
		case ".json":
			jsonFile = e.Name()
		}
	}
	require.NotEmpty(t, csvFile)
	require.NotEmpty(t, jsonFile)

	data, err := os.ReadFile(filepath.Join(out, csvFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "Scenario,Resolution"))
}

func TestLoadCorpusEmpty(t *testing.T) {
	suite := NewSuite(NewSuiteArgs{OutputPath: t.TempDir()})
	assert.Error(t, suite.LoadCorpus(t.TempDir()))
}

func BenchmarkScenarioCreation(b *testing.B) {
	predefined := &PredefinedScenarios{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = predefined.GetComprehensiveScenarios()
	}
}

func BenchmarkConvolveVGA(b *testing.B) {
	frame, err := Synthetic(640, 480, 4)
	require.NoError(b, err)
	dst := frame.Clone()

	for _, size := range []int{3, 5, 9, 15} {
		k, err := kernels.Gaussian(size, 0)
		require.NoError(b, err)
		for _, strategy := range []convolve.Strategy{convolve.StrategyDirect, convolve.StrategyTransform} {
			b.Run(fmt.Sprintf("%s_k%d", strategy, size), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if err := convolve.ConvolveInto(dst, frame, k, convolve.WithStrategy(strategy)); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
