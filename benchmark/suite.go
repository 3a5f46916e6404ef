package benchmark

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/convolve"
	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/parallel"
	"github.com/nvr-ai/go-convolve/util"
)

// Suite manages and executes benchmark scenarios
type Suite struct {
	scenarios []Scenario
	outputDir string
	maxPixels int
	detailed  bool
	corpus    []*images.Buffer[uint8]
	logger    *slog.Logger
	mu        sync.RWMutex
	results   []PerformanceMetrics
}

// NewSuiteArgs represents the arguments for creating a new benchmark suite.
type NewSuiteArgs struct {
	// OutputPath is where SaveResults writes its files.
	OutputPath string `json:"outputPath" yaml:"outputPath"`
	// MaxPixels is passed to the engine. 0 disables the limit.
	MaxPixels int `json:"maxPixels" yaml:"maxPixels"`
	// Detailed also writes the full JSON results next to the CSV summary.
	Detailed bool `json:"detailed" yaml:"detailed"`
	// Logger receives progress records. Nil uses slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - args: The arguments for creating a new benchmark suite.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(args NewSuiteArgs) *Suite {
	logger := args.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Suite{
		outputDir: args.OutputPath,
		maxPixels: args.MaxPixels,
		detailed:  args.Detailed,
		logger:    logger,
		scenarios: make([]Scenario, 0),
		results:   make([]PerformanceMetrics, 0),
	}
}

// AddScenario adds a test scenario to the benchmark suite
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// AddScenarioSet adds every scenario of a set.
func (bs *Suite) AddScenarioSet(set *ScenarioSet) {
	for _, s := range set.Scenarios {
		bs.AddScenario(s)
	}
}

// Scenarios returns a copy of the configured scenarios.
func (bs *Suite) Scenarios() []Scenario {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]Scenario(nil), bs.scenarios...)
}

// LoadCorpus decodes every image of a directory as benchmark input. Without a
// corpus, scenarios run on a synthetic frame.
func (bs *Suite) LoadCorpus(dir string) error {
	frames, err := util.LoadDirectoryImages(dir)
	if err != nil {
		return errors.Wrap(err, "failed to load corpus")
	}
	if len(frames) == 0 {
		return errors.Errorf("no images found in %s", dir)
	}

	bs.mu.Lock()
	bs.corpus = frames
	bs.mu.Unlock()
	bs.logger.Info("corpus loaded", "dir", dir, "frames", len(frames))
	return nil
}

// inputs returns the frames of a scenario at its resolution and channel count.
func (bs *Suite) inputs(s Scenario) ([]*images.Buffer[uint8], error) {
	w, h, c := s.Resolution.Width, s.Resolution.Height, s.Channels
	if err := images.ValidateGeometry(w, h, w*c, c); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", s.Name)
	}

	bs.mu.RLock()
	corpus := bs.corpus
	bs.mu.RUnlock()

	if len(corpus) == 0 {
		frame, err := Synthetic(w, h, c)
		if err != nil {
			return nil, err
		}
		return []*images.Buffer[uint8]{frame}, nil
	}

	out := make([]*images.Buffer[uint8], 0, len(corpus))
	for _, src := range corpus {
		img, err := images.ToImage(src)
		if err != nil {
			return nil, err
		}
		if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
			if img, err = images.Resize(img, w, h); err != nil {
				return nil, err
			}
		}
		rgba, err := images.FromImage(img)
		if err != nil {
			return nil, err
		}
		frame, err := images.NewBuffer[uint8](w, h, c)
		if err != nil {
			return nil, err
		}
		for y := 0; y < h; y++ {
			from, to := rgba.Row(y), frame.Row(y)
			for x := 0; x < w; x++ {
				copy(to[x*c:(x+1)*c], from[x*4:x*4+c])
			}
		}
		out = append(out, frame)
	}
	return out, nil
}

// Synthetic builds a deterministic width x height frame with gradients and
// hard edges in every channel.
func Synthetic(width, height, channels int) (*images.Buffer[uint8], error) {
	frame, err := images.NewBuffer[uint8](width, height, channels)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		row := frame.Row(y)
		for x := 0; x < width; x++ {
			for ch := 0; ch < channels; ch++ {
				v := (x*255/max(1, width-1) + ch*64) & 0xff
				if (x/16+y/16)%2 == 1 {
					v = 255 - v
				}
				row[x*channels+ch] = uint8(v)
			}
		}
	}
	return frame, nil
}

// RunScenario executes a single benchmark scenario
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s: iterations must be positive", scenario.Name)
	}
	k, err := scenario.BuildKernel()
	if err != nil {
		return nil, err
	}
	opts, err := scenario.Options()
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}
	opts = append(opts,
		convolve.WithMaxPixels(bs.maxPixels),
		convolve.WithScratchPool(images.NewPool[uint8]()))

	if scenario.PersistentPool {
		workers := scenario.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		pool := workerpool.New(workers)
		defer pool.Close()
		opts = append(opts, convolve.WithPool(pool))
	}

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
		Strategy:  resolveStrategy(scenario, k.Rows(), k.Cols()).String(),
	}

	prepareStart := time.Now()
	inputs, err := bs.inputs(scenario)
	if err != nil {
		return nil, err
	}
	w, h, c := scenario.Resolution.Width, scenario.Resolution.Height, scenario.Channels
	dst, err := images.NewBuffer[uint8](w, h, c)
	if err != nil {
		return nil, err
	}
	metrics.PrepareDuration = time.Since(prepareStart)

	// Warmup runs
	for i := 0; i < scenario.WarmupRuns; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := convolve.ConvolveInto(dst, inputs[i%len(inputs)], k, opts...); err != nil {
			bs.logger.Warn("warmup failed", "scenario", scenario.Name, "error", err)
		}
	}

	// Capture initial memory stats
	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	var tracker TimeTracker
	failures := 0
	startTime := time.Now()

	// Run benchmark iterations
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := inputs[i%len(inputs)]
		err := tracker.Time(func() error {
			return convolve.ConvolveInto(dst, src, k, opts...)
		})
		if err != nil {
			failures++
			bs.logger.Debug("iteration failed", "scenario", scenario.Name, "iteration", i, "error", err)
		}
	}

	totalDuration := time.Since(startTime)

	// Capture final memory stats
	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	// Calculate metrics
	metrics.TotalDuration = totalDuration
	metrics.Latency = tracker.Stats()
	metrics.FramesPerSecond = float64(scenario.Iterations) / totalDuration.Seconds()
	metrics.MegapixelsPerSecond = metrics.FramesPerSecond * float64(w*h) / 1e6
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.Checksum = images.ComputeChecksum(dst)

	totalAlloc := endMem.TotalAlloc - startMem.TotalAlloc
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:         endMem.Alloc,
		TotalAllocBytes:    totalAlloc,
		SysBytes:           endMem.Sys,
		NumGC:              endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:     endMem.HeapAlloc,
		HeapSysBytes:       endMem.HeapSys,
		AllocBytesPerFrame: totalAlloc / uint64(scenario.Iterations),
	}

	metrics.CPUStats = CPUMetrics{
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		Tiles:      parallel.TileCount(w, h, scenario.Workers),
	}

	return metrics, nil
}

// resolveStrategy returns the strategy the engine will use for a scenario.
func resolveStrategy(s Scenario, rows, cols int) convolve.Strategy {
	strategy, err := convolve.ParseStrategy(s.Strategy)
	if err != nil || strategy == convolve.StrategyAuto {
		return convolve.SelectStrategy(rows, cols)
	}
	return strategy
}

// RunAllScenarios executes all configured benchmark scenarios and saves the
// results. A failing scenario is logged and skipped; cancellation stops the run.
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	for _, scenario := range bs.Scenarios() {
		metrics, err := bs.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "benchmark interrupted")
			}
			bs.logger.Error("scenario failed", "scenario", scenario.Name, "error", err)
			continue
		}

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()

		bs.logger.Info("scenario completed",
			"scenario", scenario.Name,
			"strategy", metrics.Strategy,
			"fps", metrics.FramesPerSecond,
			"p50", metrics.Latency.P50)
	}

	return bs.SaveResults()
}

// GetResults returns all benchmark results
func (bs *Suite) GetResults() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	results := make([]PerformanceMetrics, len(bs.results))
	copy(results, bs.results)
	return results
}
