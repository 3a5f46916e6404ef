package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/benchmark"
	"github.com/nvr-ai/go-convolve/convolve"
	"github.com/nvr-ai/go-convolve/images"
)

func main() {
	var (
		configFile    = flag.String("config", "", "Path to benchmark configuration file (JSON or YAML)")
		scenarioFile  = flag.String("scenarios", "", "Path to scenario file (JSON or YAML)")
		outputDir     = flag.String("output", "", "Output directory for results")
		corpus        = flag.String("images", "", "Directory of frames to convolve; synthetic frames when empty")
		quick         = flag.Bool("quick", false, "Run quick benchmark scenarios")
		comprehensive = flag.Bool("comprehensive", false, "Run comprehensive benchmark scenarios")
		resolutions   = flag.Int("resolutions", 0, "Compare resolutions for a kernel of this size")
		crossover     = flag.String("crossover", "", "Compare strategies per kernel size at this resolution (e.g. vga, 1080p)")
		maxKernel     = flag.Int("max-kernel", 15, "Largest kernel size of the crossover sweep")
		workers       = flag.String("workers", "", "Comma separated worker counts for a scaling sweep at VGA")
		timeout       = flag.Duration("timeout", 0, "Benchmark timeout duration")
		verbose       = flag.Bool("v", false, "Log engine decisions")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if *verbose {
		convolve.SetLogger(logger)
	}

	// Load configuration if provided
	cfg := benchmark.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = benchmark.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *corpus != "" {
		cfg.CorpusPath = *corpus
	}
	if *scenarioFile != "" {
		cfg.ScenarioFile = *scenarioFile
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}

	suite := benchmark.NewSuite(benchmark.NewSuiteArgs{
		OutputPath: cfg.OutputDir,
		MaxPixels:  cfg.MaxPixels,
		Detailed:   cfg.SaveDetailedLog,
		Logger:     logger,
	})

	if cfg.CorpusPath != "" {
		if err := suite.LoadCorpus(cfg.CorpusPath); err != nil {
			log.Fatalf("Failed to load images: %v", err)
		}
	}

	predefined := &benchmark.PredefinedScenarios{}
	if cfg.ScenarioFile != "" {
		scenarioSet, err := benchmark.LoadScenarioSet(cfg.ScenarioFile)
		if err != nil {
			log.Fatalf("Failed to load scenario file: %v", err)
		}
		suite.AddScenarioSet(scenarioSet)
		logger.Info("scenarios loaded", "count", len(scenarioSet.Scenarios), "file", cfg.ScenarioFile)
	} else {
		if *quick {
			suite.AddScenarioSet(predefined.GetQuickScenarios())
		}
		if *comprehensive {
			suite.AddScenarioSet(predefined.GetComprehensiveScenarios())
		}
		if *resolutions > 0 {
			suite.AddScenarioSet(predefined.GetResolutionComparisonScenarios(*resolutions))
		}
		if *crossover != "" {
			res, ok := images.GetResolutionByType(images.ResolutionType(*crossover))
			if !ok {
				log.Fatalf("Unknown resolution %q", *crossover)
			}
			suite.AddScenarioSet(predefined.GetCrossoverScenarios(res, *maxKernel))
		}
		if *workers != "" {
			counts, err := parseCounts(*workers)
			if err != nil {
				log.Fatalf("Invalid -workers: %v", err)
			}
			vga, _ := images.GetResolutionByType(images.ResolutionTypeVGA)
			suite.AddScenarioSet(predefined.GetWorkerScalingScenarios(vga, counts))
		}

		// If no specific scenarios requested, use quick by default
		if len(suite.Scenarios()) == 0 {
			suite.AddScenarioSet(predefined.GetQuickScenarios())
		}
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	logger.Info("starting benchmark", "scenarios", len(suite.Scenarios()))
	start := time.Now()

	if err := suite.RunAllScenarios(ctx); err != nil {
		log.Fatalf("Benchmark execution failed: %v", err)
	}

	logger.Info("benchmark completed", "duration", time.Since(start), "output", cfg.OutputDir)

	// Print summary
	results := suite.GetResults()
	fmt.Printf("\n=== BENCHMARK RESULTS SUMMARY ===\n")
	fmt.Printf("Total scenarios: %d\n", len(results))

	var bestFPS float64
	var bestScenario string
	for _, result := range results {
		if result.FramesPerSecond > bestFPS {
			bestFPS = result.FramesPerSecond
			bestScenario = result.Scenario.Name
		}
		fmt.Printf("  %-32s %-9s %8.2f FPS  p50 %-10v %.2f MB/frame\n",
			result.Scenario.Name,
			result.Strategy,
			result.FramesPerSecond,
			result.Latency.P50,
			float64(result.MemoryStats.AllocBytesPerFrame)/(1024*1024))
	}
	fmt.Printf("\nBest performing scenario: %s (%.2f FPS)\n", bestScenario, bestFPS)

	if points := benchmark.Crossover(results); len(points) > 0 {
		fmt.Printf("\n=== STRATEGY CROSSOVER ===\n")
		for _, p := range points {
			fmt.Printf("  %-10s k=%-3d direct %-10v transform %-10v faster=%-9s auto=%s\n",
				p.Resolution, p.KernelSize, p.Direct, p.Transform, p.Faster, p.AutoSelected)
		}
	}
}

// parseCounts parses "1,2,4" into positive integers.
func parseCounts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, errors.Errorf("worker count must be positive, got %d", n)
		}
		out = append(out, n)
	}
	return out, nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "Benchmark tool for 2D convolution performance testing.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -quick\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -images ./frames -crossover 1080p -max-kernel 21\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -config ./benchmark.yaml -scenarios ./scenarios.yaml\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -workers 1,2,4,8,12 -output ./results\n", filepath.Base(os.Args[0]))
	}
}
