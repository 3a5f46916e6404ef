package benchmark

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/config"
	"github.com/nvr-ai/go-convolve/convolve"
)

// SaveResults persists benchmark results to filesystem
func (bs *Suite) SaveResults() error {
	results := bs.GetResults()

	// Ensure output directory exists
	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")

	if bs.detailed {
		resultsFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal results")
		}
		if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
			return errors.Wrap(err, "failed to write results file")
		}
		bs.logger.Info("results saved", "path", resultsFile)
	}

	summaryFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return errors.Wrap(err, "failed to save summary CSV")
	}
	bs.logger.Info("summary saved", "path", summaryFile)

	return nil
}

// summaryHeader names the CSV columns written by saveSummaryCSV.
var summaryHeader = []string{
	"Scenario", "Resolution", "Channels", "Kernel", "Strategy", "Workers",
	"FPS", "MPixels_per_s", "P50_ms", "P95_ms", "Alloc_per_frame_MB", "Error_Rate", "Checksum",
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(file)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.Scenario.Name,
			fmt.Sprintf("%dx%d", r.Scenario.Resolution.Width, r.Scenario.Resolution.Height),
			strconv.Itoa(r.Scenario.Channels),
			fmt.Sprintf("%s%d", r.Scenario.Kernel.Type, kernelSide(r.Scenario)),
			r.Strategy,
			strconv.Itoa(r.Scenario.Workers),
			fmt.Sprintf("%.2f", r.FramesPerSecond),
			fmt.Sprintf("%.2f", r.MegapixelsPerSecond),
			fmt.Sprintf("%.3f", float64(r.Latency.P50)/float64(time.Millisecond)),
			fmt.Sprintf("%.3f", float64(r.Latency.P95)/float64(time.Millisecond)),
			fmt.Sprintf("%.2f", float64(r.MemoryStats.AllocBytesPerFrame)/(1024*1024)),
			fmt.Sprintf("%.4f", r.ErrorRate),
			r.Checksum,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// kernelSide returns the larger kernel dimension of a scenario.
func kernelSide(s Scenario) int {
	if s.Kernel.Type == config.KernelCustom {
		return max(s.Kernel.Rows, s.Kernel.Cols)
	}
	return s.Kernel.Size
}

// CrossoverPoint compares both strategies for one resolution and kernel size.
type CrossoverPoint struct {
	Resolution   string        `json:"resolution"   yaml:"resolution"`
	KernelSize   int           `json:"kernelSize"   yaml:"kernelSize"`
	Direct       time.Duration `json:"direct"       yaml:"direct"`
	Transform    time.Duration `json:"transform"    yaml:"transform"`
	Faster       string        `json:"faster"       yaml:"faster"`
	AutoSelected string        `json:"autoSelected" yaml:"autoSelected"`
}

// Crossover pairs direct and transform results of the same resolution and
// kernel size by median latency. Pairs missing either strategy are skipped.
func Crossover(results []PerformanceMetrics) []CrossoverPoint {
	type key struct {
		res  string
		size int
	}
	pairs := make(map[key]*CrossoverPoint)
	for _, r := range results {
		k := key{
			res:  fmt.Sprintf("%dx%d", r.Scenario.Resolution.Width, r.Scenario.Resolution.Height),
			size: kernelSide(r.Scenario),
		}
		p, ok := pairs[k]
		if !ok {
			p = &CrossoverPoint{Resolution: k.res, KernelSize: k.size}
			pairs[k] = p
		}
		switch r.Strategy {
		case convolve.StrategyDirect.String():
			p.Direct = r.Latency.P50
		case convolve.StrategyTransform.String():
			p.Transform = r.Latency.P50
		}
	}

	out := make([]CrossoverPoint, 0, len(pairs))
	for _, p := range pairs {
		if p.Direct == 0 || p.Transform == 0 {
			continue
		}
		p.Faster = convolve.StrategyDirect.String()
		if p.Transform < p.Direct {
			p.Faster = convolve.StrategyTransform.String()
		}
		p.AutoSelected = convolve.SelectStrategy(p.KernelSize, p.KernelSize).String()
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resolution != out[j].Resolution {
			return out[i].Resolution < out[j].Resolution
		}
		return out[i].KernelSize < out[j].KernelSize
	})
	return out
}
