// Package benchmark - Functionality for running convolution benchmarks.
package benchmark

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario  Scenario  `json:"scenario"  yaml:"scenario"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// Strategy is the strategy the engine resolved for the scenario kernel.
	Strategy            string         `json:"strategy"            yaml:"strategy"`
	TotalDuration       time.Duration  `json:"totalDuration"       yaml:"totalDuration"`
	PrepareDuration     time.Duration  `json:"prepareDuration"     yaml:"prepareDuration"`
	Latency             LatencyMetrics `json:"latency"             yaml:"latency"`
	FramesPerSecond     float64        `json:"framesPerSecond"     yaml:"framesPerSecond"`
	MegapixelsPerSecond float64        `json:"megapixelsPerSecond" yaml:"megapixelsPerSecond"`
	MemoryStats         MemoryMetrics  `json:"memoryStats"         yaml:"memoryStats"`
	CPUStats            CPUMetrics     `json:"cpuStats"            yaml:"cpuStats"`
	// Checksum hashes the output of the last iteration.
	Checksum  string  `json:"checksum"  yaml:"checksum"`
	ErrorRate float64 `json:"errorRate" yaml:"errorRate"`
}

// LatencyMetrics summarizes per-frame convolution time.
type LatencyMetrics struct {
	Min    time.Duration `json:"min"    yaml:"min"`
	Max    time.Duration `json:"max"    yaml:"max"`
	Mean   time.Duration `json:"mean"   yaml:"mean"`
	P50    time.Duration `json:"p50"    yaml:"p50"`
	P95    time.Duration `json:"p95"    yaml:"p95"`
	StdDev time.Duration `json:"stdDev" yaml:"stdDev"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"allocBytes"      yaml:"allocBytes"`
	TotalAllocBytes uint64 `json:"totalAllocBytes" yaml:"totalAllocBytes"`
	SysBytes        uint64 `json:"sysBytes"        yaml:"sysBytes"`
	NumGC           uint32 `json:"numGC"           yaml:"numGC"`
	HeapAllocBytes  uint64 `json:"heapAllocBytes"  yaml:"heapAllocBytes"`
	HeapSysBytes    uint64 `json:"heapSysBytes"    yaml:"heapSysBytes"`
	// AllocBytesPerFrame is TotalAllocBytes divided by the iteration count.
	AllocBytesPerFrame uint64 `json:"allocBytesPerFrame" yaml:"allocBytesPerFrame"`
}

// CPUMetrics captures CPU usage statistics
type CPUMetrics struct {
	NumCPU     int `json:"numCPU"     yaml:"numCPU"`
	GOMAXPROCS int `json:"gomaxprocs" yaml:"gomaxprocs"`
	Tiles      int `json:"tiles"      yaml:"tiles"`
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	durations []time.Duration
}

// Record adds one measurement.
func (t *TimeTracker) Record(d time.Duration) {
	t.durations = append(t.durations, d)
}

// Time runs fn and records how long it took.
func (t *TimeTracker) Time(fn func() error) error {
	start := time.Now()
	err := fn()
	t.Record(time.Since(start))
	return err
}

// Count returns the number of measurements.
func (t *TimeTracker) Count() int {
	return len(t.durations)
}

// Stats summarizes the recorded durations. An empty tracker yields zeros.
func (t *TimeTracker) Stats() LatencyMetrics {
	if len(t.durations) == 0 {
		return LatencyMetrics{}
	}
	x := make([]float64, len(t.durations))
	for i, d := range t.durations {
		x[i] = float64(d)
	}
	sort.Float64s(x)

	m := LatencyMetrics{
		Min:  time.Duration(x[0]),
		Max:  time.Duration(x[len(x)-1]),
		Mean: time.Duration(stat.Mean(x, nil)),
		P50:  time.Duration(stat.Quantile(0.5, stat.Empirical, x, nil)),
		P95:  time.Duration(stat.Quantile(0.95, stat.Empirical, x, nil)),
	}
	if len(x) > 1 {
		m.StdDev = time.Duration(stat.StdDev(x, nil))
	}
	return m
}
