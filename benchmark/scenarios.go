package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-convolve/config"
	"github.com/nvr-ai/go-convolve/convolve"
	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/kernels"
)

// Scenario defines a specific test configuration.
type Scenario struct {
	Name       string              `json:"name"       yaml:"name"`
	Resolution images.Resolution   `json:"resolution" yaml:"resolution"`
	Channels   int                 `json:"channels"   yaml:"channels"`
	Kernel     config.KernelConfig `json:"kernel"     yaml:"kernel"`
	Strategy   string              `json:"strategy"   yaml:"strategy"`
	Edge       string              `json:"edge"       yaml:"edge"`
	// Workers sizes the row tiles. 0 uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
	// PersistentPool runs tiles on a worker pool kept for the whole scenario.
	PersistentPool bool `json:"persistentPool" yaml:"persistentPool"`
	Iterations     int  `json:"iterations"     yaml:"iterations"`
	WarmupRuns     int  `json:"warmupRuns"     yaml:"warmupRuns"`
}

// Options converts the scenario into engine options.
func (s Scenario) Options() ([]convolve.Option, error) {
	strategy, err := convolve.ParseStrategy(s.Strategy)
	if err != nil {
		return nil, err
	}
	edge, err := kernels.ParseEdgeMode(s.Edge)
	if err != nil {
		return nil, err
	}
	return []convolve.Option{
		convolve.WithStrategy(strategy),
		convolve.WithEdge(edge),
		convolve.WithWorkers(s.Workers),
	}, nil
}

// BuildKernel creates the scenario kernel.
func (s Scenario) BuildKernel() (*kernels.Kernel, error) {
	cfg := config.DefaultConfig()
	cfg.Kernel = s.Kernel
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", s.Name)
	}
	return cfg.BuildKernel()
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Channels:   4,
			Kernel:     config.KernelConfig{Type: config.KernelGaussian, Size: 5},
			Strategy:   convolve.StrategyAuto.String(),
			Edge:       kernels.EdgeClamp.String(),
			Iterations: 20,
			WarmupRuns: 2,
		},
	}
}

// WithResolution sets the frame size.
func (sb *ScenarioBuilder) WithResolution(res images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = res
	return sb
}

// WithSize sets an ad hoc frame size.
func (sb *ScenarioBuilder) WithSize(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = images.Resolution{
		Type:   images.ResolutionType(fmt.Sprintf("%dx%d", width, height)),
		Name:   fmt.Sprintf("%dx%d", width, height),
		Width:  width,
		Height: height,
	}
	return sb
}

// WithChannels sets the number of interleaved channels.
func (sb *ScenarioBuilder) WithChannels(channels int) *ScenarioBuilder {
	sb.scenario.Channels = channels
	return sb
}

// WithKernel sets the kernel configuration.
func (sb *ScenarioBuilder) WithKernel(k config.KernelConfig) *ScenarioBuilder {
	sb.scenario.Kernel = k
	return sb
}

// WithGaussian uses a size x size Gaussian kernel.
func (sb *ScenarioBuilder) WithGaussian(size int) *ScenarioBuilder {
	sb.scenario.Kernel = config.KernelConfig{Type: config.KernelGaussian, Size: size}
	return sb
}

// WithStrategy forces the engine strategy.
func (sb *ScenarioBuilder) WithStrategy(s convolve.Strategy) *ScenarioBuilder {
	sb.scenario.Strategy = s.String()
	return sb
}

// WithEdge sets the boundary policy.
func (sb *ScenarioBuilder) WithEdge(mode kernels.EdgeMode) *ScenarioBuilder {
	sb.scenario.Edge = mode.String()
	return sb
}

// WithWorkers sets the hardware concurrency used to size row tiles.
func (sb *ScenarioBuilder) WithWorkers(n int) *ScenarioBuilder {
	sb.scenario.Workers = n
	return sb
}

// WithPersistentPool runs tiles on a worker pool shared by all iterations.
func (sb *ScenarioBuilder) WithPersistentPool() *ScenarioBuilder {
	sb.scenario.PersistentPool = true
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet represents a collection of related test scenarios
type ScenarioSet struct {
	Name        string     `json:"name"        yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Scenarios   []Scenario `json:"scenarios"   yaml:"scenarios"`
}

// KernelSizes are the kernel side lengths swept by the predefined sets.
var KernelSizes = []int{3, 5, 7, 9, 15, 31}

// strategies compared by the predefined sets.
var strategies = []convolve.Strategy{convolve.StrategyDirect, convolve.StrategyTransform}

// PredefinedScenarios contains common benchmark scenario sets
type PredefinedScenarios struct{}

// GetQuickScenarios returns a smaller set for quick testing
func (ps *PredefinedScenarios) GetQuickScenarios() *ScenarioSet {
	scenarios := make([]Scenario, 0)

	vga, _ := images.GetResolutionByType(images.ResolutionTypeVGA)
	for _, size := range []int{3, 9} {
		scenario := NewScenarioBuilder(fmt.Sprintf("quick_%s_k%d", vga.Type, size)).
			WithResolution(vga).
			WithGaussian(size).
			WithIterations(10).
			WithWarmupRuns(1).
			Build()
		scenarios = append(scenarios, scenario)
	}

	return &ScenarioSet{
		Name:        "Quick Performance Test",
		Description: "A small and a large kernel on VGA frames with automatic strategy",
		Scenarios:   scenarios,
	}
}

// GetComprehensiveScenarios returns every supported resolution crossed with
// every kernel size and both strategies.
func (ps *PredefinedScenarios) GetComprehensiveScenarios() *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for _, resolution := range images.GetSupportedResolutions() {
		for _, size := range KernelSizes {
			for _, strategy := range strategies {
				scenario := NewScenarioBuilder(fmt.Sprintf("%s_k%d_%s", resolution.Type, size, strategy)).
					WithResolution(resolution).
					WithGaussian(size).
					WithStrategy(strategy).
					Build()
				scenarios = append(scenarios, scenario)
			}
		}
	}

	return &ScenarioSet{
		Name:        "Comprehensive Performance Test",
		Description: "Tests all combinations of resolutions, kernel sizes and strategies",
		Scenarios:   scenarios,
	}
}

// GetResolutionComparisonScenarios runs one kernel over every supported resolution.
func (ps *PredefinedScenarios) GetResolutionComparisonScenarios(kernelSize int) *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for _, resolution := range images.GetSupportedResolutions() {
		scenario := NewScenarioBuilder(fmt.Sprintf("resolution_%s_k%d", resolution.Type, kernelSize)).
			WithResolution(resolution).
			WithGaussian(kernelSize).
			Build()
		scenarios = append(scenarios, scenario)
	}

	return &ScenarioSet{
		Name:        fmt.Sprintf("Resolution Comparison - %dx%d kernel", kernelSize, kernelSize),
		Description: fmt.Sprintf("Compares frame sizes for a %dx%d Gaussian", kernelSize, kernelSize),
		Scenarios:   scenarios,
	}
}

// GetCrossoverScenarios runs both strategies for every odd kernel size from
// 3 to maxSize at one resolution, locating where the transform path wins.
func (ps *PredefinedScenarios) GetCrossoverScenarios(resolution images.Resolution, maxSize int) *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for size := 3; size <= maxSize; size += 2 {
		for _, strategy := range strategies {
			scenario := NewScenarioBuilder(fmt.Sprintf("crossover_%s_k%d_%s", resolution.Type, size, strategy)).
				WithResolution(resolution).
				WithGaussian(size).
				WithStrategy(strategy).
				Build()
			scenarios = append(scenarios, scenario)
		}
	}

	return &ScenarioSet{
		Name:        fmt.Sprintf("Strategy Crossover @ %s", resolution.Name),
		Description: "Compares direct and transform convolution per kernel size",
		Scenarios:   scenarios,
	}
}

// GetWorkerScalingScenarios runs a direct-path kernel with an increasing
// number of workers.
func (ps *PredefinedScenarios) GetWorkerScalingScenarios(resolution images.Resolution, workers []int) *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for _, n := range workers {
		scenario := NewScenarioBuilder(fmt.Sprintf("workers_%s_w%d", resolution.Type, n)).
			WithResolution(resolution).
			WithGaussian(5).
			WithStrategy(convolve.StrategyDirect).
			WithWorkers(n).
			WithPersistentPool().
			Build()
		scenarios = append(scenarios, scenario)
	}

	return &ScenarioSet{
		Name:        fmt.Sprintf("Worker Scaling @ %s", resolution.Name),
		Description: "Direct convolution throughput per worker count",
		Scenarios:   scenarios,
	}
}

// isYAML reports whether a file name has a YAML extension.
func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// marshal encodes v as YAML or indented JSON depending on the file name.
func marshal(filename string, v any) ([]byte, error) {
	if isYAML(filename) {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// unmarshal decodes YAML or JSON depending on the file name.
func unmarshal(filename string, data []byte, v any) error {
	if isYAML(filename) {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// SaveScenarioSet saves a scenario set to a JSON or YAML file
func SaveScenarioSet(scenarioSet *ScenarioSet, filename string) error {
	data, err := marshal(filename, scenarioSet)
	if err != nil {
		return errors.Wrap(err, "failed to marshal scenario set")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write scenario file")
	}

	return nil
}

// LoadScenarioSet loads a scenario set from a JSON or YAML file
func LoadScenarioSet(filename string) (*ScenarioSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}

	var scenarioSet ScenarioSet
	if err := unmarshal(filename, data, &scenarioSet); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal scenario set")
	}

	return &scenarioSet, nil
}

// Config represents the overall benchmark configuration
type Config struct {
	OutputDir       string        `json:"outputDir"       yaml:"outputDir"`
	CorpusPath      string        `json:"corpusPath"      yaml:"corpusPath"`
	ScenarioFile    string        `json:"scenarioFile"    yaml:"scenarioFile"`
	Timeout         time.Duration `json:"timeout"         yaml:"timeout"`
	MaxPixels       int           `json:"maxPixels"       yaml:"maxPixels"`
	SaveDetailedLog bool          `json:"saveDetailedLog" yaml:"saveDetailedLog"`
}

// DefaultConfig returns a default benchmark configuration
func DefaultConfig() *Config {
	return &Config{
		OutputDir:       "./benchmark_results",
		Timeout:         time.Hour,
		SaveDetailedLog: true,
	}
}

// SaveConfig saves the benchmark configuration to a JSON or YAML file
func (c *Config) SaveConfig(filename string) error {
	data, err := marshal(filename, c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// LoadConfig loads benchmark configuration from a JSON or YAML file on top
// of DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := DefaultConfig()
	if err := unmarshal(filename, data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return cfg, nil
}
