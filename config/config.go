// Package config - File based configuration for the convolve CLI and benchmark.
package config

import (
	"math/rand/v2"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-convolve/convolve"
	"github.com/nvr-ai/go-convolve/images/kernels"
)

// KernelType names a kernel generator.
type KernelType string

const (
	// KernelIdentity copies the image.
	KernelIdentity KernelType = "identity"
	// KernelBox averages a square neighborhood.
	KernelBox KernelType = "box"
	// KernelGaussian is a normalized Gaussian blur.
	KernelGaussian KernelType = "gaussian"
	// KernelPoisson draws Poisson distributed weights.
	KernelPoisson KernelType = "poisson"
	// KernelCustom uses the weights given in the file.
	KernelCustom KernelType = "custom"
)

// OutputFormat is the encoding of the written image.
type OutputFormat string

const (
	// FormatPNG writes lossless PNG.
	FormatPNG OutputFormat = "png"
	// FormatJPEG writes JPEG at Output.Quality.
	FormatJPEG OutputFormat = "jpeg"
	// FormatWebP writes WebP; Quality <= 0 selects lossless.
	FormatWebP OutputFormat = "webp"
)

// Config is the root of a configuration file.
//
// Example:
//
//	kernel:
//	  type: gaussian
//	  size: 9
//	engine:
//	  strategy: auto
//	  edge: clamp
//	output:
//	  path: out.png
type Config struct {
	Kernel KernelConfig `json:"kernel" yaml:"kernel"`
	Engine EngineConfig `json:"engine" yaml:"engine"`
	Input  InputConfig  `json:"input"  yaml:"input"`
	Output OutputConfig `json:"output" yaml:"output"`
}

// KernelConfig describes the kernel to build.
type KernelConfig struct {
	// Type selects the generator.
	Type KernelType `json:"type" yaml:"type"`
	// Size is the side length for generated kernels.
	Size int `json:"size" yaml:"size"`
	// Sigma is the Gaussian standard deviation. <= 0 derives it from Size.
	Sigma float64 `json:"sigma" yaml:"sigma"`
	// Seed makes Poisson kernels reproducible.
	Seed uint64 `json:"seed" yaml:"seed"`
	// Rows and Cols give the shape of a custom kernel.
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
	// Weights are the row-major custom weights.
	Weights []float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	// Normalize scales the kernel to sum to one.
	Normalize bool `json:"normalize" yaml:"normalize"`
}

// EngineConfig mirrors convolve.Options in file form.
type EngineConfig struct {
	Strategy  string `json:"strategy"  yaml:"strategy"`
	Edge      string `json:"edge"      yaml:"edge"`
	Workers   int    `json:"workers"   yaml:"workers"`
	MaxPixels int    `json:"maxPixels" yaml:"maxPixels"`
	// MaxBytes overrides the engine's per-call memory budget when > 0.
	MaxBytes int64 `json:"maxBytes,omitempty" yaml:"maxBytes,omitempty"`
}

// InputConfig describes where the image comes from.
type InputConfig struct {
	Path string `json:"path" yaml:"path"`
	// MaxWidth and MaxHeight down-scale larger inputs, keeping the aspect
	// ratio. Zero disables the limit.
	MaxWidth  uint `json:"maxWidth"  yaml:"maxWidth"`
	MaxHeight uint `json:"maxHeight" yaml:"maxHeight"`
}

// OutputConfig describes where the result goes.
type OutputConfig struct {
	Path    string       `json:"path"    yaml:"path"`
	Format  OutputFormat `json:"format"  yaml:"format"`
	Quality int          `json:"quality" yaml:"quality"`
}

// DefaultConfig returns a 5x5 Gaussian blur with automatic strategy,
// writing PNG.
func DefaultConfig() *Config {
	return &Config{
		Kernel: KernelConfig{
			Type: KernelGaussian,
			Size: 5,
		},
		Engine: EngineConfig{
			Strategy: convolve.StrategyAuto.String(),
			Edge:     kernels.EdgeClamp.String(),
		},
		Output: OutputConfig{
			Format:  FormatPNG,
			Quality: 90,
		},
	}
}

// LoadConfig reads a YAML (or JSON) file on top of DefaultConfig.
//
// Arguments:
//   - path: The file to read.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error if the file cannot be read, parsed or validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", path)
	}
	return nil
}

// Validate checks that every field can be turned into engine settings.
func (c *Config) Validate() error {
	c.Kernel.Type = KernelType(strings.ToLower(string(c.Kernel.Type)))
	switch c.Kernel.Type {
	case KernelIdentity, KernelBox, KernelGaussian, KernelPoisson:
		if c.Kernel.Size <= 0 {
			return errors.Errorf("kernel size must be positive, got %d", c.Kernel.Size)
		}
	case KernelCustom:
		if c.Kernel.Rows <= 0 || c.Kernel.Cols <= 0 {
			return errors.Errorf("custom kernel needs rows and cols, got %dx%d", c.Kernel.Rows, c.Kernel.Cols)
		}
		if len(c.Kernel.Weights) != c.Kernel.Rows*c.Kernel.Cols {
			return errors.Errorf("custom kernel %dx%d needs %d weights, got %d",
				c.Kernel.Rows, c.Kernel.Cols, c.Kernel.Rows*c.Kernel.Cols, len(c.Kernel.Weights))
		}
	default:
		return errors.Errorf("unknown kernel type %q", c.Kernel.Type)
	}

	if _, err := convolve.ParseStrategy(c.Engine.Strategy); err != nil {
		return err
	}
	if _, err := kernels.ParseEdgeMode(c.Engine.Edge); err != nil {
		return err
	}
	if c.Engine.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Engine.Workers)
	}
	if c.Engine.MaxBytes < 0 {
		return errors.Errorf("maxBytes must not be negative, got %d", c.Engine.MaxBytes)
	}
	if c.Engine.MaxPixels < 0 {
		return errors.Errorf("maxPixels must not be negative, got %d", c.Engine.MaxPixels)
	}

	c.Output.Format = OutputFormat(strings.ToLower(string(c.Output.Format)))
	switch c.Output.Format {
	case "", FormatPNG, FormatJPEG, FormatWebP:
	case "jpg":
		c.Output.Format = FormatJPEG
	default:
		return errors.Errorf("unsupported output format %q", c.Output.Format)
	}
	if c.Output.Quality < 0 || c.Output.Quality > 100 {
		return errors.Errorf("jpeg quality must be in [0, 100], got %d", c.Output.Quality)
	}
	return nil
}

// BuildKernel creates the configured kernel.
func (c *Config) BuildKernel() (*kernels.Kernel, error) {
	kc := c.Kernel
	var (
		k   *kernels.Kernel
		err error
	)
	switch kc.Type {
	case KernelIdentity:
		k, err = kernels.Identity(kc.Size, kc.Size)
	case KernelBox:
		k, err = kernels.Box(kc.Size)
	case KernelGaussian:
		k, err = kernels.Gaussian(kc.Size, kc.Sigma)
	case KernelPoisson:
		k, err = kernels.Poisson(kc.Size, rand.NewPCG(kc.Seed, kc.Seed^0x9e3779b97f4a7c15))
	case KernelCustom:
		k, err = kernels.New(kc.Rows, kc.Cols, kc.Weights)
	default:
		err = errors.Errorf("unknown kernel type %q", kc.Type)
	}
	if err != nil {
		return nil, err
	}
	if kc.Normalize {
		k = k.Normalize()
	}
	return k, nil
}

// EngineOptions converts the engine section into convolve options.
func (c *Config) EngineOptions() ([]convolve.Option, error) {
	strategy, err := convolve.ParseStrategy(c.Engine.Strategy)
	if err != nil {
		return nil, err
	}
	edge, err := kernels.ParseEdgeMode(c.Engine.Edge)
	if err != nil {
		return nil, err
	}
	opts := []convolve.Option{
		convolve.WithStrategy(strategy),
		convolve.WithEdge(edge),
		convolve.WithWorkers(c.Engine.Workers),
		convolve.WithMaxPixels(c.Engine.MaxPixels),
	}
	if c.Engine.MaxBytes > 0 {
		opts = append(opts, convolve.WithMaxBytes(c.Engine.MaxBytes))
	}
	return opts, nil
}
