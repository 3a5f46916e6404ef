package convolve

import (
	"math"
	"runtime/debug"
	"strings"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/images/kernels"
)

// Options configures a convolution call.
type Options struct {
	// Strategy forces the direct or transform path. StrategyAuto picks by kernel size.
	Strategy Strategy `json:"strategy" yaml:"strategy"`
	// Edge defines how samples outside the image are read.
	Edge kernels.EdgeMode `json:"edge" yaml:"edge"`
	// Workers is the hardware concurrency used to size row tiles. <= 0 uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
	// MaxPixels rejects images with more pixels than this. 0 disables the limit.
	MaxPixels int `json:"maxPixels" yaml:"maxPixels"`
	// MaxBytes bounds the scratch and workspace memory of one call. Requests
	// over it fail with ErrResourceExhausted before anything is allocated.
	// <= 0 disables the limit.
	MaxBytes int64 `json:"maxBytes" yaml:"maxBytes"`
	// Pool, when set, runs direct-path tiles on persistent workers.
	Pool *workerpool.Pool `json:"-" yaml:"-"`

	// scratch holds an *images.Pool[T] for the direct path.
	scratch any
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Strategy: StrategyAuto,
		Edge:     kernels.EdgeClamp,
		MaxBytes: DefaultMaxBytes(),
	}
}

// DefaultMemoryBudget is the MaxBytes default when no runtime memory limit
// is set.
const DefaultMemoryBudget int64 = 8 << 30

// DefaultMaxBytes returns half of the runtime soft memory limit (GOMEMLIMIT)
// when one is set, and DefaultMemoryBudget otherwise.
func DefaultMaxBytes() int64 {
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		return min(limit/2, DefaultMemoryBudget)
	}
	return DefaultMemoryBudget
}

// WithStrategy forces a convolution strategy.
func WithStrategy(s Strategy) Option {
	return func(o *Options) { o.Strategy = s }
}

// WithEdge sets the boundary policy.
func WithEdge(mode kernels.EdgeMode) Option {
	return func(o *Options) { o.Edge = mode }
}

// WithWorkers sets the hardware concurrency used to size row tiles.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithMaxPixels rejects images larger than n pixels with ErrResourceExhausted.
func WithMaxPixels(n int) Option {
	return func(o *Options) { o.MaxPixels = n }
}

// WithMaxBytes sets the per-call memory budget. n <= 0 disables it.
func WithMaxBytes(n int64) Option {
	return func(o *Options) { o.MaxBytes = n }
}

// WithPool runs direct-path tiles on a persistent worker pool.
func WithPool(p *workerpool.Pool) Option {
	return func(o *Options) { o.Pool = p }
}

// WithScratchPool reuses direct-path scratch buffers across calls. The pool
// element type must match the buffer being convolved; otherwise it is ignored.
func WithScratchPool(p any) Option {
	return func(o *Options) { o.scratch = p }
}

// Apply returns a copy of o with opts applied.
func (o Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Strategy selects the algorithm used for a convolution.
type Strategy int

const (
	// StrategyAuto picks direct for kernels under 7x7 and transform otherwise.
	StrategyAuto Strategy = iota
	// StrategyDirect evaluates the weighted sum in the spatial domain.
	StrategyDirect
	// StrategyTransform multiplies spectra in the frequency domain.
	StrategyTransform
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyDirect:
		return "direct"
	case StrategyTransform:
		return "transform"
	default:
		return "unknown"
	}
}

// ParseStrategy parses "auto", "direct" or "transform" (alias "fft").
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StrategyAuto, nil
	case "direct", "spatial":
		return StrategyDirect, nil
	case "transform", "fft":
		return StrategyTransform, nil
	default:
		return StrategyAuto, errors.Errorf("unknown strategy %q", s)
	}
}
