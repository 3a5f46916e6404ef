package kernels

import (
	"strings"

	"github.com/ajroetker/go-highway/hwy/contrib/image"
	"github.com/pkg/errors"
)

// EdgeMode defines how sampling behaves outside the image bounds.
// - Clamp: repeats edge pixels.
// - Mirror: reflects coordinates, duplicating the edge pixel.
// - Wrap: tiles the image.
type EdgeMode int

const (
	EdgeClamp EdgeMode = iota
	EdgeMirror
	EdgeWrap
)

// Map maps index i to [0, n) according to the edge mode.
// Unknown modes behave like EdgeClamp.
func (m EdgeMode) Map(i, n int) int {
	if i >= 0 && i < n {
		return i
	}
	switch m {
	case EdgeMirror:
		return image.Mirror(i, n)
	case EdgeWrap:
		return image.Wrap(i, n)
	default:
		return image.Clamp(i, n)
	}
}

// String implements fmt.Stringer.
func (m EdgeMode) String() string {
	switch m {
	case EdgeClamp:
		return "clamp"
	case EdgeMirror:
		return "mirror"
	case EdgeWrap:
		return "wrap"
	default:
		return "unknown"
	}
}

// ParseEdgeMode parses "clamp", "mirror" or "wrap". An empty string is EdgeClamp.
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp", "replicate":
		return EdgeClamp, nil
	case "mirror", "reflect":
		return EdgeMirror, nil
	case "wrap":
		return EdgeWrap, nil
	default:
		return EdgeClamp, errors.Errorf("unknown edge mode %q", s)
	}
}
