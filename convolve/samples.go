package convolve

import (
	"github.com/ajroetker/go-highway/hwy"
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-convolve/images"
)

// quantize writes src*scale into dst[i*step]. Integer samples are rounded
// half away from zero and clamped to [0, max]; float samples are clamped to
// [0, 1]. Non-finite values become 0. src is used as scratch and overwritten.
func quantize[T images.Sample](dst []T, step int, src []float32, scale float32) {
	round := !images.IsFloat[T]()
	for i, v := range src {
		v *= scale
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			v = 0
		}
		if round {
			v = math32.Round(v)
		}
		src[i] = v
	}
	clampRow(src, 0, images.MaxValue[T]())
	for i, v := range src {
		dst[i*step] = T(v)
	}
}

// clampRow clamps every value of v to [lo, hi].
func clampRow(v []float32, lo, hi float32) {
	vlo, vhi := hwy.Set(lo), hwy.Set(hi)
	lanes := hwy.MaxLanes[float32]()
	i := 0
	for ; i+lanes <= len(v); i += lanes {
		hwy.Store(hwy.Min(hwy.Max(hwy.Load(v[i:]), vlo), vhi), v[i:])
	}
	for ; i < len(v); i++ {
		v[i] = min(max(v[i], lo), hi)
	}
}

// widen converts samples to float32 without rescaling.
func widen[T images.Sample](dst []float32, src []T) {
	for i, v := range src {
		dst[i] = float32(v)
	}
}
