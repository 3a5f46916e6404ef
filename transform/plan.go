package transform

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// plan is a 2D real-to-complex transform of a rows x cols grid.
//
// The spectrum keeps only the non-negative column frequencies, rows x
// (cols/2+1) coefficients stored row-major. The forward pass runs a real
// transform on every row and then a complex transform on every spectrum
// column. The inverse pass runs those steps backwards. Neither direction is
// normalized.
//
// A plan owns scratch memory and must not be used by two goroutines at once.
type plan struct {
	rows, cols int
	half       int

	rowFFT *fourier.FFT
	colFFT *fourier.CmplxFFT
	column []complex128
}

// newPlan creates a plan. Callers hold the planner lock.
func newPlan(rows, cols int) *plan {
	return &plan{
		rows:   rows,
		cols:   cols,
		half:   cols/2 + 1,
		rowFFT: fourier.NewFFT(cols),
		colFFT: fourier.NewCmplxFFT(rows),
		column: make([]complex128, rows),
	}
}

// forward transforms the real grid src (rows*cols) into dst (rows*half).
func (p *plan) forward(dst []complex128, src []float64) {
	for r := 0; r < p.rows; r++ {
		p.rowFFT.Coefficients(dst[r*p.half:(r+1)*p.half], src[r*p.cols:(r+1)*p.cols])
	}
	p.columns(dst, p.colFFT.Coefficients)
}

// inverse transforms the spectrum src (rows*half) into the real grid dst
// (rows*cols). src is overwritten.
func (p *plan) inverse(dst []float64, src []complex128) {
	p.columns(src, p.colFFT.Sequence)
	for r := 0; r < p.rows; r++ {
		p.rowFFT.Sequence(dst[r*p.cols:(r+1)*p.cols], src[r*p.half:(r+1)*p.half])
	}
}

// columns applies a 1D complex transform to each spectrum column in place.
func (p *plan) columns(spec []complex128, fn func(dst, seq []complex128) []complex128) {
	for c := 0; c < p.half; c++ {
		for r := 0; r < p.rows; r++ {
			p.column[r] = spec[r*p.half+c]
		}
		fn(p.column, p.column)
		for r := 0; r < p.rows; r++ {
			spec[r*p.half+c] = p.column[r]
		}
	}
}
