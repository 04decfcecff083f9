package status

import (
	"math"
	"sort"
)

// Geomean returns the geometric mean of the finite, strictly positive values
// in vs: exp(mean(ln v)). It returns NaN when no such values remain. NaN
// signals "undefined", not an error; bacteria aggregates are routinely
// undefined when a window holds no usable samples.
func Geomean(vs []float64) float64 {
	var logSum float64
	var n int
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		logSum += math.Log(v)
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return math.Exp(logSum / float64(n))
}

// Quantile returns the p-quantile of the finite values in vs using linear
// interpolation at position p*(n-1) over the ascending sort. It returns NaN
// on empty input and NaN for p outside [0, 1]: out-of-range probabilities
// are a caller bug and are rejected rather than silently clamped.
func Quantile(vs []float64, p float64) float64 {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN()
	}

	finite := make([]float64, 0, len(vs))
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite = append(finite, v)
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)

	pos := p * float64(len(finite)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return finite[lo]
	}
	frac := pos - float64(lo)
	return finite[lo] + frac*(finite[hi]-finite[lo])
}
