package status

import (
	"math"
	"testing"
)

func TestGeomeanEmptyIsNaN(t *testing.T) {
	if !math.IsNaN(Geomean(nil)) {
		t.Error("geomean of empty input must be NaN")
	}
	if !math.IsNaN(Geomean([]float64{})) {
		t.Error("geomean of empty slice must be NaN")
	}
}

func TestGeomeanIgnoresNonPositive(t *testing.T) {
	if !math.IsNaN(Geomean([]float64{0, -1})) {
		t.Error("geomean with no positive values must be NaN")
	}
	// Non-positive and non-finite values are dropped, not treated as errors.
	got := Geomean([]float64{0, -5, math.NaN(), math.Inf(1), 100})
	if math.Abs(got-100) > 1e-9 {
		t.Errorf("geomean = %v, want 100", got)
	}
}

func TestGeomeanSingleValue(t *testing.T) {
	for _, x := range []float64{0.5, 1, 42, 1000} {
		got := Geomean([]float64{x})
		if math.Abs(got-x) > 1e-9*x {
			t.Errorf("geomean([%v]) = %v, want %v", x, got, x)
		}
	}
}

func TestGeomeanKnownValue(t *testing.T) {
	// sqrt(1 * 1000) = 31.6227...
	got := Geomean([]float64{1, 1000})
	want := math.Sqrt(1000)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("geomean([1,1000]) = %v, want %v", got, want)
	}
}

func TestQuantileLinearInterpolation(t *testing.T) {
	vs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	// Position 0.9 * 9 = 8.1: between index 8 (9) and index 9 (10).
	got := Quantile(vs, 0.9)
	if math.Abs(got-9.1) > 1e-9 {
		t.Errorf("p90 of [1..10] = %v, want 9.1", got)
	}
}

func TestQuantileBounds(t *testing.T) {
	vs := []float64{3, 1, 2}
	if got := Quantile(vs, 0); got != 1 {
		t.Errorf("p0 = %v, want 1", got)
	}
	if got := Quantile(vs, 1); got != 3 {
		t.Errorf("p100 = %v, want 3", got)
	}
	if got := Quantile(vs, 0.5); got != 2 {
		t.Errorf("p50 = %v, want 2", got)
	}
}

func TestQuantileEmptyIsNaN(t *testing.T) {
	if !math.IsNaN(Quantile(nil, 0.9)) {
		t.Error("quantile of empty input must be NaN")
	}
	if !math.IsNaN(Quantile([]float64{math.NaN(), math.Inf(-1)}, 0.5)) {
		t.Error("quantile of all-non-finite input must be NaN")
	}
}

func TestQuantileRejectsOutOfRangeP(t *testing.T) {
	vs := []float64{1, 2, 3}
	for _, p := range []float64{-0.1, 1.1, math.NaN()} {
		if !math.IsNaN(Quantile(vs, p)) {
			t.Errorf("quantile with p=%v must be NaN, not clamped", p)
		}
	}
}
