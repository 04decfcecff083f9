package status

import (
	"strings"
	"time"

	"clearwater/internal/types"
)

// MetricsInput bundles the eligibility parameters for a window-metrics
// computation. Indicator and ExcludedMethod come from the rule
// configuration; passing them explicitly keeps the computation a pure
// function of its inputs.
type MetricsInput struct {
	// Indicator restricts samples to one analyte by exact match. Empty
	// means "any analyte".
	Indicator string

	// ExcludedMethod drops samples whose method name contains this
	// substring (case-insensitive). Used to keep rapid-test (non-culture)
	// results out of culture-based thresholds.
	ExcludedMethod string
}

// eligible reports whether a record passes the analyte and method filters.
func (in MetricsInput) eligible(r types.SampleRecord) bool {
	if in.ExcludedMethod != "" && r.Method != "" &&
		strings.Contains(strings.ToLower(r.Method), strings.ToLower(in.ExcludedMethod)) {
		return false
	}
	if in.Indicator != "" && r.Analyte != in.Indicator {
		return false
	}
	return true
}

// inWindow reports whether day d falls in the inclusive n-day window ending
// at asOfDay. Both arguments must be UTC midnights.
func inWindow(d, asOfDay time.Time, n int) bool {
	gap := dayIndex(asOfDay, d)
	return gap >= 0 && gap < n
}

// ComputeWindowMetrics computes the six-week and thirty-day sliding-window
// statistics for one station at one as-of date.
//
// The six-week count and geomean cover eligible records with finite results
// in the 42 days ending at asOf; the thirty-day p90 covers the 30 days
// ending at asOf. The manual-closure flag is set when any record in the
// six-week window carries the upstream closure advisory, regardless of
// analyte or method.
//
// Records with missing dates or non-finite results never contribute to
// aggregates; they are silently excluded, not errors.
func ComputeWindowMetrics(records []types.SampleRecord, asOf time.Time, in MetricsInput) types.WindowMetrics {
	asOfDay := Day(asOf)

	var sixWeek []float64
	var thirtyDay []float64
	var closure bool

	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		d := Day(r.Date)

		// The closure advisory is an upstream override signal, checked
		// before any analyte or method filtering.
		if r.Closure && inWindow(d, asOfDay, SixWeekDays) {
			closure = true
		}

		if !in.eligible(r) || !r.HasResult() {
			continue
		}
		if inWindow(d, asOfDay, SixWeekDays) {
			sixWeek = append(sixWeek, r.Result)
		}
		if inWindow(d, asOfDay, ThirtyDays) {
			thirtyDay = append(thirtyDay, r.Result)
		}
	}

	return types.WindowMetrics{
		SixWeekCount:   len(sixWeek),
		SixWeekGeomean: Geomean(sixWeek),
		ThirtyDayCount: len(thirtyDay),
		ThirtyDayP90:   Quantile(thirtyDay, 0.9),
		ManualClosure:  closure,
	}
}
