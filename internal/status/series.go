package status

import (
	"math"
	"time"

	"clearwater/internal/config"
	"clearwater/internal/types"
)

// DefaultHistogramBins is the default resolution of the binned-histogram
// percentile approximation. With log-scaled bins the worst-case resolution
// error of the p90 is one bin, i.e. a multiplicative factor of
// (vmax/vmin)^(1/bins) -- about 5% per decade of value range at 96 bins.
const DefaultHistogramBins = 96

// SeriesOptions tunes the daily series builder. The zero value gives the
// production defaults: 96 log-scaled histogram bins.
type SeriesOptions struct {
	// Bins is the histogram bin count. Zero means DefaultHistogramBins.
	// More bins cost O(bins) per day but tighten the p90 resolution.
	Bins int

	// LinearBins forces linear bin edges. Log scaling is preferred for
	// bacteria concentrations (they span orders of magnitude) and is used
	// automatically whenever the observed value range permits it.
	LinearBins bool
}

func (o SeriesOptions) binCount() int {
	if o.Bins <= 0 {
		return DefaultHistogramBins
	}
	return o.Bins
}

// BuildStatusSeries reconstructs the change-point-compressed status history
// for one station: one status for every calendar day from
// (first sample day - 41) through the asOf day, collapsed to the days on
// which the (status, reasons) pair changed.
//
// Evaluating the decision table once per day naively re-scans every sample
// in the window, which is quadratic in days. Instead the builder spends
// O(days + samples) up front:
//
//   - per-day totals of eligible finite results, strictly-positive counts,
//     and strictly-positive log sums, each turned into an inclusive prefix
//     sum so any window total is two lookups;
//   - a day-by-bin occurrence histogram with per-bin prefix sums across
//     days, so the 30-day p90 is an O(bins) bin walk instead of an
//     O(window) sort.
//
// The geomean is exact; the p90 carries bounded bin-resolution error (see
// DefaultHistogramBins). Each day's metrics feed the same EvaluateStatus
// decision table used by the single-date path.
func BuildStatusSeries(records []types.SampleRecord, rule types.RuleSet, rules *config.Rules, asOf time.Time, opts SeriesOptions) ([]types.Segment, error) {
	today := Day(asOf)

	indicator := selectIndicator(records, rule, rules)
	in := MetricsInput{Indicator: indicator, ExcludedMethod: rules.ExcludedMethodSubstring}

	// First day with data, across all records (closure advisories count
	// even when their analyte does not). Future-dated records are ignored.
	var minDay time.Time
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		d := Day(r.Date)
		if d.After(today) {
			continue
		}
		if minDay.IsZero() || d.Before(minDay) {
			minDay = d
		}
	}

	if indicator == "" || minDay.IsZero() {
		return singleNotEnoughData(rules, today)
	}

	start := minDay.AddDate(0, 0, -(SixWeekDays - 1))
	n := dayIndex(today, start) + 1

	// Per-day accumulation arrays over [0, n).
	counts := make([]int, n)      // eligible samples with finite results
	posCounts := make([]int, n)   // subset with strictly positive results
	logSums := make([]float64, n) // sum of ln(result) over that subset
	closures := make([]int, n)    // closure advisories, any analyte/method

	type binnedSample struct {
		idx int
		v   float64
	}
	var samples []binnedSample
	var values []float64

	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		d := Day(r.Date)
		if d.After(today) {
			continue
		}
		idx := dayIndex(d, start)

		if r.Closure {
			closures[idx]++
		}
		if !in.eligible(r) || !r.HasResult() {
			continue
		}
		counts[idx]++
		if r.Result > 0 {
			posCounts[idx]++
			logSums[idx] += math.Log(r.Result)
		}
		samples = append(samples, binnedSample{idx: idx, v: r.Result})
		values = append(values, r.Result)
	}

	// Inclusive prefix sums: windowed totals over any [i0, i1] become O(1).
	countPfx := prefixInts(counts)
	posPfx := prefixInts(posCounts)
	logPfx := prefixFloats(logSums)
	closurePfx := prefixInts(closures)

	var hist *dayHistogram
	if len(values) > 0 {
		hist = newDayHistogram(values, n, opts.binCount(), opts.LinearBins)
		for _, s := range samples {
			hist.add(s.idx, s.v)
		}
		hist.seal()
	}

	var segments []types.Segment
	var prevKey string

	for j := 0; j < n; j++ {
		m := types.WindowMetrics{
			SixWeekCount:   windowInts(countPfx, j-(SixWeekDays-1), j),
			ThirtyDayCount: windowInts(countPfx, j-(ThirtyDays-1), j),
			ManualClosure:  windowInts(closurePfx, j-(SixWeekDays-1), j) > 0,
		}

		if pos := windowInts(posPfx, j-(SixWeekDays-1), j); pos > 0 {
			logSum := windowFloats(logPfx, j-(SixWeekDays-1), j)
			m.SixWeekGeomean = math.Exp(logSum / float64(pos))
		} else {
			m.SixWeekGeomean = math.NaN()
		}

		if hist != nil {
			m.ThirtyDayP90 = hist.p90(j-(ThirtyDays-1), j, m.ThirtyDayCount)
		} else {
			m.ThirtyDayP90 = math.NaN()
		}

		result, err := EvaluateStatus(m, rule, rules)
		if err != nil {
			return nil, err
		}

		key := canonicalKey(result.Status.Name, result.Reasons)
		if j == 0 || key != prevKey {
			segments = append(segments, types.Segment{
				Date:    start.AddDate(0, 0, j),
				Status:  result.Status,
				Reasons: result.Reasons,
			})
			prevKey = key
		}
	}

	// The series always terminates at the as-of day, even when the last
	// status change happened long before it.
	last := segments[len(segments)-1]
	if !last.Date.Equal(today) {
		segments = append(segments, types.Segment{
			Date:    today,
			Status:  last.Status,
			Reasons: last.Reasons,
		})
	}

	return segments, nil
}

// selectIndicator picks the analyte the series is computed over: the
// configured indicator when the record set contains it, otherwise the most
// frequent analyte present, otherwise none.
func selectIndicator(records []types.SampleRecord, rule types.RuleSet, rules *config.Rules) string {
	freq := make(map[string]int)
	for _, r := range records {
		if r.Date.IsZero() || r.Analyte == "" {
			continue
		}
		if rules.IsExcludedMethod(r.Method) {
			continue
		}
		freq[r.Analyte]++
	}

	if freq[rule.IndicatorAnalyte] > 0 {
		return rule.IndicatorAnalyte
	}

	var best string
	var bestN int
	for analyte, n := range freq {
		// Deterministic tie-break on analyte name.
		if n > bestN || (n == bestN && (best == "" || analyte < best)) {
			best = analyte
			bestN = n
		}
	}
	return best
}

// singleNotEnoughData returns the degenerate one-entry series used when the
// record set yields no usable analyte or samples.
func singleNotEnoughData(rules *config.Rules, today time.Time) ([]types.Segment, error) {
	st, err := rules.StatusFor(types.StatusNotEnoughData)
	if err != nil {
		return nil, err
	}
	return []types.Segment{{Date: today, Status: st}}, nil
}

// prefixInts returns the inclusive prefix sum of vs: out[i] is the sum of
// vs[0:i], so a window sum over [i0, i1] is out[i1+1]-out[i0].
func prefixInts(vs []int) []int {
	out := make([]int, len(vs)+1)
	for i, v := range vs {
		out[i+1] = out[i] + v
	}
	return out
}

func prefixFloats(vs []float64) []float64 {
	out := make([]float64, len(vs)+1)
	for i, v := range vs {
		out[i+1] = out[i] + v
	}
	return out
}

// windowInts returns the sum over the inclusive day range [i0, i1], clamped
// to the array bounds.
func windowInts(pfx []int, i0, i1 int) int {
	n := len(pfx) - 1
	if i0 < 0 {
		i0 = 0
	}
	if i1 >= n {
		i1 = n - 1
	}
	if i1 < i0 {
		return 0
	}
	return pfx[i1+1] - pfx[i0]
}

func windowFloats(pfx []float64, i0, i1 int) float64 {
	n := len(pfx) - 1
	if i0 < 0 {
		i0 = 0
	}
	if i1 >= n {
		i1 = n - 1
	}
	if i1 < i0 {
		return 0
	}
	return pfx[i1+1] - pfx[i0]
}
