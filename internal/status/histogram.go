package status

import "math"

// dayHistogram is a day-by-bin occurrence matrix used to approximate the
// 30-day 90th percentile in O(bins) per day. Sample values are partitioned
// into bins over the observed value range (log-scaled when possible), and
// each bin keeps a per-day count turned into a prefix sum across days, so a
// windowed bin count is O(1) and the p90 is a single bin walk.
type dayHistogram struct {
	bins int
	log  bool

	// Value range. In log mode these hold ln(vmin) / ln(vmax).
	lo, hi float64

	// counts[b] has length days+1 after seal(): the inclusive prefix sum
	// of per-day occurrences for bin b.
	counts [][]int
	sealed bool
}

// newDayHistogram builds the bin layout from the observed values. The range
// is log-scaled unless the caller forces linear bins or the minimum value is
// not strictly positive. A degenerate range (all values identical) is
// widened by 50% in both directions so every bin has nonzero width.
func newDayHistogram(values []float64, days, bins int, forceLinear bool) *dayHistogram {
	vmin := math.Inf(1)
	vmax := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < vmin {
			vmin = v
		}
		if v > vmax {
			vmax = v
		}
	}
	if vmin > vmax {
		// No finite values; callers guard against this, but an empty
		// histogram that always reports NaN is still well-formed.
		vmin, vmax = 0, 1
	}

	if vmin == vmax {
		if vmin == 0 {
			vmin, vmax = -1, 1
		} else {
			lo, hi := vmin*0.5, vmin*1.5
			vmin, vmax = math.Min(lo, hi), math.Max(lo, hi)
		}
	}

	h := &dayHistogram{bins: bins}

	// Log scaling needs a strictly positive range.
	if !forceLinear && vmin > 0 {
		h.log = true
		h.lo = math.Log(vmin)
		h.hi = math.Log(vmax)
	} else {
		h.lo = vmin
		h.hi = vmax
	}

	h.counts = make([][]int, bins)
	for b := range h.counts {
		h.counts[b] = make([]int, days)
	}
	return h
}

// binFor maps a value to its bin index, clamped to [0, bins).
func (h *dayHistogram) binFor(v float64) int {
	x := v
	if h.log {
		if v <= 0 {
			return 0
		}
		x = math.Log(v)
	}
	b := int(float64(h.bins) * (x - h.lo) / (h.hi - h.lo))
	if b < 0 {
		b = 0
	}
	if b >= h.bins {
		b = h.bins - 1
	}
	return b
}

// binMid returns the representative value for a bin: the midpoint of its
// edges, interpolated in log space when the bins are log-scaled.
func (h *dayHistogram) binMid(b int) float64 {
	width := (h.hi - h.lo) / float64(h.bins)
	mid := h.lo + (float64(b)+0.5)*width
	if h.log {
		return math.Exp(mid)
	}
	return mid
}

// add records one sample value on the given day index. Must be called
// before seal.
func (h *dayHistogram) add(day int, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	h.counts[h.binFor(v)][day]++
}

// seal converts each bin's per-day counts into an inclusive prefix sum.
func (h *dayHistogram) seal() {
	for b := range h.counts {
		h.counts[b] = prefixInts(h.counts[b])
	}
	h.sealed = true
}

// p90 approximates the 90th percentile of the samples in the inclusive day
// range [i0, i1]. total is the window sample count (from the caller's count
// prefix sum); when it is zero or negative the percentile is undefined.
//
// The walk accumulates windowed bin counts from the lowest bin upward until
// the cumulative count reaches 0.9*total and returns that bin's midpoint.
func (h *dayHistogram) p90(i0, i1 int, total int) float64 {
	if !h.sealed || total <= 0 {
		return math.NaN()
	}
	target := 0.9 * float64(total)
	cum := 0
	for b := 0; b < h.bins; b++ {
		cum += windowInts(h.counts[b], i0, i1)
		if float64(cum) >= target {
			return h.binMid(b)
		}
	}
	return math.NaN()
}
