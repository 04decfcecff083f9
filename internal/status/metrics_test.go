package status

import (
	"math"
	"testing"
	"time"

	"clearwater/internal/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(dt time.Time, analyte string, result float64) types.SampleRecord {
	return types.SampleRecord{
		StationCode: "CA-0001",
		Date:        dt,
		Analyte:     analyte,
		Unit:        "MPN/100 mL",
		Result:      result,
	}
}

func TestWindowMembershipBoundaries(t *testing.T) {
	asOf := day(2026, 8, 1)
	in := MetricsInput{Indicator: "Enterococcus"}

	cases := []struct {
		name        string
		sampleDay   time.Time
		wantSixWeek int
		wantThirty  int
	}{
		{"as-of day itself", asOf, 1, 1},
		{"last day of 30d window", asOf.AddDate(0, 0, -29), 1, 1},
		{"just outside 30d window", asOf.AddDate(0, 0, -30), 1, 0},
		{"last day of 6w window", asOf.AddDate(0, 0, -41), 1, 0},
		{"just outside 6w window", asOf.AddDate(0, 0, -42), 0, 0},
		{"future sample", asOf.AddDate(0, 0, 1), 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := ComputeWindowMetrics([]types.SampleRecord{rec(tc.sampleDay, "Enterococcus", 10)}, asOf, in)
			if m.SixWeekCount != tc.wantSixWeek {
				t.Errorf("six-week count = %d, want %d", m.SixWeekCount, tc.wantSixWeek)
			}
			if m.ThirtyDayCount != tc.wantThirty {
				t.Errorf("thirty-day count = %d, want %d", m.ThirtyDayCount, tc.wantThirty)
			}
		})
	}
}

func TestRapidTestMethodExcluded(t *testing.T) {
	asOf := day(2026, 8, 1)
	in := MetricsInput{Indicator: "Enterococcus", ExcludedMethod: "qpcr"}

	culture := rec(asOf, "Enterococcus", 50)
	culture.Method = "Enterolert"
	rapid := rec(asOf, "Enterococcus", 900)
	rapid.Method = "Enterococcus by qPCR" // case-insensitive substring match

	m := ComputeWindowMetrics([]types.SampleRecord{culture, rapid}, asOf, in)
	if m.SixWeekCount != 1 {
		t.Fatalf("six-week count = %d, want 1 (rapid-test sample excluded)", m.SixWeekCount)
	}
	if math.Abs(m.SixWeekGeomean-50) > 1e-9 {
		t.Errorf("geomean = %v, want 50", m.SixWeekGeomean)
	}
}

func TestIndicatorAnalyteExactMatch(t *testing.T) {
	asOf := day(2026, 8, 1)
	in := MetricsInput{Indicator: "E. coli"}

	records := []types.SampleRecord{
		rec(asOf, "E. coli", 20),
		rec(asOf, "Coliform, total", 4000),
		rec(asOf, "e. coli", 999), // exact match required, no case folding
	}
	m := ComputeWindowMetrics(records, asOf, in)
	if m.SixWeekCount != 1 {
		t.Errorf("six-week count = %d, want 1", m.SixWeekCount)
	}
}

func TestMissingResultsExcludedSilently(t *testing.T) {
	asOf := day(2026, 8, 1)
	in := MetricsInput{Indicator: "Enterococcus"}

	records := []types.SampleRecord{
		rec(asOf, "Enterococcus", math.NaN()),
		rec(asOf.AddDate(0, 0, -1), "Enterococcus", math.Inf(1)),
		{StationCode: "CA-0001", Analyte: "Enterococcus", Result: 10}, // zero date
	}
	m := ComputeWindowMetrics(records, asOf, in)
	if m.SixWeekCount != 0 {
		t.Errorf("six-week count = %d, want 0", m.SixWeekCount)
	}
	if !math.IsNaN(m.SixWeekGeomean) {
		t.Error("geomean over no samples must be NaN")
	}
	if !math.IsNaN(m.ThirtyDayP90) {
		t.Error("p90 over no samples must be NaN")
	}
}

func TestManualClosureIgnoresAnalyteFilter(t *testing.T) {
	asOf := day(2026, 8, 1)
	in := MetricsInput{Indicator: "Enterococcus", ExcludedMethod: "qpcr"}

	advisory := rec(asOf.AddDate(0, 0, -41), "Coliform, total", math.NaN())
	advisory.Closure = true

	m := ComputeWindowMetrics([]types.SampleRecord{advisory}, asOf, in)
	if !m.ManualClosure {
		t.Error("closure advisory inside the six-week window must set the flag")
	}

	stale := advisory
	stale.Date = asOf.AddDate(0, 0, -42)
	m = ComputeWindowMetrics([]types.SampleRecord{stale}, asOf, in)
	if m.ManualClosure {
		t.Error("closure advisory outside the six-week window must not set the flag")
	}
}
