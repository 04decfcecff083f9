package types

import (
	"math"
	"time"
)

// Station is a water-quality monitoring site. The saltwater flag is produced
// by an offline geographic classification job and loaded into the stations
// table; it is consumed here as a precomputed attribute, never derived.
type Station struct {
	Code       string     `json:"code" db:"code"`
	Name       string     `json:"name" db:"name"`
	Lat        float64    `json:"lat" db:"lat"`
	Lon        float64    `json:"lon" db:"lon"`
	County     string     `json:"county,omitempty" db:"county"`
	Saltwater  bool       `json:"saltwater" db:"is_saltwater"`
	LastSample *time.Time `json:"last_sample_at,omitempty" db:"last_sample_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// WaterBody returns the rule-selection key for the station.
func (s *Station) WaterBody() WaterBody {
	if s.Saltwater {
		return WaterBodySaltwater
	}
	return WaterBodyFreshwater
}

// SampleRecord is one bacteria measurement for a station. Records are
// immutable inputs to the status engine; the engine never mutates them.
//
// Result is NaN when the upstream row has no numeric result. Date carries
// calendar-day semantics only: it is always a UTC midnight and the engine
// never inspects time-of-day.
type SampleRecord struct {
	StationCode string    `json:"station_code" db:"station_code"`
	Date        time.Time `json:"sample_date" db:"sample_date"`
	Analyte     string    `json:"analyte" db:"analyte"`
	Unit        string    `json:"unit" db:"unit"`
	Result      float64   `json:"result" db:"result"`
	Method      string    `json:"method,omitempty" db:"method"`

	// Closure marks an explicit beach-closure advisory attached to the
	// sample by the upstream data provider. It overrides bacteria
	// thresholds for as long as it sits inside the six-week window.
	Closure bool `json:"closure" db:"closure"`
}

// HasResult reports whether the record carries a usable numeric result.
func (r SampleRecord) HasResult() bool {
	return !math.IsNaN(r.Result) && !math.IsInf(r.Result, 0)
}

// WindowMetrics is the ephemeral sliding-window summary computed for one
// station at one as-of date. Non-finite float fields mean "undefined",
// never zero.
type WindowMetrics struct {
	SixWeekCount   int     `json:"six_week_count"`
	SixWeekGeomean float64 `json:"six_week_geomean"`
	ThirtyDayCount int     `json:"thirty_day_count"`
	ThirtyDayP90   float64 `json:"thirty_day_p90"`
	ManualClosure  bool    `json:"manual_closure"`
}

// Status is a resolved entry from the status catalog.
type Status struct {
	Name        StatusName `json:"name"`
	DisplayName string     `json:"display_name"`
	Color       string     `json:"color"`
	Description string     `json:"description,omitempty"`
}

// StatusResult is the outcome of evaluating window metrics against a rule
// set: one catalog status plus the ordered reasons it was assigned.
type StatusResult struct {
	Status  Status   `json:"status"`
	Reasons []string `json:"reasons"`
}

// Segment is one entry of a change-point-compressed status series: the
// status that took effect on Date and held until the next segment's date.
type Segment struct {
	Date    time.Time `json:"date"`
	Status  Status    `json:"status"`
	Reasons []string  `json:"reasons"`
}

// RuleSet holds the threshold rule for one water-body type. Loaded once from
// configuration and treated as read-only for the lifetime of a computation.
// A metric exactly equal to its threshold is compliant.
type RuleSet struct {
	WaterBody        WaterBody  `json:"water_body"`
	IndicatorAnalyte string     `json:"indicator_analyte"`
	MinSamples       int        `json:"min_samples"`
	GeomeanMax       float64    `json:"geomean_max"`
	P90Max           float64    `json:"p90_max"`
	ElseStatus       StatusName `json:"else_status"`
}
