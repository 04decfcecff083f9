package types

// WaterBody identifies the rule family applied to a station.
type WaterBody string

const (
	WaterBodySaltwater  WaterBody = "saltwater"
	WaterBodyFreshwater WaterBody = "freshwater"
)

// IsValid reports whether the water body is one of the known values.
func (w WaterBody) IsValid() bool {
	return w == WaterBodySaltwater || w == WaterBodyFreshwater
}

// StatusName is the closed set of daily safety classifications. Display
// metadata (color, description) lives in the status catalog; these constants
// are the stable identifiers used by the engine and the API.
type StatusName string

const (
	StatusLowRisk       StatusName = "low_risk"
	StatusUseCaution    StatusName = "use_caution"
	StatusNotEnoughData StatusName = "not_enough_data"
	StatusClosure       StatusName = "closure"
)

// Evaluation reason strings. The series builder compresses days on
// (status, reasons), so these must stay byte-stable across releases.
const (
	ReasonManualClosure       = "Manual closure"
	ReasonInsufficientSamples = "Insufficient samples"
	ReasonInvalidGeomean      = "Invalid geomean (6w)"
	ReasonInvalidP90          = "Invalid p90 (30d)"
	ReasonPassGeomean         = "Pass geomean"
	ReasonPassSingleSample    = "Pass single sample"
	ReasonFailGeomean         = "Fail geomean"
	ReasonFailSingleSample    = "Fail single sample"
)
