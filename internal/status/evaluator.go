package status

import (
	"math"
	"sort"
	"strings"

	"clearwater/internal/config"
	"clearwater/internal/types"
)

// EvaluateStatus maps window metrics and a rule set to exactly one catalog
// status plus the ordered reasons it was assigned. Both the single-date
// "current status" path and the daily series builder call this same decision
// table, so the two paths cannot diverge.
//
// Decision order (first match wins):
//  1. Manual closure advisory -> closure.
//  2. Fewer than the configured minimum six-week samples -> not enough data.
//  3. Undefined six-week geomean -> not enough data.
//  4. Undefined thirty-day p90 -> not enough data.
//  5. Geomean and p90 both at or under their thresholds -> low risk.
//  6. Otherwise -> the rule set's else status, with a reason per failed check.
//
// A metric exactly equal to its threshold passes (<= semantics). The only
// error paths are catalog gaps, which indicate broken configuration.
func EvaluateStatus(m types.WindowMetrics, rule types.RuleSet, rules *config.Rules) (types.StatusResult, error) {
	if m.ManualClosure {
		return resolve(rules, types.StatusClosure, types.ReasonManualClosure)
	}
	if m.SixWeekCount < rule.MinSamples {
		return resolve(rules, types.StatusNotEnoughData, types.ReasonInsufficientSamples)
	}
	if math.IsNaN(m.SixWeekGeomean) || math.IsInf(m.SixWeekGeomean, 0) {
		return resolve(rules, types.StatusNotEnoughData, types.ReasonInvalidGeomean)
	}
	if math.IsNaN(m.ThirtyDayP90) || math.IsInf(m.ThirtyDayP90, 0) {
		return resolve(rules, types.StatusNotEnoughData, types.ReasonInvalidP90)
	}

	geomeanOK := m.SixWeekGeomean <= rule.GeomeanMax
	p90OK := m.ThirtyDayP90 <= rule.P90Max

	if geomeanOK && p90OK {
		return resolve(rules, types.StatusLowRisk,
			types.ReasonPassGeomean, types.ReasonPassSingleSample)
	}

	reasons := make([]string, 0, 2)
	if !geomeanOK {
		reasons = append(reasons, types.ReasonFailGeomean)
	}
	if !p90OK {
		reasons = append(reasons, types.ReasonFailSingleSample)
	}
	return resolve(rules, rule.ElseStatus, reasons...)
}

// resolve looks up a status in the catalog and attaches the reasons.
func resolve(rules *config.Rules, name types.StatusName, reasons ...string) (types.StatusResult, error) {
	st, err := rules.StatusFor(name)
	if err != nil {
		return types.StatusResult{}, err
	}
	return types.StatusResult{Status: st, Reasons: reasons}, nil
}

// canonicalKey produces the stable comparison key used for change-point
// compression: the status name joined with the trimmed, de-emptied,
// alphabetically sorted reasons. Two days compare equal iff their keys do.
func canonicalKey(name types.StatusName, reasons []string) string {
	cleaned := make([]string, 0, len(reasons))
	for _, r := range reasons {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		cleaned = append(cleaned, r)
	}
	sort.Strings(cleaned)
	return string(name) + "||" + strings.Join(cleaned, "|")
}
