// rules.go defines the threshold rules and status catalog consumed by the
// status engine. Rules are data, not code: the default set mirrors the
// published recreational water criteria for California beaches, and a
// deployment can replace them wholesale via CLEARWATER_RULES_JSON.
//
// The engine receives these as an explicit value (dependency injection);
// there is no lazily-loaded package-level rule state.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"clearwater/internal/types"
)

// Rules bundles the per-water-body rule sets, the status catalog, and the
// rapid-test detection heuristic. Immutable after LoadConfig.
type Rules struct {
	RuleSets map[types.WaterBody]types.RuleSet  `json:"rule_sets"`
	Catalog  map[types.StatusName]types.Status  `json:"catalog"`

	// ExcludedMethodSubstring identifies rapid-test (non-culture) methods
	// by case-insensitive substring match on the method name. The match is
	// deliberately narrow; validate any change against the authoritative
	// method vocabulary before widening it.
	ExcludedMethodSubstring string `json:"excluded_method_substring"`
}

// DefaultRules returns the built-in rule sets and status catalog.
func DefaultRules() *Rules {
	return &Rules{
		RuleSets: map[types.WaterBody]types.RuleSet{
			types.WaterBodySaltwater: {
				WaterBody:        types.WaterBodySaltwater,
				IndicatorAnalyte: "Enterococcus",
				MinSamples:       5,
				GeomeanMax:       30,
				P90Max:           110,
				ElseStatus:       types.StatusUseCaution,
			},
			types.WaterBodyFreshwater: {
				WaterBody:        types.WaterBodyFreshwater,
				IndicatorAnalyte: "E. coli",
				MinSamples:       5,
				GeomeanMax:       100,
				P90Max:           320,
				ElseStatus:       types.StatusUseCaution,
			},
		},
		Catalog: map[types.StatusName]types.Status{
			types.StatusLowRisk: {
				Name:        types.StatusLowRisk,
				DisplayName: "Low risk",
				Color:       "#2e7d32",
				Description: "Bacteria levels are within safety thresholds.",
			},
			types.StatusUseCaution: {
				Name:        types.StatusUseCaution,
				DisplayName: "Use caution",
				Color:       "#f9a825",
				Description: "Recent samples exceed one or more safety thresholds.",
			},
			types.StatusNotEnoughData: {
				Name:        types.StatusNotEnoughData,
				DisplayName: "Not enough data",
				Color:       "#9e9e9e",
				Description: "Too few recent samples to assess risk.",
			},
			types.StatusClosure: {
				Name:        types.StatusClosure,
				DisplayName: "Closure",
				Color:       "#c62828",
				Description: "The site is under an explicit closure advisory.",
			},
		},
		ExcludedMethodSubstring: "qpcr",
	}
}

// ParseRules decodes a rules document from JSON and validates it.
func ParseRules(raw string) (*Rules, error) {
	var r Rules
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid,
			"rules JSON is malformed", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks internal consistency of the rules document. Gaps here are
// configuration defects and fail startup rather than degrading at runtime.
func (r *Rules) Validate() error {
	if len(r.RuleSets) == 0 {
		return types.NewAppError(types.ErrCodeConfigInvalid,
			"rules document defines no rule sets", nil)
	}
	if len(r.Catalog) == 0 {
		return types.NewAppError(types.ErrCodeConfigInvalid,
			"rules document defines no status catalog", nil)
	}
	for _, required := range []types.StatusName{
		types.StatusLowRisk, types.StatusNotEnoughData, types.StatusClosure,
	} {
		if _, ok := r.Catalog[required]; !ok {
			return types.NewAppError(types.ErrCodeConfigMissingStatus,
				fmt.Sprintf("status catalog is missing %q", required), nil)
		}
	}
	for wb, rs := range r.RuleSets {
		if !wb.IsValid() {
			return types.NewAppError(types.ErrCodeConfigInvalid,
				fmt.Sprintf("unknown water body %q in rule sets", wb), nil)
		}
		if strings.TrimSpace(rs.IndicatorAnalyte) == "" {
			return types.NewAppError(types.ErrCodeConfigInvalid,
				fmt.Sprintf("rule set %q has no indicator analyte", wb), nil)
		}
		if rs.MinSamples < 1 {
			return types.NewAppError(types.ErrCodeConfigInvalid,
				fmt.Sprintf("rule set %q requires min_samples >= 1", wb), nil)
		}
		if rs.GeomeanMax <= 0 || rs.P90Max <= 0 {
			return types.NewAppError(types.ErrCodeConfigInvalid,
				fmt.Sprintf("rule set %q has non-positive thresholds", wb), nil)
		}
		if _, ok := r.Catalog[rs.ElseStatus]; !ok {
			return types.NewAppError(types.ErrCodeConfigMissingStatus,
				fmt.Sprintf("rule set %q references unknown else status %q", wb, rs.ElseStatus), nil)
		}
	}
	return nil
}

// RuleFor returns the rule set for the given water body. A missing rule set
// is a configuration error, never a silent default.
func (r *Rules) RuleFor(wb types.WaterBody) (types.RuleSet, error) {
	rs, ok := r.RuleSets[wb]
	if !ok {
		return types.RuleSet{}, types.NewAppError(types.ErrCodeConfigMissingRuleSet,
			fmt.Sprintf("no rule set configured for water body %q", wb), nil)
	}
	return rs, nil
}

// StatusFor resolves a status name against the catalog.
func (r *Rules) StatusFor(name types.StatusName) (types.Status, error) {
	st, ok := r.Catalog[name]
	if !ok {
		return types.Status{}, types.NewAppError(types.ErrCodeConfigMissingStatus,
			fmt.Sprintf("status %q is not in the catalog", name), nil)
	}
	return st, nil
}

// IsExcludedMethod reports whether a method name indicates the excluded
// rapid-test method (case-insensitive substring match).
func (r *Rules) IsExcludedMethod(method string) bool {
	if r.ExcludedMethodSubstring == "" || method == "" {
		return false
	}
	return strings.Contains(strings.ToLower(method), strings.ToLower(r.ExcludedMethodSubstring))
}
