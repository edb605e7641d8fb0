package scoring

import (
	"strings"

	"github.com/spf13/cast"
)

// TrialRecord is a loosely typed funding-trial record keyed by the Field* names.
// Missing keys are treated as absent, not as zero.
type TrialRecord map[string]any

const (
	FieldStatus           = "Status"
	FieldOrganizationType = "Organization Type"
	FieldCDRMethod        = "Primary CDR Method"
	FieldDuration         = "Duration of Pilot"
	FieldMRVProvider      = "MRV Provider"
	FieldMRVStrategy      = "MRV Strategy"
	FieldSequestration    = "Sequestration per year (tons CO2/year)"
	FieldPartners         = "Partners or Collaborator"
)

const riskBaseline = 50.0

var (
	statusAdjustments = map[string]float64{
		"Operating":   -15,
		"Completed":   -20,
		"In Progress": -10,
		"Planned":     10,
		"Proposed":    15,
	}

	organizationAdjustments = map[string]float64{
		"Start-up":            10,
		"Academic":            0,
		"Government":          -5,
		"Established Company": -10,
		"Non-profit":          5,
	}

	cdrMethodAdjustments = map[string]float64{
		"Direct Air Capture":                 0,
		"Enhanced Weathering":                5,
		"Afforestation":                      -10,
		"Ocean Alkalinity Enhancement":       10,
		"Biomass Carbon Removal and Storage": 0,
		"Direct Ocean Capture":               10,
	}
)

const (
	unknownStatusAdjustment       = 0.0
	unknownOrganizationAdjustment = 5.0
	unknownCDRMethodAdjustment    = 5.0
	missingSequestrationPenalty   = 5.0
)

// Risk scores a funding trial: 50 plus one additive adjustment per factor,
// clamped to [0, 100]. Higher means riskier.
func (e *Engine) Risk(record TrialRecord) float64 {
	score := riskBaseline

	score += e.lookup(record, FieldStatus, "status", statusAdjustments, unknownStatusAdjustment)
	score += e.lookup(record, FieldOrganizationType, "organization_type", organizationAdjustments, unknownOrganizationAdjustment)
	score += e.lookup(record, FieldCDRMethod, "cdr_method", cdrMethodAdjustments, unknownCDRMethodAdjustment)
	score += e.durationAdjustment(record)
	score += e.mrvAdjustment(record)
	score += e.sequestrationAdjustment(record)
	score += e.partnersAdjustment(record)

	return e.finish(ScorerRisk, score)
}

func (e *Engine) lookup(record TrialRecord, field, factor string, table map[string]float64, unknown float64) float64 {
	adj := unknown
	raw, _ := record[field].(string)
	if v, ok := table[raw]; ok {
		adj = v
	}

	e.record(Event{Scorer: ScorerRisk, Factor: factor, Input: raw, Value: adj})
	return adj
}

// durationAdjustment matches "Years" before "Months", case-sensitively.
func (e *Engine) durationAdjustment(record TrialRecord) float64 {
	raw, _ := text(record, FieldDuration)

	var adj float64
	switch {
	case strings.Contains(raw, "Years"):
		adj = -10
	case strings.Contains(raw, "Months"):
		adj = -5
	}

	e.record(Event{Scorer: ScorerRisk, Factor: "duration", Input: raw, Value: adj})
	return adj
}

func (e *Engine) mrvAdjustment(record TrialRecord) float64 {
	provider, hasProvider := text(record, FieldMRVProvider)
	strategy, hasStrategy := text(record, FieldMRVStrategy)

	var adj float64
	if hasProvider && hasStrategy {
		adj = -15
	}

	e.record(Event{Scorer: ScorerRisk, Factor: "mrv", Input: provider + "/" + strategy, Value: adj})
	return adj
}

func (e *Engine) sequestrationAdjustment(record TrialRecord) float64 {
	raw, present := record[FieldSequestration]
	tons, ok := parseNumber(raw)
	if !present || !ok {
		e.record(Event{
			Scorer:   ScorerRisk,
			Factor:   "sequestration",
			Input:    cast.ToString(raw),
			Value:    missingSequestrationPenalty,
			Fallback: true,
		})
		return missingSequestrationPenalty
	}

	var adj float64
	switch {
	case tons > 10000:
		adj = -15
	case tons > 1000:
		adj = -10
	case tons > 100:
		adj = -5
	default:
		adj = 5
	}

	e.record(Event{Scorer: ScorerRisk, Factor: "sequestration", Input: cast.ToString(raw), Value: adj})
	return adj
}

func (e *Engine) partnersAdjustment(record TrialRecord) float64 {
	raw, ok := text(record, FieldPartners)

	var adj float64
	if ok {
		switch n := len(strings.Split(raw, ",")); {
		case n > 3:
			adj = -10
		case n > 1:
			adj = -5
		}
	}

	e.record(Event{Scorer: ScorerRisk, Factor: "partners", Input: raw, Value: adj})
	return adj
}

// text returns the field rendered as a string and whether it is present and non-empty.
func text(record TrialRecord, field string) (string, bool) {
	v, ok := record[field]
	if !ok || v == nil {
		return "", false
	}

	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// parseNumber accepts JSON numbers and numeric strings.
func parseNumber(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}
