package scoring

import (
	"math"
	"strconv"
)

// Defaults applied per field when a FundingProfile value is absent.
const (
	DefaultTotalCredits    = 500.0    // tons CO2
	DefaultExpectedCredits = 1000.0   // tons CO2
	DefaultAmountInvested  = 100000.0 // dollars
)

// One ton per $100 invested is treated as a perfect score.
const efficiencyScale = 10000.0

// FundingProfile carries optional credit and investment figures. Nil fields
// fall back to the Default* constants.
type FundingProfile struct {
	TotalCredits    *float64
	ExpectedCredits *float64
	AmountInvested  *float64
}

// Efficiency scores credits delivered per dollar invested:
// min(100, (total + expected) / invested * 10000), or 0 when nothing was invested.
func (e *Engine) Efficiency(p FundingProfile) float64 {
	total := e.defaulted(ScorerEfficiency, "total_credits", p.TotalCredits, DefaultTotalCredits)
	expected := e.defaulted(ScorerEfficiency, "expected_credits", p.ExpectedCredits, DefaultExpectedCredits)
	invested := e.defaulted(ScorerEfficiency, "amount_invested", p.AmountInvested, DefaultAmountInvested)

	if invested <= 0 {
		e.record(Event{
			Scorer:   ScorerEfficiency,
			Factor:   "amount_invested",
			Input:    strconv.FormatFloat(invested, 'g', -1, 64),
			Fallback: true,
		})
		return e.finish(ScorerEfficiency, 0)
	}

	efficiency := (total + expected) / invested
	return e.finish(ScorerEfficiency, math.Min(MaxScore, efficiency*efficiencyScale))
}

// EfficiencyRisk derives a risk score from delivered versus expected credits:
// 50 - min(20, total/expected * 20). Absent values count as zero.
func (e *Engine) EfficiencyRisk(p FundingProfile) float64 {
	total := valueOr(p.TotalCredits, 0)
	expected := valueOr(p.ExpectedCredits, 0)

	var adj float64
	if expected > 0 {
		adj = -math.Min(20, total/expected*20)
	}

	e.record(Event{Scorer: ScorerEfficiencyRisk, Factor: "delivery_ratio", Value: adj})
	return e.finish(ScorerEfficiencyRisk, riskBaseline+adj)
}

// defaulted substitutes def for an omitted optional input. That is normal
// input handling and is recorded as a plain event, not a fallback.
func (e *Engine) defaulted(scorer, factor string, p *float64, def float64) float64 {
	if p != nil {
		return *p
	}
	e.record(Event{Scorer: scorer, Factor: factor, Value: def, Input: inputDefault})
	return def
}
