package scoring

import "math"

// Chosen so that 100 credits ≈ 46, 1000 ≈ 69 and 10000 ≈ 92.
const impactSlope = 23.0

// Impact scores the absolute credit volume on a log scale:
// min(100, 23 * log10(total)), or 0 for non-positive totals.
func (e *Engine) Impact(totalCredits *float64) float64 {
	total := e.defaulted(ScorerImpact, "total_credits", totalCredits, DefaultTotalCredits)
	if total <= 0 {
		return e.finish(ScorerImpact, 0)
	}

	return e.finish(ScorerImpact, math.Min(MaxScore, impactSlope*math.Log10(total)))
}
