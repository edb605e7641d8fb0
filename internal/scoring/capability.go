package scoring

// Capability scores how much of the fundee's need the funder can cover.
func (e *Engine) Capability(funderCapability, fundeeNeeds float64) float64 {
	switch {
	case fundeeNeeds <= 0:
		return e.finish(ScorerCapability, MaxScore)
	case funderCapability >= fundeeNeeds:
		return e.finish(ScorerCapability, MaxScore)
	default:
		return e.finish(ScorerCapability, funderCapability/fundeeNeeds*100)
	}
}
