package scoring

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Inputs combines the inputs of every scorer for a single funder/fundee pair.
type Inputs struct {
	Trial          TrialRecord
	Funding        FundingProfile
	Descriptions   DescriptionPair
	FunderLocation any
	FundeeLocation any

	FunderCapability float64
	FundeeNeeds      float64
}

// Scores holds one value per scorer.
type Scores struct {
	Risk                   float64 `json:"risk_score"`
	Efficiency             float64 `json:"efficiency_score"`
	Impact                 float64 `json:"impact_score"`
	GoalAlignment          float64 `json:"goal_alignment_score"`
	LocationMatch          float64 `json:"location_match_score"`
	FundingCapabilityMatch float64 `json:"funding_capability_match_score"`
}

// All runs every scorer concurrently for the given inputs.
func (e *Engine) All(ctx context.Context, in Inputs) Scores {
	var s Scores

	var g errgroup.Group
	g.Go(func() error {
		s.GoalAlignment = e.Alignment(ctx, in.Descriptions)
		return nil
	})
	g.Go(func() error {
		s.Risk = e.Risk(in.Trial)
		s.Efficiency = e.Efficiency(in.Funding)
		s.Impact = e.Impact(in.Funding.TotalCredits)
		s.LocationMatch = e.Location(in.FunderLocation, in.FundeeLocation)
		s.FundingCapabilityMatch = e.Capability(in.FunderCapability, in.FundeeNeeds)
		return nil
	})
	_ = g.Wait()

	return s
}
