package server

import (
	"context"
	"sort"

	"github.com/spigell/carbon-match/internal/scoring"
)

// Operation maps one scorer to its request fields and response key.
type Operation struct {
	// Name is the route segment under /api/.
	Name string
	// Key is the response field holding the score.
	Key string
	// Fields lists the request fields the operation reads, required first.
	Fields []string
	// Required is how many leading Fields must be present.
	Required int

	score func(ctx context.Context, e *scoring.Engine, b Body) (float64, error)
}

// RequiredFields returns the fields the operation rejects the request without.
func (op Operation) RequiredFields() []string {
	return op.Fields[:op.Required]
}

// Score decodes the body and runs the scorer. Only *ValidationError is returned.
func (op Operation) Score(ctx context.Context, e *scoring.Engine, b Body) (float64, error) {
	return op.score(ctx, e, b)
}

var operations = map[string]Operation{
	"risk-score": {
		Name:     "risk-score",
		Key:      "risk_score",
		Fields:   []string{"trial_data"},
		Required: 1,
		score: func(_ context.Context, e *scoring.Engine, b Body) (float64, error) {
			record, err := b.trial()
			if err != nil {
				return 0, err
			}
			return e.Risk(record), nil
		},
	},
	"efficiency-score": {
		Name:   "efficiency-score",
		Key:    "efficiency_score",
		Fields: []string{"total_credits", "expected_credits", "amount_invested"},
		score: func(_ context.Context, e *scoring.Engine, b Body) (float64, error) {
			return e.Efficiency(b.funding()), nil
		},
	},
	"impact-score": {
		Name:   "impact-score",
		Key:    "impact_score",
		Fields: []string{"total_credits"},
		score: func(_ context.Context, e *scoring.Engine, b Body) (float64, error) {
			return e.Impact(b.funding().TotalCredits), nil
		},
	},
	"goal-alignment": {
		Name:     "goal-alignment",
		Key:      "goal_alignment_score",
		Fields:   []string{"funder_description", "fundee_description"},
		Required: 2,
		score: func(ctx context.Context, e *scoring.Engine, b Body) (float64, error) {
			pair, err := b.descriptions()
			if err != nil {
				return 0, err
			}
			return e.Alignment(ctx, pair), nil
		},
	},
	"location-match": {
		Name:     "location-match",
		Key:      "location_match_score",
		Fields:   []string{"funder_location", "fundee_location"},
		Required: 2,
		score: func(_ context.Context, e *scoring.Engine, b Body) (float64, error) {
			funder, fundee, err := b.locations()
			if err != nil {
				return 0, err
			}
			return e.Location(funder, fundee), nil
		},
	},
	"funding-capability-match": {
		Name:     "funding-capability-match",
		Key:      "funding_capability_match_score",
		Fields:   []string{"funder_capability", "fundee_needs"},
		Required: 2,
		score: func(_ context.Context, e *scoring.Engine, b Body) (float64, error) {
			capability, needs, err := b.capability()
			if err != nil {
				return 0, err
			}
			return e.Capability(capability, needs), nil
		},
	},
	"efficiency-risk-score": {
		Name:   "efficiency-risk-score",
		Key:    "efficiency_risk_score",
		Fields: []string{"total_credits", "expected_credits"},
		score: func(_ context.Context, e *scoring.Engine, b Body) (float64, error) {
			return e.EfficiencyRisk(b.funding()), nil
		},
	},
}

// Lookup returns the operation served at /api/<name>.
func Lookup(name string) (Operation, bool) {
	op, ok := operations[name]
	return op, ok
}

// Operations returns every single-score operation sorted by name.
func Operations() []Operation {
	out := make([]Operation, 0, len(operations))
	for _, op := range operations {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllInputs validates a combined body for ScoreAll. Required fields are the
// union of the individual operations' required fields.
func AllInputs(b Body) (scoring.Inputs, error) {
	record, err := b.trial()
	if err != nil {
		return scoring.Inputs{}, err
	}
	pair, err := b.descriptions()
	if err != nil {
		return scoring.Inputs{}, err
	}
	funder, fundee, err := b.locations()
	if err != nil {
		return scoring.Inputs{}, err
	}
	capability, needs, err := b.capability()
	if err != nil {
		return scoring.Inputs{}, err
	}

	return scoring.Inputs{
		Trial:            record,
		Funding:          b.funding(),
		Descriptions:     pair,
		FunderLocation:   funder,
		FundeeLocation:   fundee,
		FunderCapability: capability,
		FundeeNeeds:      needs,
	}, nil
}
