// Package scoring computes normalized 0-100 compatibility and risk scores
// between a funder and a fundee of a carbon removal project.
//
// Every scorer is a method on Engine. An Engine is immutable after New and
// safe for concurrent use. Scorers never return errors: malformed input and
// provider failures resolve to documented fallback scores.
package scoring

import (
	"math"
	"time"

	"github.com/spigell/carbon-match/internal/embedding"
)

const (
	MinScore = 0.0
	MaxScore = 100.0

	// DefaultEmbeddingTimeout bounds a single alignment call to the provider.
	DefaultEmbeddingTimeout = 10 * time.Second
)

// Scorer names used in events and responses.
const (
	ScorerRisk           = "risk"
	ScorerEfficiency     = "efficiency"
	ScorerImpact         = "impact"
	ScorerAlignment      = "goal_alignment"
	ScorerLocation       = "location_match"
	ScorerCapability     = "funding_capability_match"
	ScorerEfficiencyRisk = "efficiency_risk"
)

// FactorResult marks the event carrying a scorer's final value.
const FactorResult = "result"

const inputDefault = "default"

// Event describes one step of a score computation.
type Event struct {
	Scorer string
	Factor string
	// Input is the raw input rendered for diagnostics, if any.
	Input string
	Value float64
	// Fallback is set when a documented default replaced the computed value.
	Fallback bool
	Err      error
}

// Sink receives scoring events. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ev Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) Record(ev Event) { f(ev) }

// NopSink discards all events.
var NopSink Sink = SinkFunc(func(Event) {})

// MultiSink fans events out to every non-nil sink.
func MultiSink(sinks ...Sink) Sink {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}

	switch len(active) {
	case 0:
		return NopSink
	case 1:
		return active[0]
	}

	return SinkFunc(func(ev Event) {
		for _, s := range active {
			s.Record(ev)
		}
	})
}

// Engine holds the collaborators shared by all scorers.
type Engine struct {
	sink     Sink
	provider embedding.Provider
	fallback *embedding.HashEmbedder
	timeout  time.Duration
}

type Option func(*Engine)

// WithSink sets the event sink.
func WithSink(sink Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithProvider sets the embedding provider used for goal alignment. Without a
// provider every alignment uses the fallback embedder.
func WithProvider(p embedding.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithTimeout bounds each provider call made during alignment.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		sink:    NopSink,
		timeout: DefaultEmbeddingTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	dimension := embedding.DefaultDimension
	if e.provider != nil && e.provider.Dimension() > 0 {
		dimension = e.provider.Dimension()
	}
	e.fallback = embedding.NewHashEmbedder(dimension)

	return e
}

// Provider returns the configured embedding provider, possibly nil.
func (e *Engine) Provider() embedding.Provider {
	return e.provider
}

// Timeout is the bound applied to a single provider call.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

func (e *Engine) record(ev Event) {
	e.sink.Record(ev)
}

// finish clamps the value, reports it and returns it.
func (e *Engine) finish(scorer string, value float64) float64 {
	score, ok := clamp(value)
	e.record(Event{Scorer: scorer, Factor: FactorResult, Value: score, Fallback: !ok})
	return score
}

// clamp bounds v to [MinScore, MaxScore]. NaN maps to MinScore and reports false.
func clamp(v float64) (float64, bool) {
	if math.IsNaN(v) {
		return MinScore, false
	}
	return math.Max(MinScore, math.Min(MaxScore, v)), true
}

// valueOr returns *p or def when p is nil.
func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
