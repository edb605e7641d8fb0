package logger

import (
	"github.com/spigell/carbon-match/internal/scoring"

	"go.uber.org/zap"
)

type zapSink struct {
	logger *zap.Logger
}

// NewSink returns a scoring.Sink that writes scoring events to the logger.
// Factor adjustments are logged at debug level, fallbacks at warn level.
func NewSink(logger *zap.Logger) scoring.Sink {
	return &zapSink{logger: WithFields(logger)}
}

func (s *zapSink) Record(ev scoring.Event) {
	fields := []zap.Field{
		zap.String("scorer", ev.Scorer),
		zap.String("factor", ev.Factor),
		zap.Float64("value", ev.Value),
	}
	if ev.Input != "" {
		fields = append(fields, zap.String("input", ev.Input))
	}

	if ev.Fallback {
		if ev.Err != nil {
			fields = append(fields, zap.Error(ev.Err))
		}
		s.logger.Warn("scoring fell back to default", fields...)
		return
	}

	if ev.Factor == scoring.FactorResult {
		s.logger.Debug("score computed", fields...)
		return
	}

	s.logger.Debug("score adjustment", fields...)
}
