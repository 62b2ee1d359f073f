package executor

import (
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/rs/zerolog"
)

// EventSink receives task state transitions. Emit is only ever called from
// the coordinator goroutine, in transition order.
type EventSink interface {
	Emit(event types.Event)
}

// SinkFunc adapts a function to EventSink
type SinkFunc func(event types.Event)

// Emit calls f
func (f SinkFunc) Emit(event types.Event) { f(event) }

// MultiSink fans each event out to every sink in order
type MultiSink []EventSink

// Emit forwards event to every sink
func (m MultiSink) Emit(event types.Event) {
	for _, s := range m {
		s.Emit(event)
	}
}

// LogSink writes one structured log record per transition
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink writing to logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs event at a level matching its destination state
func (s *LogSink) Emit(event types.Event) {
	var e *zerolog.Event
	switch event.To {
	case types.StatusFailed:
		e = s.logger.Warn()
	case types.StatusSucceeded, types.StatusSkipped:
		e = s.logger.Info()
	default:
		e = s.logger.Debug()
	}

	e.Time("at", event.Time).
		Str("task", event.TaskID).
		Str("kind", string(event.Kind)).
		Str("from", string(event.From)).
		Str("to", string(event.To)).
		Str("reason", event.Reason).
		Msg("Task state changed")
}
