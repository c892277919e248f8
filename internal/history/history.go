package history

import (
	"context"
	"log/slog"
	"time"
)

// EventType classifies a supervisor lifecycle event.
type EventType string

const (
	EventStart       EventType = "start"
	EventStartFailed EventType = "start_failed"
	EventStop        EventType = "stop"
)

// Event is one recorded lifecycle transition of a managed service.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Service    string    `json:"service"`
	PID        int       `json:"pid"`
	Detail     string    `json:"detail,omitempty"` // e.g. exit error on a failed start
}

// Sink is a destination for lifecycle events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// Querier is implemented by sinks that can also read events back
// (currently only the sqlite sink).
type Querier interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Recorder fans events out to zero or more sinks. Delivery is best-effort:
// a sink failure is logged and never propagates into lifecycle operations.
type Recorder struct {
	sinks []Sink
	log   *slog.Logger
}

func NewRecorder(log *slog.Logger, sinks ...Sink) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{sinks: sinks, log: log}
}

func (r *Recorder) Record(ctx context.Context, e Event) {
	if r == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	for _, s := range r.sinks {
		if err := s.Send(ctx, e); err != nil {
			r.log.Warn("history sink write failed", "service", e.Service, "type", e.Type, "error", err)
		}
	}
}

func (r *Recorder) Close() {
	if r == nil {
		return
	}
	for _, s := range r.sinks {
		_ = s.Close()
	}
}
