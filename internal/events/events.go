// Package events publishes build lifecycle events to pluggable sinks.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/projectgraph/internal/ctxlog"
)

// Type identifies what happened.
type Type string

const (
	BuildStarted      Type = "build.started"
	ProjectDiscovered Type = "project.discovered"
	ProjectEvaluated  Type = "project.evaluated"
	GraphCompleted    Type = "graph.completed"
	GraphFailed       Type = "graph.failed"
)

// Event is one build lifecycle event.
type Event struct {
	ID               string            `json:"id"`
	BuildID          string            `json:"build_id"`
	Type             Type              `json:"type"`
	Project          string            `json:"project,omitempty"`
	GlobalProperties map[string]string `json:"global_properties,omitempty"`
	Time             time.Time         `json:"time"`
	Message          string            `json:"message,omitempty"`
}

// Sink receives events. Publish must not block for long and must be safe for
// concurrent use.
type Sink interface {
	Publish(ctx context.Context, e Event)
	Close(ctx context.Context) error
}

// Emitter stamps events with a build id, an event id and a timestamp before
// handing them to a sink. A nil Emitter drops everything.
type Emitter struct {
	buildID string
	sink    Sink
	now     func() time.Time
}

// NewEmitter creates an emitter for one build.
func NewEmitter(buildID string, sink Sink) *Emitter {
	return &Emitter{buildID: buildID, sink: sink, now: time.Now}
}

// BuildID returns the build id stamped on every event.
func (em *Emitter) BuildID() string {
	if em == nil {
		return ""
	}
	return em.buildID
}

// Emit publishes e after filling in its identifying fields.
func (em *Emitter) Emit(ctx context.Context, e Event) {
	if em == nil || em.sink == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.BuildID = em.buildID
	if e.Time.IsZero() {
		e.Time = em.now()
	}
	em.sink.Publish(ctx, e)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) {}
func (NopSink) Close(context.Context) error    { return nil }

// LogSink writes events to the context logger at debug level.
type LogSink struct{}

func (LogSink) Publish(ctx context.Context, e Event) {
	ctxlog.FromContext(ctx).Debug("Build event.",
		"type", string(e.Type),
		"buildID", e.BuildID,
		"project", e.Project,
		"message", e.Message,
	)
}

func (LogSink) Close(context.Context) error { return nil }

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Close(context.Context) error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans events out to several sinks.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e Event) {
	for _, s := range m {
		s.Publish(ctx, e)
	}
}

// Close closes every sink and joins their errors.
func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
