package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a named analytics fact with an arbitrary key/value payload.
type Event struct {
	ID         string
	Name       string
	Attributes map[string]any
	TaggedAt   time.Time
}

// Tagger receives events. Implementations must not fail the caller; delivery problems are
// their own concern.
type Tagger interface {
	Tag(ctx context.Context, event Event)
}

// NewEvent stamps an event with a UUIDv7 identifier and the current time.
func NewEvent(name string, attributes map[string]any) Event {
	return Event{
		ID:         newEventID(),
		Name:       name,
		Attributes: attributes,
		TaggedAt:   time.Now().UTC(),
	}
}

func newEventID() string {
	value, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return value.String()
}

// Nop discards every event.
type Nop struct{}

// Tag implements Tagger.
func (Nop) Tag(context.Context, Event) {}

// Recorder keeps tagged events in memory, in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Tag implements Tagger.
func (r *Recorder) Tag(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of every recorded event.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recently recorded event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Names returns recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, event := range r.events {
		names = append(names, event.Name)
	}
	return names
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
