package events

import (
	"context"
	"sync"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
)

// Subscriber receives events synchronously from an InMemoryEmitter.
type Subscriber func(ctx context.Context, event *models.CaseEvent) error

// InMemoryEmitter fans events out to subscribers in-process. Deployments
// without Kafka use it with the audit recorder subscribed; tests use the
// recording variant to inspect what was published.
type InMemoryEmitter struct {
	mu          sync.Mutex
	record      bool
	events      []*models.CaseEvent
	subscribers []Subscriber
	err         error
}

// NewInMemoryEmitter only delivers to subscribers and keeps nothing.
func NewInMemoryEmitter(subscribers ...Subscriber) *InMemoryEmitter {
	return &InMemoryEmitter{subscribers: subscribers}
}

// NewRecordingEmitter also keeps every published event until Reset.
func NewRecordingEmitter(subscribers ...Subscriber) *InMemoryEmitter {
	return &InMemoryEmitter{record: true, subscribers: subscribers}
}

func (e *InMemoryEmitter) Publish(ctx context.Context, event *models.CaseEvent) error {
	e.mu.Lock()
	if e.err != nil {
		err := e.err
		e.mu.Unlock()
		return err
	}
	if e.record {
		e.events = append(e.events, event)
	}
	subs := e.subscribers
	e.mu.Unlock()

	for _, sub := range subs {
		if err := sub(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// FailWith makes subsequent publishes return err. Pass nil to recover.
func (e *InMemoryEmitter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Events returns a copy of everything recorded so far.
func (e *InMemoryEmitter) Events() []*models.CaseEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.CaseEvent, len(e.events))
	copy(out, e.events)
	return out
}

// EventsFor returns the events whose snapshot belongs to caseID.
func (e *InMemoryEmitter) EventsFor(caseID id.CaseID) []*models.CaseEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*models.CaseEvent
	for _, ev := range e.events {
		if ev.Case != nil && ev.Case.ID == caseID {
			out = append(out, ev)
		}
	}
	return out
}

func (e *InMemoryEmitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
}
