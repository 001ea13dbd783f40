// Package events publishes case lifecycle events.
//
// Emitters report failures to their caller, which logs and counts them; a
// failed publish never rolls back the case write that produced the event.
package events

import (
	"context"
	"errors"

	"caseflow/internal/cases/models"
)

// ErrCircuitOpen is returned while the publish circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("event publisher circuit open")

// Emitter publishes a case event to downstream consumers.
type Emitter interface {
	Publish(ctx context.Context, event *models.CaseEvent) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, *models.CaseEvent) error { return nil }
