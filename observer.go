// Package modgraph provides Observer pattern interfaces for store change
// notifications. Events follow the CloudEvents specification so they can be
// forwarded to external systems unchanged.
package modgraph

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of events emitted by a Subject.
type Observer interface {
	// OnEvent is called for every event the observer subscribed to.
	// Observers should return quickly; slow work belongs in a goroutine.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier used for registration.
	ObserverID() string
}

// Subject maintains observers and notifies them of events.
type Subject interface {
	// RegisterObserver adds an observer. If eventTypes is empty the observer
	// receives every event.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. It is idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers delivers event to every interested observer.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers describes the registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event types emitted by the Store, in reverse domain notation.
const (
	EventTypeModuleCreated = "com.modgraph.module.created"
	EventTypeModuleUpdated = "com.modgraph.module.updated"
	EventTypeModuleDeleted = "com.modgraph.module.deleted"
	EventTypeModulesLoaded = "com.modgraph.modules.loaded"

	EventTypeHistoryUndone = "com.modgraph.history.undone"
	EventTypeHistoryRedone = "com.modgraph.history.redone"

	EventTypeBulkCompleted = "com.modgraph.bulk.completed"

	EventTypeSurrogateExecuted = "com.modgraph.surrogate.executed"
)

// EventSource is the CloudEvents source attribute used by the Store.
const EventSource = "modgraph.store"

// FunctionalObserver adapts a function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer backed by handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent calls the handler.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID returns the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
