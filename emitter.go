package modgraph

import (
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// Emitter is the in-process Subject used by the Store. Delivery happens on a
// goroutine per observer unless the context was marked with
// WithSynchronousNotification.
type Emitter struct {
	logger Logger

	mu        sync.RWMutex
	observers map[string]*observerRegistration
}

// NewEmitter creates an Emitter. A nil logger discards output.
func NewEmitter(logger Logger) *Emitter {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Emitter{
		logger:    logger,
		observers: make(map[string]*observerRegistration),
	}
}

// RegisterObserver adds or replaces an observer.
func (e *Emitter) RegisterObserver(observer Observer, eventTypes ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	eventTypeMap := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	e.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	e.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer if present.
func (e *Emitter) UnregisterObserver(observer Observer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.observers[observer.ObserverID()]; exists {
		delete(e.observers, observer.ObserverID())
		e.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}
	return nil
}

// NotifyObservers validates event and hands it to every interested observer.
// Observer errors and panics are logged, never returned.
func (e *Emitter) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		e.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	e.mu.RLock()
	targets := make([]*observerRegistration, 0, len(e.observers))
	for _, registration := range e.observers {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}
		targets = append(targets, registration)
	}
	e.mu.RUnlock()

	synchronous := IsSynchronousNotification(ctx)
	for _, registration := range targets {
		if synchronous {
			e.deliver(ctx, registration, event)
			continue
		}
		go e.deliver(ctx, registration, event)
	}
	return nil
}

func (e *Emitter) deliver(ctx context.Context, registration *observerRegistration, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Observer panicked", "observerID", registration.observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()

	if err := registration.observer.OnEvent(ctx, event); err != nil {
		e.logger.Error("Observer error", "observerID", registration.observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

// GetObservers describes the registered observers.
func (e *Emitter) GetObservers() []ObserverInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	info := make([]ObserverInfo, 0, len(e.observers))
	for _, registration := range e.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	return info
}
