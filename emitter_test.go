package modgraph_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modgraph"
)

type recordingObserver struct {
	id string

	mu     sync.Mutex
	events []cloudevents.Event
}

func (o *recordingObserver) OnEvent(_ context.Context, event cloudevents.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

func (o *recordingObserver) ObserverID() string { return o.id }

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}

func TestEmitter_Subscriptions(t *testing.T) {
	emitter := modgraph.NewEmitter(nil)
	all := &recordingObserver{id: "all"}
	deletes := &recordingObserver{id: "deletes"}
	require.NoError(t, emitter.RegisterObserver(all))
	require.NoError(t, emitter.RegisterObserver(deletes, modgraph.EventTypeModuleDeleted))
	assert.Len(t, emitter.GetObservers(), 2)

	ctx := modgraph.WithSynchronousNotification(context.Background())
	for _, eventType := range []string{modgraph.EventTypeModuleCreated, modgraph.EventTypeModuleDeleted} {
		event := modgraph.NewCloudEvent(eventType, modgraph.EventSource, modgraph.ModuleEventData{Name: "A"}, nil)
		require.NoError(t, emitter.NotifyObservers(ctx, event))
	}
	assert.Equal(t, 2, all.count())
	assert.Equal(t, 1, deletes.count())

	require.NoError(t, emitter.UnregisterObserver(all))
	require.NoError(t, emitter.UnregisterObserver(all))
	assert.Len(t, emitter.GetObservers(), 1)
}

func TestEmitter_AsyncDelivery(t *testing.T) {
	emitter := modgraph.NewEmitter(nil)
	observer := &recordingObserver{id: "async"}
	require.NoError(t, emitter.RegisterObserver(observer))

	event := modgraph.NewCloudEvent(modgraph.EventTypeModulesLoaded, modgraph.EventSource, nil, nil)
	require.NoError(t, emitter.NotifyObservers(context.Background(), event))
	assert.Eventually(t, func() bool { return observer.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEmitter_ObserverFailuresAreContained(t *testing.T) {
	emitter := modgraph.NewEmitter(nil)
	healthy := &recordingObserver{id: "healthy"}
	require.NoError(t, emitter.RegisterObserver(modgraph.NewFunctionalObserver("panics",
		func(context.Context, cloudevents.Event) error { panic("boom") })))
	require.NoError(t, emitter.RegisterObserver(modgraph.NewFunctionalObserver("fails",
		func(context.Context, cloudevents.Event) error { return errors.New("nope") })))
	require.NoError(t, emitter.RegisterObserver(healthy))

	ctx := modgraph.WithSynchronousNotification(context.Background())
	event := modgraph.NewCloudEvent(modgraph.EventTypeModuleCreated, modgraph.EventSource, nil, nil)
	assert.NotPanics(t, func() {
		assert.NoError(t, emitter.NotifyObservers(ctx, event))
	})
	assert.Equal(t, 1, healthy.count())
}

func TestEmitter_RejectsInvalidEvents(t *testing.T) {
	emitter := modgraph.NewEmitter(nil)
	observer := &recordingObserver{id: "o"}
	require.NoError(t, emitter.RegisterObserver(observer))

	event := cloudevents.NewEvent()
	event.SetType(modgraph.EventTypeModuleCreated)
	err := emitter.NotifyObservers(modgraph.WithSynchronousNotification(context.Background()), event)
	assert.Error(t, err)
	assert.Zero(t, observer.count())
}

func TestNewCloudEvent(t *testing.T) {
	event := modgraph.NewCloudEvent(modgraph.EventTypeModuleUpdated, modgraph.EventSource,
		modgraph.ModuleEventData{Name: "A", Replay: true}, map[string]any{"actor": "cli"})

	require.NoError(t, modgraph.ValidateCloudEvent(event))
	assert.NotEmpty(t, event.ID())
	assert.Equal(t, cloudevents.ApplicationJSON, event.DataContentType())
	assert.Equal(t, "cli", event.Extensions()["actor"])

	var data modgraph.ModuleEventData
	require.NoError(t, event.DataAs(&data))
	assert.Equal(t, modgraph.ModuleEventData{Name: "A", Replay: true}, data)
}

func TestHandleEventEmissionError(t *testing.T) {
	assert.True(t, modgraph.HandleEventEmissionError(modgraph.ErrNoSubjectForEventEmission, nil, "x"))
	assert.False(t, modgraph.HandleEventEmissionError(errors.New("other"), nil, "x"))
	assert.True(t, modgraph.HandleEventEmissionError(errors.New("other"), modgraph.NewSlogLogger(nil), "x"))
}
