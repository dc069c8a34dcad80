package modgraph

import (
	"errors"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is an alias for the CloudEvents Event type for convenience
type CloudEvent = cloudevents.Event

// ModuleEventData is the payload of module change events.
type ModuleEventData struct {
	Name   string  `json:"name"`
	Module *Module `json:"module,omitempty"`
	// Replay is true when the change came from undo or redo.
	Replay bool `json:"replay"`
}

// NewCloudEvent creates a CloudEvent with a fresh ID and the current time.
func NewCloudEvent(eventType, source string, data any, metadata map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent()

	event.SetID(generateID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}

	for key, value := range metadata {
		event.SetExtension(key, value)
	}

	return event
}

// generateID returns a UUIDv7 string. UUIDv7 is time ordered, which keeps
// command and event IDs sortable by creation.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// ValidateCloudEvent validates an event against the CloudEvents specification.
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return nil
}

// HandleEventEmissionError swallows the expected "no subject" error and logs
// anything else at debug level. It returns false only when the error was not
// handled and no logger was available.
func HandleEventEmissionError(err error, logger Logger, eventType string) bool {
	if errors.Is(err, ErrNoSubjectForEventEmission) {
		return true
	}
	if logger != nil {
		logger.Debug("Failed to emit event", "eventType", eventType, "error", err)
		return true
	}
	return false
}
