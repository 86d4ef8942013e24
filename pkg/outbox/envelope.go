package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	envelopeSource = "tapify.payouts"
	defaultVersion = 1
)

// ActorRef is the admin or vendor whose request produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload. Consumers
// switch on the row's event_type and decode Data by Version.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(eventID uuid.UUID, event DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	version := event.Version
	if version == 0 {
		version = defaultVersion
	}

	return json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    eventID.String(),
		Source:     envelopeSource,
		OccurredAt: occurredAt,
		Actor:      event.Actor,
		Data:       data,
	})
}
