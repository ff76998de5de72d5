package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EnvelopeVersion is the newest envelope layout this build writes and reads.
const EnvelopeVersion = 1

// Actor is the wallet an event was produced for.
type Actor struct {
	Wallet string `json:"wallet"`
}

// Envelope is the JSON stored in outbox_events.payload and published as the
// Pub/Sub message body. Data holds the event-specific payload.
type Envelope struct {
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	EventID    string          `json:"eventId"`
	Data       json.RawMessage `json:"data"`
	Version    int             `json:"version"`
}

// OrderingKey is the wallet that serializes delivery, or "" for unordered
// events.
func (e Envelope) OrderingKey() string {
	if e.Actor == nil {
		return ""
	}
	return strings.ToLower(e.Actor.Wallet)
}

// DecodeEnvelope parses a stored payload. Rows that fail here can never be
// published and belong in the dead letter table.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch {
	case env.Version < 1 || env.Version > EnvelopeVersion:
		return Envelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	case env.EventID == "":
		return Envelope{}, errors.New("envelope has no event id")
	}
	return env, nil
}
