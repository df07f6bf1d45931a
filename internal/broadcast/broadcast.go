// Package broadcast fans simulation updates out to observers of the world.
package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/railtycoon/server/pkg/streaming"
)

// Publisher delivers typed messages to the relay. Publish must not block
// the tick loop.
type Publisher interface {
	Publish(msgType string, payload any) error
	Close() error
}

// Nop discards everything. It is used when broadcasting is disabled.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }
func (Nop) Close() error              { return nil }

// MarshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func MarshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
