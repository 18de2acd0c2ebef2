// Package events publishes domain events about saved estimates.
//
// Events are wrapped in a versioned Envelope and written to Kafka when
// brokers are configured; otherwise a no-op publisher swallows them.
// Publishing is best effort: callers log failures and move on.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	SpecVersionV1 = "1.0"

	// Domain is the envelope domain of everything this service emits.
	Domain = "premium"

	// TypeEstimateSaved is emitted after a history record is stored.
	TypeEstimateSaved = "estimate.saved"
)

// Envelope is the wire format of every event.
type Envelope struct {
	SpecVersion string            `json:"spec_version"`
	Domain      string            `json:"domain"`
	EventType   string            `json:"event_type"`
	Source      string            `json:"source"`
	Timestamp   time.Time         `json:"timestamp"`
	Correlation map[string]string `json:"correlation,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Payload     json.RawMessage   `json:"payload"`

	// Key selects the partition; it is not part of the JSON body.
	Key string `json:"-"`
}

// EstimateSaved is the payload of TypeEstimateSaved.
type EstimateSaved struct {
	RecordID       string    `json:"record_id"`
	OwnerID        string    `json:"owner_id"`
	PredictorType  string    `json:"predictor_type"`
	Output         float64   `json:"output"`
	Timestamp      time.Time `json:"timestamp"`
	CollectionPath string    `json:"collection_path"`
}

// NewEnvelope marshals payload into a v1 envelope. requestID, when set, is
// recorded under correlation.request_id.
func NewEnvelope(eventType, source, requestID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{
		SpecVersion: SpecVersionV1,
		Domain:      Domain,
		EventType:   eventType,
		Source:      source,
		Timestamp:   time.Now().UTC(),
		Payload:     raw,
	}
	if requestID != "" {
		env.Correlation = map[string]string{"request_id": requestID}
	}
	return env, nil
}

// Validate reports the first missing required field.
func (e Envelope) Validate() error {
	if e.SpecVersion == "" {
		return errors.New("spec_version is required")
	}
	if e.Domain == "" {
		return errors.New("domain is required")
	}
	if e.EventType == "" {
		return errors.New("event_type is required")
	}
	if len(e.Payload) == 0 {
		return errors.New("payload is required")
	}
	return nil
}
