package events

import (
	"encoding/json"
	"time"
)

// Envelope is the wire shape of every event agora publishes. Each context
// declares a field-identical EventEnvelope in its ports, so the composition
// root converts between them with a plain type conversion.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}
