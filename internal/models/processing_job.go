package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const ProcedureWatermark = "watermark"

// RequestMessage is the envelope a tool request arrives in.
type RequestMessage struct {
	MessageID  string              `json:"messageId"`
	Timestamp  Timestamp           `json:"timestamp"`
	Procedure  string              `json:"procedure"`
	Parameters WatermarkParameters `json:"parameters"`
}

// ResultMessage is the envelope published on the results routing key.
type ResultMessage struct {
	MessageID     string           `json:"messageId"`
	CorrelationID string           `json:"correlationId"`
	Timestamp     Timestamp        `json:"timestamp"`
	Status        string           `json:"status"`
	Output        *CompositeResult `json:"output"`
}

// timestampLayouts are tried in order. Timestamps without a zone are read as
// UTC; fractional seconds are optional in every layout.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp is an ISO-8601 instant. It decodes both RFC 3339 and zone-less
// values like "2024-05-01T12:00:00.123456" and encodes as RFC 3339.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
