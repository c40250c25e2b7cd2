package models

import "time"

// StoredResult is what the result store keeps per request.
type StoredResult struct {
	RequestID  string           `json:"request_id,omitempty"`
	Result     *CompositeResult `json:"result"`
	ArchiveURL string           `json:"archive_url,omitempty"`
	StoredAt   time.Time        `json:"stored_at"`
}
