// Package webhook notifies external endpoints when the active catalog changes.
package webhook

import "time"

// Event types that can trigger webhooks
const (
	EventCatalogUpdated = "catalog.updated"
)

// Event is the JSON body posted to every target.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// EventData describes the catalog change.
type EventData struct {
	ETag         string   `json:"etag"`
	PreviousETag string   `json:"previous_etag,omitempty"`
	Source       string   `json:"source"`
	RuleCount    int      `json:"rule_count"`
	Authorities  []string `json:"authorities"`
	Added        []string `json:"added,omitempty"`
	Removed      []string `json:"removed,omitempty"`
}

// Target is one subscribed endpoint.
type Target struct {
	URL        string
	Secret     string // empty disables signing
	MaxRetries int
	Timeout    time.Duration
}
