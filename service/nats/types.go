package nats

import (
	"time"
)

// StatusEvent is a terminal status transition published to NATS.
// It is published to the subject "statuses.{signature}" in JetStream.
// Timestamp is nil when the block-time lookup was unavailable;
// Confirmations is nil when the node reported the finalized ("max")
// sentinel.
type StatusEvent struct {
	Signature   string `json:"signature"`
	URL         string `json:"url"`
	FetchStatus string `json:"fetch_status"`

	// Populated only for a found transaction.
	Slot          uint64  `json:"slot,omitempty"`
	Err           *string `json:"err,omitempty"`
	Timestamp     *int64  `json:"timestamp,omitempty"`
	Confirmations *uint64 `json:"confirmations,omitempty"`
	Finalized     bool    `json:"finalized,omitempty"`

	PublishedAt time.Time `json:"published_at"`
}
