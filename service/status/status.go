package status

import (
	"encoding/json"
	"fmt"
)

// FetchStatus is the lifecycle state of a signature status fetch.
// A record starts in FetchStatusFetching and settles in exactly one of
// FetchStatusFetched or FetchStatusFetchFailed.
type FetchStatus int

const (
	FetchStatusFetching FetchStatus = iota
	FetchStatusFetchFailed
	FetchStatusFetched
)

// String returns the lowercase wire name of the fetch status.
func (s FetchStatus) String() string {
	switch s {
	case FetchStatusFetching:
		return "fetching"
	case FetchStatusFetchFailed:
		return "fetch_failed"
	case FetchStatusFetched:
		return "fetched"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the status is a terminal state.
func (s FetchStatus) Terminal() bool {
	return s == FetchStatusFetched || s == FetchStatusFetchFailed
}

// MarshalJSON encodes the fetch status as its string name.
func (s FetchStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a fetch status from its string name.
func (s *FetchStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "fetching":
		*s = FetchStatusFetching
	case "fetch_failed":
		*s = FetchStatusFetchFailed
	case "fetched":
		*s = FetchStatusFetched
	default:
		return fmt.Errorf("unknown fetch status %q", name)
	}
	return nil
}

// Timestamp is a block timestamp that is either a known epoch-seconds value
// or unavailable (the block-time service could not supply one). The zero
// value is unavailable.
type Timestamp struct {
	known bool
	unix  int64
}

// TimestampKnown returns a timestamp with a known epoch-seconds value.
func TimestampKnown(unix int64) Timestamp {
	return Timestamp{known: true, unix: unix}
}

// TimestampUnavailable returns the unavailable sentinel.
func TimestampUnavailable() Timestamp {
	return Timestamp{}
}

// Known returns the epoch seconds and whether the timestamp is known.
func (t Timestamp) Known() (int64, bool) {
	return t.unix, t.known
}

// MarshalJSON encodes a known timestamp as a number and the unavailable
// sentinel as the string "unavailable".
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.known {
		return json.Marshal(t.unix)
	}
	return json.Marshal("unavailable")
}

// UnmarshalJSON decodes a number or the string "unavailable".
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var unix int64
	if err := json.Unmarshal(data, &unix); err == nil {
		*t = TimestampKnown(unix)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != "unavailable" {
		return fmt.Errorf("unknown timestamp value %q", s)
	}
	*t = TimestampUnavailable()
	return nil
}

// Confirmations is either a concrete confirmation count or the "max"
// sentinel, the status service's convention for a finalized transaction
// whose count is no longer tracked. The zero value is Count(0).
type Confirmations struct {
	max   bool
	count uint64
}

// ConfirmationCount returns a concrete confirmation count.
func ConfirmationCount(n uint64) Confirmations {
	return Confirmations{count: n}
}

// MaxConfirmations returns the "max" (finalized) sentinel.
func MaxConfirmations() Confirmations {
	return Confirmations{max: true}
}

// Finalized reports whether the confirmations value is the "max" sentinel.
func (c Confirmations) Finalized() bool {
	return c.max
}

// Count returns the concrete count and whether one is tracked.
func (c Confirmations) Count() (uint64, bool) {
	if c.max {
		return 0, false
	}
	return c.count, true
}

// MarshalJSON encodes a concrete count as a number and the finalized
// sentinel as the string "max".
func (c Confirmations) MarshalJSON() ([]byte, error) {
	if c.max {
		return json.Marshal("max")
	}
	return json.Marshal(c.count)
}

// UnmarshalJSON decodes a number or the string "max".
func (c *Confirmations) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = ConfirmationCount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != "max" {
		return fmt.Errorf("unknown confirmations value %q", s)
	}
	*c = MaxConfirmations()
	return nil
}

// Info holds the resolved on-chain status of a found transaction.
// Err is an opaque pass-through from the status service: nil means the
// transaction succeeded, non-nil carries the service's error rendering.
type Info struct {
	Slot          uint64        `json:"slot"`
	Err           *string       `json:"err"`
	Timestamp     Timestamp     `json:"timestamp"`
	Confirmations Confirmations `json:"confirmations"`
}

// TransactionStatus is a single signature's status record.
// Info is non-nil only when FetchStatus is FetchStatusFetched and the
// status service (or fixture cache) returned a match.
type TransactionStatus struct {
	Signature   string      `json:"signature"`
	FetchStatus FetchStatus `json:"fetch_status"`
	Info        *Info       `json:"info,omitempty"`
}

// State is a snapshot of the store: the cluster URL its records belong to
// and the signature-keyed records themselves. Snapshots are immutable;
// the map is copied on every transition and must not be mutated by
// readers.
type State struct {
	URL          string                       `json:"url"`
	Transactions map[string]TransactionStatus `json:"transactions"`
}

// NewState returns an empty state bound to the given cluster URL.
func NewState(url string) State {
	return State{URL: url, Transactions: map[string]TransactionStatus{}}
}
