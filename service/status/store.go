package status

import (
	"log/slog"
	"sync"

	"github.com/brojonat/sigwatch/service/metrics"
)

// Reducer transitions. These are pure functions from old state to new
// state so the exact semantics are testable without a Store. Every
// transition that changes anything allocates a fresh map; the previous
// snapshot is never mutated.

// clear unconditionally replaces the state with an empty map bound to url.
func clear(url string) State {
	return NewState(url)
}

// fetchSignature marks a signature as being fetched. Actions carrying a
// URL other than the state's are stale leftovers from a superseded cluster
// and are dropped. An existing record is reset in place (signature field
// preserved, info discarded); an absent one is created.
func fetchSignature(prev State, url, signature string) (State, bool) {
	if url != prev.URL {
		return prev, false
	}
	next := State{URL: prev.URL, Transactions: cloneRecords(prev.Transactions)}
	next.Transactions[signature] = TransactionStatus{
		Signature:   signature,
		FetchStatus: FetchStatusFetching,
	}
	return next, true
}

// updateStatus overwrites the fetch status and info of an existing record.
// Stale URLs are dropped, as are updates for signatures the store has no
// record of: unlike fetchSignature, updateStatus never creates a record.
func updateStatus(prev State, url, signature string, fs FetchStatus, info *Info) (State, bool) {
	if url != prev.URL {
		return prev, false
	}
	if _, ok := prev.Transactions[signature]; !ok {
		return prev, false
	}
	next := State{URL: prev.URL, Transactions: cloneRecords(prev.Transactions)}
	next.Transactions[signature] = TransactionStatus{
		Signature:   signature,
		FetchStatus: fs,
		Info:        info,
	}
	return next, true
}

func cloneRecords(m map[string]TransactionStatus) map[string]TransactionStatus {
	out := make(map[string]TransactionStatus, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store holds the signature status map for the currently selected cluster.
// All writes go through the three transition methods, which serialize
// behind a mutex, so readers of a State snapshot never observe a partial
// update. There is no persistence: the store lives and dies with the
// process and is cleared on every cluster switch.
type Store struct {
	mu       sync.Mutex
	state    State
	watchers map[int]chan State
	nextID   int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewStore creates a store with an empty state bound to url.
// If m is nil, no metrics are recorded.
func NewStore(url string, m *metrics.Metrics, logger *slog.Logger) *Store {
	return &Store{
		state:    NewState(url),
		watchers: make(map[int]chan State),
		logger:   logger,
		metrics:  m,
	}
}

// State returns the current snapshot. The returned map is shared with the
// store's copy-on-write state and must be treated as read-only.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Get returns the record for a signature, if any.
func (s *Store) Get(signature string) (TransactionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.state.Transactions[signature]
	return ts, ok
}

// Clear replaces the state with an empty map bound to url. Unlike the
// other transitions it applies regardless of the current URL; it is how
// the store follows a cluster switch.
func (s *Store) Clear(url string) {
	s.mu.Lock()
	s.state = clear(url)
	snapshot := s.state
	s.notifyLocked(snapshot)
	s.mu.Unlock()

	s.logger.Debug("status store cleared", "url", url)
	if s.metrics != nil {
		s.metrics.RecordStoreClear(url)
		s.metrics.SetStoreTransactions(url, 0)
	}
}

// FetchSignature marks signature as fetching, creating its record if
// needed. Dropped when url no longer matches the store.
func (s *Store) FetchSignature(url, signature string) {
	s.mu.Lock()
	next, applied := fetchSignature(s.state, url, signature)
	if applied {
		s.state = next
		s.notifyLocked(next)
	}
	size := len(s.state.Transactions)
	s.mu.Unlock()

	if !applied {
		s.logger.Debug("dropped stale fetch-signature action",
			"url", url,
			"signature", signature,
		)
		if s.metrics != nil {
			s.metrics.RecordStaleDrop("fetch_signature")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.SetStoreTransactions(url, float64(size))
	}
}

// UpdateStatus overwrites the record for signature with a resolved fetch
// status and info. Dropped when url no longer matches the store or when
// no record exists for the signature.
func (s *Store) UpdateStatus(url, signature string, fs FetchStatus, info *Info) {
	s.mu.Lock()
	stale := url != s.state.URL
	next, applied := updateStatus(s.state, url, signature, fs, info)
	if applied {
		s.state = next
		s.notifyLocked(next)
	}
	s.mu.Unlock()

	if applied {
		return
	}
	if stale {
		s.logger.Debug("dropped stale update-status action",
			"url", url,
			"signature", signature,
		)
		if s.metrics != nil {
			s.metrics.RecordStaleDrop("update_status")
		}
		return
	}
	// No record: a fetch was never requested for this signature on the
	// current cluster. Treated as impossible in correct usage.
	s.logger.Warn("dropped update for unknown signature",
		"url", url,
		"signature", signature,
		"fetch_status", fs.String(),
	)
}

// Watch registers an observer for state changes. The returned channel
// receives the state snapshot after every applied transition; slow
// consumers miss intermediate snapshots rather than block dispatch.
// The cancel func unregisters the watcher and closes the channel.
func (s *Store) Watch() (<-chan State, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	s.watchers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if ch, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// notifyLocked pushes a snapshot to every watcher without blocking.
// A watcher whose buffer is full has its stale snapshot replaced so it
// always wakes up with the latest state.
func (s *Store) notifyLocked(snapshot State) {
	for _, ch := range s.watchers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
