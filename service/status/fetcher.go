package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/brojonat/sigwatch/service/metrics"
	natspkg "github.com/brojonat/sigwatch/service/nats"
	solanasvc "github.com/brojonat/sigwatch/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// Fetcher resolves signature statuses and drives the store through the
// Fetching -> terminal lifecycle. Each Fetch call is independent and
// touches shared state only through the store's atomic transitions, so
// concurrent fetches for different signatures are safe. Fetches for the
// same signature are not deduplicated: whichever finishes last writes
// last, regardless of start order. Known limitation, kept on purpose.
type Fetcher struct {
	store    *Store
	clients  *solanasvc.Pool
	fixtures map[FixtureKey]Info
	events   natspkg.Publisher // optional; nil disables eventing
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewFetcher creates a fetcher. fixtures may be nil to disable the static
// cache; events and m may be nil to disable NATS publishing and metrics.
func NewFetcher(
	store *Store,
	clients *solanasvc.Pool,
	fixtures map[FixtureKey]Info,
	events natspkg.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Fetcher {
	return &Fetcher{
		store:    store,
		clients:  clients,
		fixtures: fixtures,
		events:   events,
		logger:   logger,
		metrics:  m,
	}
}

// Fetch resolves the status of signature against the cluster at url and
// records the outcome in the store. It blocks until the terminal update
// has been dispatched; callers that want asynchrony run it in a
// goroutine. Errors never escape: every failure path terminates in a
// dispatched transition or a dropped no-op.
func (f *Fetcher) Fetch(ctx context.Context, url, signature string) {
	f.store.FetchSignature(url, signature)

	fs, info, outcome := f.resolve(ctx, url, signature)

	f.store.UpdateStatus(url, signature, fs, info)

	if f.metrics != nil {
		f.metrics.RecordStatusFetch(outcome, url)
	}
	f.publish(ctx, url, signature, fs, info)
}

// resolve determines the terminal status for a signature. The returned
// outcome is a metrics label: fixture, fetched, not_found, or
// fetch_failed.
func (f *Fetcher) resolve(ctx context.Context, url, signature string) (FetchStatus, *Info, string) {
	// Fixture hit short-circuits before any network access so demo
	// signatures stay deterministic.
	if cached, ok := f.fixtures[FixtureKey{URL: url, Signature: signature}]; ok {
		f.logger.DebugContext(ctx, "status resolved from fixture cache",
			"url", url,
			"signature", signature,
		)
		if f.metrics != nil {
			f.metrics.RecordFixtureHit(url)
		}
		info := cached
		return FetchStatusFetched, &info, "fixture"
	}

	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		f.logger.ErrorContext(ctx, "invalid signature",
			"signature", signature,
			"error", err,
		)
		return FetchStatusFetchFailed, nil, "fetch_failed"
	}

	client := f.clients.Get(url)
	st, err := client.GetSignatureStatus(ctx, sig, true)
	if err != nil {
		// Primary lookup failure surfaces as FetchFailed; the error is
		// already logged by the client and is not re-thrown.
		return FetchStatusFetchFailed, nil, "fetch_failed"
	}

	if st == nil {
		// Transaction not found is not an error.
		return FetchStatusFetched, nil, "not_found"
	}

	info := &Info{
		Slot: st.Slot,
		Err:  st.Err,
	}

	// The node stops tracking a count once the transaction is finalized.
	if st.Confirmations != nil {
		info.Confirmations = ConfirmationCount(*st.Confirmations)
	} else {
		info.Confirmations = MaxConfirmations()
	}

	// Secondary block-time lookup. A failure degrades the timestamp to
	// the unavailable sentinel; slot and confirmations stay populated.
	blockTime, err := client.GetBlockTime(ctx, st.Slot)
	if err != nil {
		f.logger.WarnContext(ctx, "block time lookup failed, timestamp unavailable",
			"signature", signature,
			"slot", st.Slot,
			"error", err,
		)
		if f.metrics != nil {
			f.metrics.RecordBlockTimeFallback(url)
		}
		info.Timestamp = TimestampUnavailable()
	} else {
		info.Timestamp = TimestampKnown(blockTime)
	}

	return FetchStatusFetched, info, "fetched"
}

// publish emits the terminal transition to NATS when eventing is
// configured. Publish failures are logged and swallowed; eventing is
// best-effort.
func (f *Fetcher) publish(ctx context.Context, url, signature string, fs FetchStatus, info *Info) {
	if f.events == nil {
		return
	}

	event := &natspkg.StatusEvent{
		Signature:   signature,
		URL:         url,
		FetchStatus: fs.String(),
		PublishedAt: time.Now().UTC(),
	}
	if info != nil {
		event.Slot = info.Slot
		event.Err = info.Err
		if unix, ok := info.Timestamp.Known(); ok {
			event.Timestamp = &unix
		}
		if count, ok := info.Confirmations.Count(); ok {
			event.Confirmations = &count
		} else {
			event.Finalized = true
		}
	}

	if err := f.events.PublishStatus(ctx, event); err != nil {
		f.logger.ErrorContext(ctx, "failed to publish status event",
			"signature", signature,
			"error", err,
		)
	}
}
