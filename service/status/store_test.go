package status

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(url string) *Store {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(url, nil, logger)
}

func TestClear_ReplacesStateRegardlessOfURL(t *testing.T) {
	store := newTestStore("http://a")
	store.FetchSignature("http://a", "SIG1")

	// Clear always applies, even with a different URL.
	store.Clear("http://b")

	state := store.State()
	assert.Equal(t, "http://b", state.URL)
	assert.Empty(t, state.Transactions)
}

func TestFetchSignature_CreatesFetchingRecord(t *testing.T) {
	store := newTestStore("http://a")

	store.FetchSignature("http://a", "SIG1")

	record, ok := store.Get("SIG1")
	require.True(t, ok)
	assert.Equal(t, "SIG1", record.Signature)
	assert.Equal(t, FetchStatusFetching, record.FetchStatus)
	assert.Nil(t, record.Info)
}

func TestFetchSignature_ResetsExistingRecord(t *testing.T) {
	store := newTestStore("http://a")
	store.FetchSignature("http://a", "SIG1")
	store.UpdateStatus("http://a", "SIG1", FetchStatusFetched, &Info{
		Slot:          5,
		Timestamp:     TimestampKnown(1000),
		Confirmations: MaxConfirmations(),
	})

	// A second fetch resets the record back to Fetching and clears info.
	store.FetchSignature("http://a", "SIG1")

	record, ok := store.Get("SIG1")
	require.True(t, ok)
	assert.Equal(t, "SIG1", record.Signature)
	assert.Equal(t, FetchStatusFetching, record.FetchStatus)
	assert.Nil(t, record.Info)
}

func TestFetchSignature_StaleURLIsDropped(t *testing.T) {
	store := newTestStore("http://a")

	store.FetchSignature("http://b", "SIG1")

	_, ok := store.Get("SIG1")
	assert.False(t, ok)
	assert.Empty(t, store.State().Transactions)
}

func TestUpdateStatus_OverwritesExistingRecord(t *testing.T) {
	store := newTestStore("http://a")
	store.FetchSignature("http://a", "SIG1")

	info := &Info{
		Slot:          5,
		Err:           nil,
		Timestamp:     TimestampKnown(1000),
		Confirmations: MaxConfirmations(),
	}
	store.UpdateStatus("http://a", "SIG1", FetchStatusFetched, info)

	record, ok := store.Get("SIG1")
	require.True(t, ok)
	assert.Equal(t, "SIG1", record.Signature)
	assert.Equal(t, FetchStatusFetched, record.FetchStatus)
	require.NotNil(t, record.Info)
	assert.Equal(t, uint64(5), record.Info.Slot)
	unix, known := record.Info.Timestamp.Known()
	assert.True(t, known)
	assert.Equal(t, int64(1000), unix)
	assert.True(t, record.Info.Confirmations.Finalized())
}

func TestUpdateStatus_UnknownSignatureIsDropped(t *testing.T) {
	store := newTestStore("http://a")

	// UpdateStatus never creates a record; only FetchSignature does.
	store.UpdateStatus("http://a", "SIG1", FetchStatusFetched, &Info{Slot: 5})

	_, ok := store.Get("SIG1")
	assert.False(t, ok)
	assert.Empty(t, store.State().Transactions)
}

func TestUpdateStatus_StaleURLIsDropped(t *testing.T) {
	store := newTestStore("http://a")
	store.FetchSignature("http://a", "SIG1")

	store.UpdateStatus("http://b", "SIG1", FetchStatusFetched, &Info{Slot: 5})

	record, ok := store.Get("SIG1")
	require.True(t, ok)
	assert.Equal(t, FetchStatusFetching, record.FetchStatus)
	assert.Nil(t, record.Info)
}

func TestUpdateStatus_CanClearInfo(t *testing.T) {
	store := newTestStore("http://a")
	store.FetchSignature("http://a", "SIG1")
	store.UpdateStatus("http://a", "SIG1", FetchStatusFetched, &Info{Slot: 5})

	store.UpdateStatus("http://a", "SIG1", FetchStatusFetchFailed, nil)

	record, ok := store.Get("SIG1")
	require.True(t, ok)
	assert.Equal(t, FetchStatusFetchFailed, record.FetchStatus)
	assert.Nil(t, record.Info)
}

func TestSnapshots_AreImmutable(t *testing.T) {
	store := newTestStore("http://a")
	store.FetchSignature("http://a", "SIG1")
	before := store.State()

	store.FetchSignature("http://a", "SIG2")
	store.UpdateStatus("http://a", "SIG1", FetchStatusFetched, &Info{Slot: 9})

	// The earlier snapshot still shows the world as it was.
	assert.Len(t, before.Transactions, 1)
	assert.Equal(t, FetchStatusFetching, before.Transactions["SIG1"].FetchStatus)

	after := store.State()
	assert.Len(t, after.Transactions, 2)
	assert.Equal(t, FetchStatusFetched, after.Transactions["SIG1"].FetchStatus)
}

func TestWatch_ReceivesLatestSnapshot(t *testing.T) {
	store := newTestStore("http://a")
	ch, cancel := store.Watch()
	defer cancel()

	store.FetchSignature("http://a", "SIG1")

	snapshot := <-ch
	assert.Equal(t, "http://a", snapshot.URL)
	assert.Contains(t, snapshot.Transactions, "SIG1")

	// A burst of transitions never blocks dispatch; the watcher sees the
	// newest state when it next reads.
	for i := 0; i < 10; i++ {
		store.FetchSignature("http://a", "SIG2")
	}
	store.UpdateStatus("http://a", "SIG2", FetchStatusFetched, nil)

	var last State
	for {
		select {
		case s := <-ch:
			last = s
			continue
		default:
		}
		break
	}
	assert.Equal(t, FetchStatusFetched, last.Transactions["SIG2"].FetchStatus)
}

func TestEndToEnd_FetchThenUpdate(t *testing.T) {
	store := newTestStore("")
	store.Clear("http://a")

	store.FetchSignature("http://a", "SIG1")
	record, ok := store.Get("SIG1")
	require.True(t, ok)
	assert.Equal(t, FetchStatusFetching, record.FetchStatus)

	info := &Info{
		Slot:          5,
		Err:           nil,
		Timestamp:     TimestampKnown(1000),
		Confirmations: MaxConfirmations(),
	}
	store.UpdateStatus("http://a", "SIG1", FetchStatusFetched, info)

	record, ok = store.Get("SIG1")
	require.True(t, ok)
	assert.Equal(t, TransactionStatus{
		Signature:   "SIG1",
		FetchStatus: FetchStatusFetched,
		Info:        info,
	}, record)
}

func TestEndToEnd_StaleUpdateLeavesStateUnchanged(t *testing.T) {
	store := newTestStore("")
	store.Clear("http://a")
	store.FetchSignature("http://a", "SIG1")

	store.UpdateStatus("http://b", "SIG1", FetchStatusFetched, &Info{
		Slot:          5,
		Timestamp:     TimestampKnown(1000),
		Confirmations: MaxConfirmations(),
	})

	state := store.State()
	assert.Equal(t, "http://a", state.URL)
	record := state.Transactions["SIG1"]
	assert.Equal(t, FetchStatusFetching, record.FetchStatus)
	assert.Nil(t, record.Info)
}
