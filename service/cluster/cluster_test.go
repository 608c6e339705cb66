package cluster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/brojonat/sigwatch/service/status"
	solanasvc "github.com/brojonat/sigwatch/service/solana"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(mock *solanasvc.MockRPCClient, url string) *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := solanasvc.NewPool(nil, logger)
	pool.Put(url, solanasvc.NewClient(mock, url, nil, logger))
	return NewManager(pool, logger)
}

func TestConnect_SettlesInConnected(t *testing.T) {
	mock := &solanasvc.MockRPCClient{
		Version: &rpc.GetVersionResult{SolanaCore: "1.18.22"},
	}
	manager := newTestManager(mock, "http://a")

	var phases []Phase
	manager.OnChange(func(st Status) {
		phases = append(phases, st.Phase)
	})

	err := manager.Connect(context.Background(), "http://a")
	require.NoError(t, err)

	st := manager.Status()
	assert.Equal(t, "http://a", st.URL)
	assert.Equal(t, PhaseConnected, st.Phase)
	assert.Equal(t, "1.18.22", st.Version)
	assert.Equal(t, []Phase{PhaseConnecting, PhaseConnected}, phases)
}

func TestConnect_SettlesInFailure(t *testing.T) {
	mock := &solanasvc.MockRPCClient{
		VersionErr: errors.New("connection refused"),
	}
	manager := newTestManager(mock, "http://a")

	var phases []Phase
	manager.OnChange(func(st Status) {
		phases = append(phases, st.Phase)
	})

	err := manager.Connect(context.Background(), "http://a")
	assert.Error(t, err)

	st := manager.Status()
	assert.Equal(t, "http://a", st.URL)
	assert.Equal(t, PhaseFailure, st.Phase)
	assert.Equal(t, []Phase{PhaseConnecting, PhaseFailure}, phases)
}

func TestConnect_ClearsStoreOnConnecting(t *testing.T) {
	mock := &solanasvc.MockRPCClient{
		Version: &rpc.GetVersionResult{SolanaCore: "1.18.22"},
	}
	manager := newTestManager(mock, "http://b")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := status.NewStore("http://a", nil, logger)
	store.FetchSignature("http://a", "SIG1")

	// The same wiring cmd/server uses: connecting discards the previous
	// cluster's records.
	manager.OnChange(func(st Status) {
		if st.Phase == PhaseConnecting {
			store.Clear(st.URL)
		}
	})

	require.NoError(t, manager.Connect(context.Background(), "http://b"))

	state := store.State()
	assert.Equal(t, "http://b", state.URL)
	assert.Empty(t, state.Transactions)
}

func TestPhaseJSON_RoundTrip(t *testing.T) {
	for _, phase := range []Phase{PhaseConnecting, PhaseConnected, PhaseFailure} {
		data, err := phase.MarshalJSON()
		require.NoError(t, err)

		var decoded Phase
		require.NoError(t, decoded.UnmarshalJSON(data))
		assert.Equal(t, phase, decoded)
	}
}
