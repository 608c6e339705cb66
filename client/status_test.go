package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brojonat/sigwatch/service/cluster"
	"github.com/brojonat/sigwatch/service/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSig = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/statuses/"+testSig+"/fetch", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"signature": testSig})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	assert.NoError(t, c.Fetch(context.Background(), testSig))
}

func TestFetch_NoClusterSelected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "no cluster selected"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	err := c.Fetch(context.Background(), testSig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cluster selected")
}

func TestGetStatus(t *testing.T) {
	record := status.TransactionStatus{
		Signature:   testSig,
		FetchStatus: status.FetchStatusFetched,
		Info: &status.Info{
			Slot:          72,
			Timestamp:     status.TimestampKnown(1000),
			Confirmations: status.MaxConfirmations(),
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/statuses/"+testSig, r.URL.Path)
		json.NewEncoder(w).Encode(record)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	got, err := c.GetStatus(context.Background(), testSig)
	require.NoError(t, err)
	assert.Equal(t, &record, got)
}

func TestGetStatus_NotTracked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "signature not tracked"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.GetStatus(context.Background(), testSig)
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestListStatuses(t *testing.T) {
	state := status.State{
		URL: "http://rpc.test",
		Transactions: map[string]status.TransactionStatus{
			testSig: {Signature: testSig, FetchStatus: status.FetchStatusFetching},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/statuses", r.URL.Path)
		json.NewEncoder(w).Encode(state)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	got, err := c.ListStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &state, got)
}

func TestSetCluster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		var req struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(cluster.Status{
			URL:     req.URL,
			Phase:   cluster.PhaseConnected,
			Version: "1.18.22",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	st, err := c.SetCluster(context.Background(), "http://rpc.test")
	require.NoError(t, err)
	assert.Equal(t, cluster.PhaseConnected, st.Phase)
	assert.Equal(t, "http://rpc.test", st.URL)
}

func TestSetCluster_ConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(cluster.Status{
			URL:   "http://rpc.test",
			Phase: cluster.PhaseFailure,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	st, err := c.SetCluster(context.Background(), "http://rpc.test")
	// The resulting status comes back alongside the error.
	require.Error(t, err)
	require.NotNil(t, st)
	assert.Equal(t, cluster.PhaseFailure, st.Phase)
}

func TestAwait_PollsUntilTerminal(t *testing.T) {
	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"signature": testSig})
			return
		}
		fs := status.FetchStatusFetching
		if polls.Add(1) >= 3 {
			fs = status.FetchStatusFetched
		}
		json.NewEncoder(w).Encode(status.TransactionStatus{
			Signature:   testSig,
			FetchStatus: fs,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record, err := c.Await(ctx, testSig, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, status.FetchStatusFetched, record.FetchStatus)
	assert.GreaterOrEqual(t, polls.Load(), int64(3))
}

func TestAwait_ContextExpires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"signature": testSig})
			return
		}
		json.NewEncoder(w).Encode(status.TransactionStatus{
			Signature:   testSig,
			FetchStatus: status.FetchStatusFetching,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Await(ctx, testSig, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	assert.NoError(t, c.Health(context.Background()))

	bad := NewClient(srv.URL+"/missing", nil, nil)
	assert.Error(t, bad.Health(context.Background()))
}
