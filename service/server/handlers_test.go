package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brojonat/sigwatch/service/cluster"
	"github.com/brojonat/sigwatch/service/status"
	solanasvc "github.com/brojonat/sigwatch/service/solana"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testURL = "http://rpc.test"
	testSig = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
)

type testHarness struct {
	mux      *http.ServeMux
	store    *status.Store
	clusters *cluster.Manager
}

// newTestHarness wires the same route table Start builds, against a mock
// RPC node, without SSE or metrics.
func newTestHarness(t *testing.T, mock *solanasvc.MockRPCClient) *testHarness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pool := solanasvc.NewPool(nil, logger)
	pool.Put(testURL, solanasvc.NewClient(mock, testURL, nil, logger))

	store := status.NewStore("", nil, logger)
	fetcher := status.NewFetcher(store, pool, nil, nil, nil, logger)
	clusters := cluster.NewManager(pool, logger)
	clusters.OnChange(func(st cluster.Status) {
		if st.Phase == cluster.PhaseConnecting {
			store.Clear(st.URL)
		}
	})

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/statuses/{signature}/fetch",
		handleFetchStatus(store, fetcher, clusters, logger))
	mux.Handle("GET /api/v1/statuses/{signature}",
		handleGetStatus(store, logger))
	mux.Handle("GET /api/v1/statuses", handleListStatuses(store))
	mux.Handle("GET /api/v1/cluster", handleGetCluster(clusters))
	mux.Handle("PUT /api/v1/cluster", handleSetCluster(clusters, logger))

	return &testHarness{mux: mux, store: store, clusters: clusters}
}

func (h *testHarness) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func connectedMock() *solanasvc.MockRPCClient {
	return &solanasvc.MockRPCClient{
		Version: &rpc.GetVersionResult{SolanaCore: "1.18.22"},
		StatusResult: &rpc.GetSignatureStatusesResult{
			Value: []*rpc.SignatureStatusesResult{nil},
		},
	}
}

func TestHandleFetchStatus_Accepted(t *testing.T) {
	h := newTestHarness(t, connectedMock())
	require.NoError(t, h.clusters.Connect(context.Background(), testURL))

	rec := h.do("POST", "/api/v1/statuses/"+testSig+"/fetch", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), testSig)

	// The fetch runs detached from the request.
	require.Eventually(t, func() bool {
		record, ok := h.store.Get(testSig)
		return ok && record.FetchStatus.Terminal()
	}, time.Second, 5*time.Millisecond)
}

func TestHandleFetchStatus_NoClusterSelected(t *testing.T) {
	h := newTestHarness(t, connectedMock())

	rec := h.do("POST", "/api/v1/statuses/"+testSig+"/fetch", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no cluster selected")
}

func TestHandleFetchStatus_InvalidSignature(t *testing.T) {
	h := newTestHarness(t, connectedMock())
	require.NoError(t, h.clusters.Connect(context.Background(), testURL))

	// "0" is not a base58 character.
	rec := h.do("POST", "/api/v1/statuses/0000/fetch", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetStatus(t *testing.T) {
	h := newTestHarness(t, connectedMock())
	require.NoError(t, h.clusters.Connect(context.Background(), testURL))

	rec := h.do("GET", "/api/v1/statuses/"+testSig, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "signature not tracked")

	h.store.FetchSignature(testURL, testSig)

	rec = h.do("GET", "/api/v1/statuses/"+testSig, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fetching"`)
}

func TestHandleListStatuses(t *testing.T) {
	h := newTestHarness(t, connectedMock())
	require.NoError(t, h.clusters.Connect(context.Background(), testURL))
	h.store.FetchSignature(testURL, testSig)

	rec := h.do("GET", "/api/v1/statuses", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), testURL)
	assert.Contains(t, rec.Body.String(), testSig)
}

func TestHandleSetCluster(t *testing.T) {
	h := newTestHarness(t, connectedMock())

	rec := h.do("PUT", "/api/v1/cluster", `{"url":"`+testURL+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected"`)
	assert.Equal(t, testURL, h.clusters.URL())
}

func TestHandleSetCluster_InvalidURL(t *testing.T) {
	h := newTestHarness(t, connectedMock())

	for _, body := range []string{
		`{"url":""}`,
		`{"url":"ftp://example.com"}`,
		`{"url":"http://"}`,
		`not json`,
	} {
		rec := h.do("PUT", "/api/v1/cluster", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestHandleSetCluster_PingFailure(t *testing.T) {
	mock := connectedMock()
	mock.VersionErr = errors.New("connection refused")
	h := newTestHarness(t, mock)

	rec := h.do("PUT", "/api/v1/cluster", `{"url":"`+testURL+`"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failure"`)
}

func TestHandleSetCluster_SwitchClearsStore(t *testing.T) {
	h := newTestHarness(t, connectedMock())
	require.NoError(t, h.clusters.Connect(context.Background(), testURL))
	h.store.FetchSignature(testURL, testSig)

	rec := h.do("PUT", "/api/v1/cluster", `{"url":"`+testURL+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	state := h.store.State()
	assert.Empty(t, state.Transactions)
}

func TestHandleGetCluster(t *testing.T) {
	h := newTestHarness(t, connectedMock())
	require.NoError(t, h.clusters.Connect(context.Background(), testURL))

	rec := h.do("GET", "/api/v1/cluster", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected"`)
	assert.Contains(t, rec.Body.String(), testURL)
}

func TestValidateSignature(t *testing.T) {
	assert.NoError(t, validateSignature(testSig))
	assert.Error(t, validateSignature(""))
	assert.Error(t, validateSignature("has spaces"))
	assert.Error(t, validateSignature(strings.Repeat("1", 101)))
}
