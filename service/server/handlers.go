package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/brojonat/sigwatch/service/cluster"
	"github.com/brojonat/sigwatch/service/status"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for a cluster switch request
	maxSignatureLength = 100     // base58 signatures are 87-88 chars, give buffer
	connectTimeout     = 10 * time.Second
)

var (
	// Valid base58 characters (no 0, O, I, l)
	validSignatureRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// handleFetchStatus returns a handler that triggers a status fetch for a
// signature, bound to the currently selected cluster URL.
// POST /api/v1/statuses/{signature}/fetch
func handleFetchStatus(store *status.Store, fetcher *status.Fetcher, clusters *cluster.Manager, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.PathValue("signature")
		if err := validateSignature(signature); err != nil {
			logger.Debug("invalid signature", "signature", signature, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		clusterURL := clusters.URL()
		if clusterURL == "" {
			writeError(w, "no cluster selected", http.StatusConflict)
			return
		}

		// The fetch deliberately outlives the request: there is no
		// cancellation of in-flight fetches, and a fetch that completes
		// after a cluster switch is discarded by the store's URL guard.
		go fetcher.Fetch(context.Background(), clusterURL, signature)

		logger.Debug("fetch requested", "signature", signature, "url", clusterURL)
		writeJSON(w, map[string]string{
			"signature": signature,
			"url":       clusterURL,
		}, http.StatusAccepted)
	})
}

// handleGetStatus returns a handler that retrieves one signature's status
// record.
// GET /api/v1/statuses/{signature}
func handleGetStatus(store *status.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.PathValue("signature")
		if err := validateSignature(signature); err != nil {
			logger.Debug("invalid signature", "signature", signature, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		record, ok := store.Get(signature)
		if !ok {
			writeError(w, "signature not tracked", http.StatusNotFound)
			return
		}
		writeJSON(w, record, http.StatusOK)
	})
}

// handleListStatuses returns a handler that dumps the full status map and
// the cluster URL it belongs to.
// GET /api/v1/statuses
func handleListStatuses(store *status.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.State(), http.StatusOK)
	})
}

// handleGetCluster returns a handler that reports the current cluster
// connection status.
// GET /api/v1/cluster
func handleGetCluster(clusters *cluster.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, clusters.Status(), http.StatusOK)
	})
}

// handleSetCluster returns a handler that switches the active cluster.
// Switching clears the status store (via the manager's observers) before
// the node is pinged.
// PUT /api/v1/cluster
func handleSetCluster(clusters *cluster.Manager, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := validateClusterURL(req.URL); err != nil {
			logger.Debug("invalid cluster URL", "url", req.URL, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), connectTimeout)
		defer cancel()

		if err := clusters.Connect(ctx, req.URL); err != nil {
			logger.Error("cluster switch failed", "url", req.URL, "error", err)
			writeJSON(w, clusters.Status(), http.StatusBadGateway)
			return
		}

		logger.Info("cluster switched", "url", req.URL)
		writeJSON(w, clusters.Status(), http.StatusOK)
	})
}

// validateSignature validates a transaction signature for format and
// length.
func validateSignature(signature string) error {
	if signature == "" {
		return fmt.Errorf("signature is required")
	}
	if len(signature) > maxSignatureLength {
		return fmt.Errorf("signature too long")
	}
	if !validSignatureRegex.MatchString(signature) {
		return fmt.Errorf("signature must be base58")
	}
	return nil
}

// validateClusterURL validates a cluster endpoint URL.
func validateClusterURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
