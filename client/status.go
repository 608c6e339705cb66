// Package client is the HTTP client for the sigwatch status service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brojonat/sigwatch/service/cluster"
	"github.com/brojonat/sigwatch/service/status"
)

// ErrNotTracked is returned by GetStatus when the server has no record
// for a signature (no fetch was ever requested on the current cluster).
var ErrNotTracked = errors.New("signature not tracked")

// Client is the HTTP client for the sigwatch status service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new status service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Fetch tells the server to resolve a signature's status against the
// current cluster.
func (c *Client) Fetch(ctx context.Context, signature string) error {
	u := fmt.Sprintf("%s/api/v1/statuses/%s/fetch", c.baseURL, url.PathEscape(signature))
	req, err := http.NewRequestWithContext(ctx, "POST", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("fetch requested", "signature", signature)
	return nil
}

// GetStatus retrieves the status record for a signature. Returns
// ErrNotTracked when the server holds no record for it.
func (c *Client) GetStatus(ctx context.Context, signature string) (*status.TransactionStatus, error) {
	u := fmt.Sprintf("%s/api/v1/statuses/%s", c.baseURL, url.PathEscape(signature))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotTracked
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var record status.TransactionStatus
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &record, nil
}

// ListStatuses retrieves the full status map and the cluster URL it
// belongs to.
func (c *Client) ListStatuses(ctx context.Context) (*status.State, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/statuses", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var state status.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &state, nil
}

// GetCluster retrieves the server's current cluster connection status.
func (c *Client) GetCluster(ctx context.Context) (*cluster.Status, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/cluster", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var st cluster.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &st, nil
}

// SetCluster switches the server's active cluster. The server clears its
// status map before connecting to the new endpoint.
func (c *Client) SetCluster(ctx context.Context, clusterURL string) (*cluster.Status, error) {
	body, err := json.Marshal(map[string]string{"url": clusterURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", c.baseURL+"/api/v1/cluster", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// A failed connect still returns the resulting status alongside the
	// 502, so decode either way.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadGateway {
		return nil, c.parseErrorResponse(resp)
	}

	var st cluster.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode == http.StatusBadGateway {
		return &st, fmt.Errorf("cluster connect failed (phase %s)", st.Phase)
	}

	c.logger.Debug("cluster switched", "url", clusterURL)
	return &st, nil
}

// Await triggers a fetch for a signature and polls until its record
// reaches a terminal state or ctx expires.
func (c *Client) Await(ctx context.Context, signature string, pollInterval time.Duration) (*status.TransactionStatus, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	if err := c.Fetch(ctx, signature); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			record, err := c.GetStatus(ctx, signature)
			if errors.Is(err, ErrNotTracked) {
				// The store was cleared by a cluster switch mid-wait.
				continue
			}
			if err != nil {
				return nil, err
			}
			if record.FetchStatus.Terminal() {
				return record, nil
			}
		}
	}
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// parseErrorResponse extracts the error message from a JSON error body.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, body.Error)
}
