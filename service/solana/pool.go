package solana

import (
	"log/slog"
	"sync"

	"github.com/brojonat/sigwatch/service/metrics"
)

// Pool hands out one Client per RPC endpoint. A fetch is bound to the
// endpoint it was requested against, so a fetch started before a cluster
// switch keeps using its original client even after the pool has handed
// out clients for the new endpoint.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPool creates an empty client pool. If m is nil, the pooled clients
// record no metrics.
func NewPool(m *metrics.Metrics, logger *slog.Logger) *Pool {
	return &Pool{
		clients: make(map[string]*Client),
		metrics: m,
		logger:  logger,
	}
}

// Get returns the client for an endpoint, dialing it on first use.
func (p *Pool) Get(endpoint string) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[endpoint]; ok {
		return c
	}
	c := NewClient(NewRPCClient(endpoint), endpoint, p.metrics, p.logger)
	p.clients[endpoint] = c
	p.logger.Debug("dialed solana RPC endpoint", "endpoint", endpoint)
	return c
}

// Put installs a pre-built client for an endpoint. Tests use this to
// inject clients backed by mock RPC implementations.
func (p *Pool) Put(endpoint string, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[endpoint] = c
}
