package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	solanasvc "github.com/brojonat/sigwatch/service/solana"
)

// Phase is the connection lifecycle of the active cluster endpoint.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseConnected
	PhaseFailure
)

// MarshalJSON encodes the phase as its string name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase from its string name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "connecting":
		*p = PhaseConnecting
	case "connected":
		*p = PhaseConnected
	case "failure":
		*p = PhaseFailure
	default:
		return fmt.Errorf("unknown cluster phase %q", name)
	}
	return nil
}

// String returns the lowercase wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the cluster connection.
type Status struct {
	URL     string `json:"url"`
	Phase   Phase  `json:"phase"`
	Version string `json:"version,omitempty"` // node's solana-core version, set once connected
}

// Observer is notified after every phase transition. Observers run
// synchronously on the goroutine driving the transition; they must not
// block.
type Observer func(Status)

// Manager tracks which cluster endpoint is active and in what phase.
// Entering PhaseConnecting is the signal downstream state (the status
// store) uses to discard records from the previous cluster.
type Manager struct {
	mu        sync.Mutex
	status    Status
	observers []Observer
	clients   *solanasvc.Pool
	logger    *slog.Logger
}

// NewManager creates a manager with no active cluster. Call Connect to
// select one.
func NewManager(clients *solanasvc.Pool, logger *slog.Logger) *Manager {
	return &Manager{
		clients: clients,
		logger:  logger,
	}
}

// OnChange registers an observer for phase transitions. Must be called
// before Connect; registration is not synchronized with in-flight
// transitions.
func (m *Manager) OnChange(fn Observer) {
	m.observers = append(m.observers, fn)
}

// Status returns the current connection snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// URL returns the currently selected endpoint URL.
func (m *Manager) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.URL
}

// Connect switches the active cluster to url. It transitions through
// PhaseConnecting (observers clear dependent state), pings the node, and
// settles in PhaseConnected or PhaseFailure. The returned error is the
// ping error, if any; the manager keeps the URL either way so the caller
// can retry.
func (m *Manager) Connect(ctx context.Context, url string) error {
	m.transition(Status{URL: url, Phase: PhaseConnecting})
	m.logger.Info("connecting to cluster", "url", url)

	version, err := m.clients.Get(url).Ping(ctx)
	if err != nil {
		m.transition(Status{URL: url, Phase: PhaseFailure})
		m.logger.Error("cluster connection failed", "url", url, "error", err)
		return err
	}

	m.transition(Status{URL: url, Phase: PhaseConnected, Version: version})
	m.logger.Info("connected to cluster", "url", url, "version", version)
	return nil
}

func (m *Manager) transition(next Status) {
	m.mu.Lock()
	m.status = next
	observers := m.observers
	m.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}
