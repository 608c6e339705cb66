package solana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/sigwatch/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real
// Solana nodes.
type RPCClient interface {
	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		signatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)

	GetBlockTime(ctx context.Context, block uint64) (*solana.UnixTimeSeconds, error)

	GetVersion(ctx context.Context) (*rpc.GetVersionResult, error)

	RequestAirdrop(
		ctx context.Context,
		account solana.PublicKey,
		lamports uint64,
		commitment rpc.CommitmentType,
	) (solana.Signature, error)

	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)

	SendTransactionWithOpts(
		ctx context.Context,
		tx *solana.Transaction,
		opts rpc.TransactionOpts,
	) (solana.Signature, error)

	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// Client provides domain-level methods over the raw Solana RPC surface.
// It wraps every call with logging and metrics; the RPC errors themselves
// are returned unwrapped for callers to classify.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics labels
}

// NewClient creates a new Solana client. The endpoint parameter is used
// for metrics labeling. If m is nil, no metrics are recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// Endpoint returns the endpoint identifier the client was built with.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SignatureStatus is the domain model of a signature status response,
// independent of the RPC response format.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64 // nil when the node no longer tracks a count (finalized)
	Err                *string // nil when the transaction succeeded
	ConfirmationStatus string  // processed, confirmed, or finalized; may be empty
}

// GetSignatureStatus looks up the status of a single signature.
// A (nil, nil) return means the node knows of no such transaction, which
// callers treat as a successful "not found" rather than an error.
func (c *Client) GetSignatureStatus(
	ctx context.Context,
	signature solana.Signature,
	searchHistory bool,
) (*SignatureStatus, error) {
	start := time.Now()
	out, err := c.rpc.GetSignatureStatuses(ctx, searchHistory, signature)
	c.record("GetSignatureStatuses", err, time.Since(start).Seconds())
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get signature status",
			"signature", signature.String(),
			"error", err,
		)
		return nil, err
	}

	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		c.logger.DebugContext(ctx, "signature not found",
			"signature", signature.String(),
			"search_history", searchHistory,
		)
		return nil, nil
	}

	raw := out.Value[0]
	status := &SignatureStatus{
		Slot:               raw.Slot,
		Confirmations:      raw.Confirmations,
		ConfirmationStatus: string(raw.ConfirmationStatus),
	}
	if raw.Err != nil {
		msg := fmt.Sprintf("%v", raw.Err)
		status.Err = &msg
	}

	c.logger.DebugContext(ctx, "fetched signature status",
		"signature", signature.String(),
		"slot", status.Slot,
		"confirmation_status", status.ConfirmationStatus,
	)
	return status, nil
}

// GetBlockTime returns the estimated production time of a slot as epoch
// seconds. A node that has no timestamp for the slot is reported as an
// error; callers degrade to an "unavailable" timestamp.
func (c *Client) GetBlockTime(ctx context.Context, slot uint64) (int64, error) {
	start := time.Now()
	out, err := c.rpc.GetBlockTime(ctx, slot)
	c.record("GetBlockTime", err, time.Since(start).Seconds())
	if err != nil {
		return 0, err
	}
	if out == nil {
		return 0, fmt.Errorf("no block time available for slot %d", slot)
	}
	return int64(*out), nil
}

// Ping queries the node version to verify the endpoint is reachable.
// Returns the node's solana-core version string.
func (c *Client) Ping(ctx context.Context) (string, error) {
	start := time.Now()
	out, err := c.rpc.GetVersion(ctx)
	c.record("GetVersion", err, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return out.SolanaCore, nil
}

// RequestAirdrop requests lamports for an account and returns the funding
// transaction's signature.
func (c *Client) RequestAirdrop(
	ctx context.Context,
	account solana.PublicKey,
	lamports uint64,
) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.RequestAirdrop(ctx, account, lamports, rpc.CommitmentConfirmed)
	c.record("RequestAirdrop", err, time.Since(start).Seconds())
	if err != nil {
		c.logger.ErrorContext(ctx, "airdrop request failed",
			"account", account.String(),
			"lamports", lamports,
			"error", err,
		)
		return solana.Signature{}, err
	}
	c.logger.InfoContext(ctx, "airdrop requested",
		"account", account.String(),
		"lamports", lamports,
		"signature", sig.String(),
	)
	return sig, nil
}

// LatestBlockhash returns a recent blockhash for transaction assembly.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	start := time.Now()
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	c.record("GetLatestBlockhash", err, time.Since(start).Seconds())
	if err != nil {
		return solana.Hash{}, err
	}
	return out.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction. With skipPreflight the
// node accepts the transaction without simulating it first, so a
// transaction that is known to be invalid still lands on chain and fails
// there.
func (c *Client) SendTransaction(
	ctx context.Context,
	tx *solana.Transaction,
	skipPreflight bool,
) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       skipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	c.record("SendTransaction", err, time.Since(start).Seconds())
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

// FetchAccountInfo performs a fire-and-forget account lookup. The result
// is discarded; this exists to warm the node-side account cache for demo
// accounts, so failures are only logged.
func (c *Client) FetchAccountInfo(ctx context.Context, account solana.PublicKey) {
	start := time.Now()
	_, err := c.rpc.GetAccountInfo(ctx, account)
	c.record("GetAccountInfo", err, time.Since(start).Seconds())
	if err != nil {
		c.logger.DebugContext(ctx, "account info fetch failed",
			"account", account.String(),
			"error", err,
		)
	}
}

// record emits RPC call metrics with the standard success/error labels.
func (c *Client) record(method string, err error, seconds float64) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, seconds)
}
