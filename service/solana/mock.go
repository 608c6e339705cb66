package solana

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MockRPCClient is a mock implementation of RPCClient for testing.
// It's behavior-focused: set what each method should return, and inspect
// Calls afterwards to verify which RPC methods were (not) hit.
type MockRPCClient struct {
	mu    sync.Mutex
	calls []string

	// OnCall, if set, runs before every RPC method returns. Tests use it
	// to mutate state mid-flight (e.g. switch clusters during a fetch).
	OnCall func(method string)

	StatusResult *rpc.GetSignatureStatusesResult
	StatusErr    error

	BlockTime    *solana.UnixTimeSeconds
	BlockTimeErr error

	Version    *rpc.GetVersionResult
	VersionErr error

	AirdropSig solana.Signature
	AirdropErr error

	Blockhash    *rpc.GetLatestBlockhashResult
	BlockhashErr error

	SendSig solana.Signature
	SendErr error

	AccountInfo    *rpc.GetAccountInfoResult
	AccountInfoErr error
}

func (m *MockRPCClient) record(method string) {
	m.mu.Lock()
	m.calls = append(m.calls, method)
	hook := m.OnCall
	m.mu.Unlock()
	if hook != nil {
		hook(method)
	}
}

// Calls returns the RPC method names invoked so far, in order.
func (m *MockRPCClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockRPCClient) GetSignatureStatuses(
	ctx context.Context,
	searchTransactionHistory bool,
	signatures ...solana.Signature,
) (*rpc.GetSignatureStatusesResult, error) {
	m.record("GetSignatureStatuses")
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	return m.StatusResult, nil
}

func (m *MockRPCClient) GetBlockTime(ctx context.Context, block uint64) (*solana.UnixTimeSeconds, error) {
	m.record("GetBlockTime")
	if m.BlockTimeErr != nil {
		return nil, m.BlockTimeErr
	}
	return m.BlockTime, nil
}

func (m *MockRPCClient) GetVersion(ctx context.Context) (*rpc.GetVersionResult, error) {
	m.record("GetVersion")
	if m.VersionErr != nil {
		return nil, m.VersionErr
	}
	return m.Version, nil
}

func (m *MockRPCClient) RequestAirdrop(
	ctx context.Context,
	account solana.PublicKey,
	lamports uint64,
	commitment rpc.CommitmentType,
) (solana.Signature, error) {
	m.record("RequestAirdrop")
	if m.AirdropErr != nil {
		return solana.Signature{}, m.AirdropErr
	}
	return m.AirdropSig, nil
}

func (m *MockRPCClient) GetLatestBlockhash(
	ctx context.Context,
	commitment rpc.CommitmentType,
) (*rpc.GetLatestBlockhashResult, error) {
	m.record("GetLatestBlockhash")
	if m.BlockhashErr != nil {
		return nil, m.BlockhashErr
	}
	return m.Blockhash, nil
}

func (m *MockRPCClient) SendTransactionWithOpts(
	ctx context.Context,
	tx *solana.Transaction,
	opts rpc.TransactionOpts,
) (solana.Signature, error) {
	m.record("SendTransaction")
	if m.SendErr != nil {
		return solana.Signature{}, m.SendErr
	}
	return m.SendSig, nil
}

func (m *MockRPCClient) GetAccountInfo(
	ctx context.Context,
	account solana.PublicKey,
) (*rpc.GetAccountInfoResult, error) {
	m.record("GetAccountInfo")
	if m.AccountInfoErr != nil {
		return nil, m.AccountInfoErr
	}
	return m.AccountInfo, nil
}
