package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/sigwatch/service/status"
	solanasvc "github.com/brojonat/sigwatch/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Seeder plants a known pair of demo transactions on a freshly connected
// cluster: an airdrop expected to succeed and a self-transfer expected to
// fail on chain. Both signatures are handed to the status fetcher so the
// store always has one success and one failure to show. Everything here
// is best-effort; a cluster without a faucet just yields no seeds.
type Seeder struct {
	clients         *solanasvc.Pool
	fetcher         *status.Fetcher
	key             solanago.PrivateKey
	airdropLamports uint64
	logger          *slog.Logger
}

// New creates a seeder. privateKeyBase58 fixes the signing key for
// deterministic demo accounts; when empty a fresh key is generated.
func New(
	clients *solanasvc.Pool,
	fetcher *status.Fetcher,
	privateKeyBase58 string,
	airdropLamports uint64,
	logger *slog.Logger,
) (*Seeder, error) {
	var key solanago.PrivateKey
	var err error
	if privateKeyBase58 != "" {
		key, err = solanago.PrivateKeyFromBase58(privateKeyBase58)
		if err != nil {
			return nil, fmt.Errorf("invalid seed private key: %w", err)
		}
	} else {
		key, err = solanago.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate seed key: %w", err)
		}
	}

	return &Seeder{
		clients:         clients,
		fetcher:         fetcher,
		key:             key,
		airdropLamports: airdropLamports,
		logger:          logger,
	}, nil
}

// PublicKey returns the seeder's account public key.
func (s *Seeder) PublicKey() solanago.PublicKey {
	return s.key.PublicKey()
}

// Seed runs the seeding routine against the cluster at url. Failures are
// logged and swallowed; the application continues without the seeded
// transactions. Callers run the whole routine in the background; the
// individual steps here are sequential.
func (s *Seeder) Seed(ctx context.Context, url string) {
	client := s.clients.Get(url)
	account := s.key.PublicKey()

	// Warm the node-side account state for the demo account. Result is
	// discarded.
	client.FetchAccountInfo(ctx, account)

	// Expected-success transaction: a faucet grant.
	airdropSig, err := client.RequestAirdrop(ctx, account, s.airdropLamports)
	if err != nil {
		s.logger.Error("seed airdrop failed",
			"url", url,
			"account", account.String(),
			"error", err,
		)
	} else {
		s.fetcher.Fetch(ctx, url, airdropSig.String())
	}

	// Expected-failure transaction: a self-transfer of more lamports than
	// the account holds (the airdrop above has not finalized yet).
	// Preflight is skipped so the transaction lands on chain and fails
	// there instead of being rejected locally.
	failureSig, err := s.submitFailingTransfer(ctx, client, account)
	if err != nil {
		s.logger.Error("seed transfer failed to submit",
			"url", url,
			"account", account.String(),
			"error", err,
		)
		return
	}
	s.fetcher.Fetch(ctx, url, failureSig.String())

	s.logger.Info("seeded demo transactions",
		"url", url,
		"account", account.String(),
		"success_signature", airdropSig.String(),
		"failure_signature", failureSig.String(),
	)
}

func (s *Seeder) submitFailingTransfer(
	ctx context.Context,
	client *solanasvc.Client,
	account solanago.PublicKey,
) (solanago.Signature, error) {
	blockhash, err := client.LatestBlockhash(ctx)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{
			system.NewTransferInstruction(
				s.airdropLamports*2,
				account,
				account,
			).Build(),
		},
		blockhash,
		solanago.TransactionPayer(account),
	)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(account) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := client.SendTransaction(ctx, tx, true)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}
