package status

import (
	"github.com/gagliardetto/solana-go/rpc"
)

// FixtureKey identifies a hard-coded status entry. Fixtures are scoped to
// a cluster URL so a demo signature on devnet never shadows a real
// mainnet transaction.
type FixtureKey struct {
	URL       string
	Signature string
}

// Fixture signatures used by demos and smoke tests. Fetches for these
// resolve from the table below without touching the network.
const (
	FixtureSuccessSignature = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
	FixtureFailureSignature = "2TgM4N8qCMqLvfR8dxqTQgKygPNzT5KQkN5b5sT7eZPEkdxyLTXGnNQB3j7KG4DPFg5Qez5yNJBQRQ5r7DDnFfjG"
)

var fixtureFailureErr = "InstructionError: [0, {\"Custom\": 1}]"

// DefaultFixtures returns the static fixture table: one deterministic
// success and one deterministic failure, both on devnet.
func DefaultFixtures() map[FixtureKey]Info {
	return map[FixtureKey]Info{
		{URL: rpc.DevNet_RPC, Signature: FixtureSuccessSignature}: {
			Slot:          1,
			Err:           nil,
			Timestamp:     TimestampKnown(1588118256),
			Confirmations: MaxConfirmations(),
		},
		{URL: rpc.DevNet_RPC, Signature: FixtureFailureSignature}: {
			Slot:          1,
			Err:           &fixtureFailureErr,
			Timestamp:     TimestampKnown(1588118256),
			Confirmations: MaxConfirmations(),
		},
	}
}
