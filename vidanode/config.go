// Package vidanode wires components A-G into a runnable synchronizer:
// the merkle-backed ledger, the transaction feed, the consensus driver,
// and the root-hash HTTP endpoint (component H, §4.8).
package vidanode

import (
	"fmt"

	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

// Config holds the bootstrap's tunables (§6.6). Every field has a
// default matching the environment constants the node was distilled
// from; embedders/tests override whatever they need.
type Config struct {
	// Name identifies the merkle tree/LevelDB directory under DataDir
	// (§6.4: merkleTree/<name>/).
	Name string

	// DataDir is the root directory for persisted state. Empty means
	// run against an in-memory store (tests, ephemeral embedding).
	DataDir string

	// Port is the HTTP port serving /rootHash and /metrics.
	Port int

	// RPCURL is the base URL of the PWR RPC endpoint the transaction
	// feed polls against.
	RPCURL string

	// VidaID identifies the VIDA whose transactions are subscribed to.
	VidaID uint64

	// StartBlock is the block the feed subscribes from when no
	// last-checked-block watermark is present in the ledger yet.
	StartBlock uint64

	// Peers is the list of host:port peers consulted for root-hash
	// quorum (§4.6). Defaults to a single local peer, matching the
	// original's single-node default.
	Peers []string
}

// DefaultConfig returns the §6.6 defaults.
func DefaultConfig() Config {
	return Config{
		Name:       "vidatree",
		DataDir:    "",
		Port:       8080,
		RPCURL:     "https://pwrrpc.pwrlabs.io/",
		VidaID:     73_746_238,
		StartBlock: 1,
		Peers:      []string{"localhost:8080"},
	}
}

// initialBalance is a (address, balance) seed pair, kept ordered (rather
// than a map) so seeding is deterministic across runs.
type initialBalance struct {
	address string
	amount  uint64
}

// DefaultInitialBalances are the four seed accounts funded on a fresh
// store (§4.8, supplemented from original_source/python/main.py —
// spec.md only requires "a fixed seed map of initial balances" without
// fixing its contents).
var DefaultInitialBalances = []initialBalance{
	{"c767ea1d613eefe0ce1610b18cb047881bafb829", 1_000_000_000_000},
	{"3b4412f57828d1ceb0dbf0d460f7eb1f21fed8b4", 1_000_000_000_000},
	{"9282d39ca205806473f4fde5bac48ca6dfb9d300", 1_000_000_000_000},
	{"e68191b7913e72e6f1759531fbfaa089ff02308a", 1_000_000_000_000},
}

func (b initialBalance) addressBytes() ([]byte, error) {
	addr, err := types.DecodeHex(b.address)
	if err != nil {
		return nil, fmt.Errorf("seed address %q: %w", b.address, err)
	}
	return addr, nil
}
