// Package ledger is a thin semantic layer over the Merkle store
// (component D): account balances as big-endian unsigned integers,
// transfer semantics, the last-checked-block watermark, and the
// block-number-to-root-hash index.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/keep-pwr-strong/pwr-stateful-vida/merkle"
	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

// ErrDatabaseError wraps any failure surfaced by the underlying Merkle
// store.
var ErrDatabaseError = errors.New("ledger: database error")

const (
	lastCheckedBlockKey = "lastCheckedBlock"
	blockRootHashPrefix = "blockRootHash_"
)

// Ledger wraps a *merkle.Store with the balance and block-index
// semantics consumed by the transaction processor and consensus driver.
type Ledger struct {
	tree *merkle.Store
}

// New wraps tree as a Ledger.
func New(tree *merkle.Store) *Ledger {
	return &Ledger{tree: tree}
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrDatabaseError, err)
}

// GetBalance returns the balance of addr, or 0 if absent.
func (l *Ledger) GetBalance(addr []byte) (*uint256.Int, error) {
	data, ok, err := l.tree.Get(addr)
	if err != nil {
		return nil, wrapErr(err)
	}
	if !ok || len(data) == 0 {
		return uint256.NewInt(0), nil
	}
	return uint256.NewInt(0).SetBytes(data), nil
}

// SetBalance sets addr's balance to x, encoded as a minimal-length
// big-endian unsigned integer (0 encodes as the single byte 0x00).
func (l *Ledger) SetBalance(addr []byte, x *uint256.Int) error {
	b := x.Bytes()
	if len(b) == 0 {
		b = []byte{0x00}
	}
	if err := l.tree.Put(addr, b); err != nil {
		return wrapErr(err)
	}
	return nil
}

// Transfer moves amt from sender to receiver. It returns false without
// mutating state if sender's balance is insufficient. Self-transfers
// (from == to) are deliberately processed via a read-write-read-write
// sequence that preserves the net balance (§4.4, §9) — do not "optimize"
// this into a same-address no-op, it must round-trip through the tree
// bit-for-bit identically to peers.
func (l *Ledger) Transfer(from, to []byte, amt *uint256.Int) (bool, error) {
	fromBal, err := l.GetBalance(from)
	if err != nil {
		return false, err
	}
	if fromBal.Lt(amt) {
		return false, nil
	}

	newFromBal := uint256.NewInt(0).Sub(fromBal, amt)
	if err := l.SetBalance(from, newFromBal); err != nil {
		return false, err
	}

	toBal, err := l.GetBalance(to)
	if err != nil {
		return false, err
	}
	newToBal := uint256.NewInt(0).Add(toBal, amt)
	if err := l.SetBalance(to, newToBal); err != nil {
		return false, err
	}

	return true, nil
}

// GetLastCheckedBlock returns the last-checked-block watermark, or 0 if
// absent or shorter than 8 bytes.
func (l *Ledger) GetLastCheckedBlock() (uint64, error) {
	data, ok, err := l.tree.Get([]byte(lastCheckedBlockKey))
	if err != nil {
		return 0, wrapErr(err)
	}
	if !ok || len(data) < 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(data), nil
}

// SetLastCheckedBlock records the last-checked-block watermark.
func (l *Ledger) SetLastCheckedBlock(n uint64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	if err := l.tree.Put([]byte(lastCheckedBlockKey), b); err != nil {
		return wrapErr(err)
	}
	return nil
}

// GetBlockRootHash returns the root hash recorded for block n, if any.
func (l *Ledger) GetBlockRootHash(n uint64) (*types.Hash, error) {
	data, ok, err := l.tree.Get(blockRootKey(n))
	if err != nil {
		return nil, wrapErr(err)
	}
	if !ok || len(data) != types.HashLength {
		return nil, nil
	}
	h := types.BytesToHash(data)
	return &h, nil
}

// SetBlockRootHash records hash as the root for block n.
func (l *Ledger) SetBlockRootHash(n uint64, hash types.Hash) error {
	if err := l.tree.Put(blockRootKey(n), hash.Bytes()); err != nil {
		return wrapErr(err)
	}
	return nil
}

func blockRootKey(n uint64) []byte {
	return []byte(blockRootHashPrefix + strconv.FormatUint(n, 10))
}

// RootHash returns the tree's current in-memory root hash.
func (l *Ledger) RootHash() (*types.Hash, error) {
	h, err := l.tree.Root()
	if err != nil {
		return nil, wrapErr(err)
	}
	return h, nil
}

// Flush commits pending tree mutations to durable storage.
func (l *Ledger) Flush() error {
	return wrapErr(l.tree.Flush())
}

// RevertUnsaved discards pending tree mutations, reloading the last
// flushed state.
func (l *Ledger) RevertUnsaved() error {
	return wrapErr(l.tree.Revert())
}

// Tree exposes the underlying store for components (the root-hash HTTP
// endpoint, bootstrap seeding) that need direct access.
func (l *Ledger) Tree() *merkle.Store {
	return l.tree
}
