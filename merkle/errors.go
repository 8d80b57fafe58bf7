package merkle

import (
	"errors"
	"fmt"

	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

var (
	// ErrAlreadyOpen is returned by Open when a store of the same name is
	// already live in this process.
	ErrAlreadyOpen = errors.New("merkle: store already open")

	// ErrClosed is returned by any operation on a store after Close.
	ErrClosed = errors.New("merkle: store is closed")

	// ErrBadArgument is returned for empty keys/values or other disallowed
	// inputs.
	ErrBadArgument = errors.New("merkle: bad argument")

	// ErrDatabaseError wraps any failure from the underlying KV backend or
	// from node deserialization.
	ErrDatabaseError = errors.New("merkle: database error")
)

// errNodeNotFound wraps ErrDatabaseError for a dangling node reference:
// a hash reachable from the root or hanging-node map with no backing
// record in the nodes namespace or dirty cache.
func errNodeNotFound(h types.Hash) error {
	return fmt.Errorf("%w: node %s not found", ErrDatabaseError, h.Hex())
}
