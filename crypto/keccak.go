// Package crypto provides the Keccak-256 hashing primitives used to derive
// leaf and internal-node identities in the Merkle store (component A).
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

// Keccak256 returns the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash returns the Keccak-256 digest of the concatenation of data
// as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}

// LeafHash returns the identity of a leaf holding key k and value v:
// Keccak(k || v) (§4.1).
func LeafHash(k, v []byte) types.Hash {
	return Keccak256Hash(k, v)
}

// InternalHash returns the identity of an internal node given its left and
// right child hashes. hasLeft/hasRight report which children are present;
// the value of an absent side is ignored. With a single present child its
// hash is duplicated per §3. Both absent is a caller bug and panics, since
// the tree never constructs such a node.
func InternalHash(left, right types.Hash, hasLeft, hasRight bool) types.Hash {
	switch {
	case hasLeft && hasRight:
		return Keccak256Hash(left.Bytes(), right.Bytes())
	case hasLeft:
		return Keccak256Hash(left.Bytes(), left.Bytes())
	case hasRight:
		return Keccak256Hash(right.Bytes(), right.Bytes())
	default:
		panic("crypto: InternalHash called with no children")
	}
}
