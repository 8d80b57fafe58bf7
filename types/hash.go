// Package types defines the small set of value types shared across the
// Merkle store, ledger and consensus packages.
package types

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the byte length of a Keccak-256 digest.
const HashLength = 32

// Hash is a 32-byte Keccak-256 digest. It is used for node identities, leaf
// identities and root identities alike.
type Hash [HashLength]byte

// ZeroHash is the hash with all bytes zero, used as the sentinel for "absent".
var ZeroHash = Hash{}

// BytesToHash converts b to a Hash, left-padding with zeros if b is shorter
// than HashLength and truncating the leftmost bytes if it is longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash decodes a hex string (optional 0x prefix) into a Hash.
func HexToHash(s string) (Hash, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b), nil
}

// SetBytes sets h from b, left-padding with zeros if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	*h = Hash{}
	copy(h[HashLength-len(b):], b)
}

// Bytes returns the byte slice representation of h.
func (h Hash) Bytes() []byte { return append([]byte(nil), h[:]...) }

// Hex returns the lower-case hex encoding of h without a 0x prefix, matching
// the wire format of the /rootHash HTTP endpoint (§4.7).
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

// DecodeHex decodes a hex string into bytes, accepting an optional 0x/0X
// prefix. Odd-length or non-hex input is rejected with the wrapped
// hex.DecodeString error.
func DecodeHex(s string) ([]byte, error) {
	if has0xPrefix(s) {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("types: invalid hex %q: %w", s, err)
	}
	return b, nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
