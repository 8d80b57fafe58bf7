// Package rlpenc is a minimal recursive-length-prefix (RLP) codec used to
// give Merkle tree node records (§4.2, §6.2) a self-describing, faithfully
// round-tripping durable encoding. Adapted from the execution client's RLP
// codec, trimmed to the struct/[]byte/integer subset the node record needs.
package rlpenc

import "errors"

var (
	// ErrExpectedString is returned when a list is encountered where a string was expected.
	ErrExpectedString = errors.New("rlpenc: expected string")

	// ErrExpectedList is returned when a string is encountered where a list was expected.
	ErrExpectedList = errors.New("rlpenc: expected list")

	// ErrCanonSize is returned when an RLP string uses a non-canonical size encoding.
	ErrCanonSize = errors.New("rlpenc: non-canonical size information")

	// ErrEOL is returned by ListEnd when the current list still has unread items.
	ErrEOL = errors.New("rlpenc: end of list")

	// ErrCanonInt is returned when an integer uses non-canonical encoding (leading zeros).
	ErrCanonInt = errors.New("rlpenc: non-canonical integer encoding")

	// ErrNonCanonicalSize is returned when a size prefix is not in canonical form.
	ErrNonCanonicalSize = errors.New("rlpenc: non-canonical size")

	// ErrUint64Range is returned when a decoded integer exceeds uint64 range.
	ErrUint64Range = errors.New("rlpenc: uint64 overflow")

	// ErrValueTooLarge is returned when a value is too large to encode.
	ErrValueTooLarge = errors.New("rlpenc: value too large")
)
