package merkle

import (
	"github.com/keep-pwr-strong/pwr-stateful-vida/rlpenc"
	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

// node is the in-memory representation of a tree node (§3). Optional
// fields are represented as pointers; nil means absent.
type node struct {
	hash      types.Hash
	left      *types.Hash
	right     *types.Hash
	parent    *types.Hash
	staleHash *types.Hash
}

// isLeaf reports whether n has no children.
func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// isRoot reports whether n has no parent.
func (n *node) isRoot() bool {
	return n.parent == nil
}

// nodeWire is the self-describing on-disk encoding of a node record
// (§4.2, §6.2). Absent optional fields are encoded as empty byte
// strings; hashes are always exactly 32 bytes when present.
type nodeWire struct {
	Hash      []byte
	Left      []byte
	Right     []byte
	Parent    []byte
	StaleHash []byte
}

func hashPtrToBytes(h *types.Hash) []byte {
	if h == nil {
		return nil
	}
	return h.Bytes()
}

func bytesToHashPtr(b []byte) *types.Hash {
	if len(b) == 0 {
		return nil
	}
	h := types.BytesToHash(b)
	return &h
}

func (n *node) toWire() nodeWire {
	return nodeWire{
		Hash:      n.hash.Bytes(),
		Left:      hashPtrToBytes(n.left),
		Right:     hashPtrToBytes(n.right),
		Parent:    hashPtrToBytes(n.parent),
		StaleHash: hashPtrToBytes(n.staleHash),
	}
}

func (w nodeWire) toNode() *node {
	return &node{
		hash:      types.BytesToHash(w.Hash),
		left:      bytesToHashPtr(w.Left),
		right:     bytesToHashPtr(w.Right),
		parent:    bytesToHashPtr(w.Parent),
		staleHash: bytesToHashPtr(w.StaleHash),
	}
}

// encodeNode serializes n for durable storage in the nodes namespace.
func encodeNode(n *node) ([]byte, error) {
	return rlpenc.EncodeToBytes(n.toWire())
}

// decodeNode deserializes a node record previously written by encodeNode.
func decodeNode(b []byte) (*node, error) {
	var w nodeWire
	if err := rlpenc.DecodeBytes(b, &w); err != nil {
		return nil, err
	}
	return w.toNode(), nil
}
