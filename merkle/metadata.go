package merkle

import (
	"encoding/binary"
	"strconv"

	"github.com/keep-pwr-strong/pwr-stateful-vida/kvstore"
	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

const (
	metaKeyRootHash  = "rootHash"
	metaKeyNumLeaves = "numLeaves"
	metaKeyDepth     = "depth"
	metaKeyHangingPx = "hangingNode"
)

func hangingNodeKey(level int) []byte {
	return []byte(metaKeyHangingPx + strconv.Itoa(level))
}

func encodeInt32LE(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func decodeInt32LE(b []byte) int32 {
	if len(b) < 4 {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// loadMetadata reads root_hash, num_leaves, depth, and the hanging-node
// map from the metadata namespace, as performed on Open and Revert.
func loadMetadata(kv kvstore.Store) (rootHash *types.Hash, numLeaves, depth int32, hanging map[int]types.Hash, err error) {
	hanging = make(map[int]types.Hash)

	rootVal, ok, err := kv.Get(kvstore.NamespaceMetadata, []byte(metaKeyRootHash))
	if err != nil {
		return nil, 0, 0, nil, err
	}
	if ok && len(rootVal) == types.HashLength {
		h := types.BytesToHash(rootVal)
		rootHash = &h
	}

	leavesVal, ok, err := kv.Get(kvstore.NamespaceMetadata, []byte(metaKeyNumLeaves))
	if err != nil {
		return nil, 0, 0, nil, err
	}
	if ok {
		numLeaves = decodeInt32LE(leavesVal)
	}

	depthVal, ok, err := kv.Get(kvstore.NamespaceMetadata, []byte(metaKeyDepth))
	if err != nil {
		return nil, 0, 0, nil, err
	}
	if ok {
		depth = decodeInt32LE(depthVal)
	}

	for level := 0; level <= int(depth); level++ {
		hv, ok, err := kv.Get(kvstore.NamespaceMetadata, hangingNodeKey(level))
		if err != nil {
			return nil, 0, 0, nil, err
		}
		if ok && len(hv) == types.HashLength {
			hanging[level] = types.BytesToHash(hv)
		}
	}

	return rootHash, numLeaves, depth, hanging, nil
}
