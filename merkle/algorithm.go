package merkle

import (
	"fmt"

	"github.com/keep-pwr-strong/pwr-stateful-vida/crypto"
	"github.com/keep-pwr-strong/pwr-stateful-vida/kvstore"
	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

// fetchNode returns the node identified by h, preferring the dirty cache
// over the durable nodes namespace.
func (s *Store) fetchNode(h types.Hash) (*node, error) {
	if n, ok := s.nodeCache[h]; ok {
		return n, nil
	}
	v, ok, err := s.kv.Get(kvstore.NamespaceNodes, h.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if !ok {
		return nil, errNodeNotFound(h)
	}
	n, err := decodeNode(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

func (s *Store) cacheNode(n *node) {
	s.nodeCache[n.hash] = n
}

func hashPtr(h types.Hash) *types.Hash {
	cp := h
	return &cp
}

func valueOrZero(h *types.Hash) types.Hash {
	if h == nil {
		return types.Hash{}
	}
	return *h
}

// addLeaf inserts a new leaf with identity hLeaf into the tree,
// implementing §4.3.1.
func (s *Store) addLeaf(hLeaf types.Hash) error {
	L := &node{hash: hLeaf}

	if s.numLeaves == 0 {
		// Case A: empty tree.
		s.hanging[0] = hLeaf
		s.rootHash = hashPtr(hLeaf)
		s.cacheNode(L)
		return nil
	}

	if hangingHash, ok := s.hanging[0]; ok {
		// Case B: hanging[0] present.
		delete(s.hanging, 0)

		sNode, err := s.fetchNode(hangingHash)
		if err != nil {
			return err
		}

		if sNode.isRoot() {
			pHash := crypto.InternalHash(sNode.hash, L.hash, true, true)
			P := &node{hash: pHash, left: hashPtr(sNode.hash), right: hashPtr(L.hash)}
			sNode.parent = hashPtr(pHash)
			L.parent = hashPtr(pHash)
			s.cacheNode(sNode)
			s.cacheNode(L)
			s.cacheNode(P)
			return s.addNode(1, P)
		}

		P, err := s.fetchNode(*sNode.parent)
		if err != nil {
			return err
		}
		if P.left == nil {
			P.left = hashPtr(L.hash)
		} else {
			P.right = hashPtr(L.hash)
		}
		L.parent = hashPtr(P.hash)
		s.cacheNode(L)

		newHash := crypto.InternalHash(valueOrZero(P.left), valueOrZero(P.right), P.left != nil, P.right != nil)
		return s.updateNodeHash(P, newHash)
	}

	// Case C: hanging[0] absent, tree non-empty.
	s.hanging[0] = hLeaf
	pHash := crypto.InternalHash(hLeaf, types.Hash{}, true, false)
	P := &node{hash: pHash, left: hashPtr(hLeaf)}
	L.parent = hashPtr(pHash)
	s.cacheNode(L)
	s.cacheNode(P)
	return s.addNode(1, P)
}

// addNode inserts internal node N at level, implementing §4.3.2.
func (s *Store) addNode(level int, N *node) error {
	if level > int(s.depth) {
		s.depth = int32(level)
	}

	hangingHash, ok := s.hanging[level]
	if !ok {
		s.hanging[level] = N.hash
		if level >= int(s.depth) {
			s.rootHash = hashPtr(N.hash)
			return nil
		}
		pHash := crypto.InternalHash(N.hash, types.Hash{}, true, false)
		P := &node{hash: pHash, left: hashPtr(N.hash)}
		N.parent = hashPtr(pHash)
		s.cacheNode(N)
		s.cacheNode(P)
		return s.addNode(level+1, P)
	}

	H, err := s.fetchNode(hangingHash)
	if err != nil {
		return err
	}
	delete(s.hanging, level)

	if H.isRoot() {
		pHash := crypto.InternalHash(H.hash, N.hash, true, true)
		P := &node{hash: pHash, left: hashPtr(H.hash), right: hashPtr(N.hash)}
		H.parent = hashPtr(pHash)
		N.parent = hashPtr(pHash)
		s.cacheNode(H)
		s.cacheNode(N)
		s.cacheNode(P)
		return s.addNode(level+1, P)
	}

	P, err := s.fetchNode(*H.parent)
	if err != nil {
		return err
	}
	if P.left == nil {
		P.left = hashPtr(N.hash)
	} else {
		P.right = hashPtr(N.hash)
	}
	N.parent = hashPtr(*H.parent)
	s.cacheNode(N)

	newHash := crypto.InternalHash(valueOrZero(P.left), valueOrZero(P.right), P.left != nil, P.right != nil)
	return s.updateNodeHash(P, newHash)
}

// updateNodeHash re-identifies n as newHash and propagates the change up
// to the root, implementing §4.3.3.
func (s *Store) updateNodeHash(n *node, newHash types.Hash) error {
	if n.staleHash == nil {
		n.staleHash = hashPtr(n.hash)
	}
	old := n.hash
	n.hash = newHash

	for level, h := range s.hanging {
		if h == old {
			s.hanging[level] = newHash
		}
	}

	delete(s.nodeCache, old)
	s.cacheNode(n)

	if n.isRoot() {
		s.rootHash = hashPtr(newHash)
		if n.left != nil {
			child, err := s.fetchNode(*n.left)
			if err != nil {
				return err
			}
			child.parent = hashPtr(newHash)
			s.cacheNode(child)
		}
		if n.right != nil {
			child, err := s.fetchNode(*n.right)
			if err != nil {
				return err
			}
			child.parent = hashPtr(newHash)
			s.cacheNode(child)
		}
		return nil
	}

	parent, err := s.fetchNode(*n.parent)
	if err != nil {
		return err
	}

	if !n.isLeaf() {
		if n.left != nil {
			child, err := s.fetchNode(*n.left)
			if err != nil {
				return err
			}
			child.parent = hashPtr(newHash)
			s.cacheNode(child)
		}
		if n.right != nil {
			child, err := s.fetchNode(*n.right)
			if err != nil {
				return err
			}
			child.parent = hashPtr(newHash)
			s.cacheNode(child)
		}
	}

	switch {
	case parent.left != nil && *parent.left == old:
		parent.left = hashPtr(newHash)
	case parent.right != nil && *parent.right == old:
		parent.right = hashPtr(newHash)
	}

	newParentHash := crypto.InternalHash(valueOrZero(parent.left), valueOrZero(parent.right), parent.left != nil, parent.right != nil)
	return s.updateNodeHash(parent, newParentHash)
}
