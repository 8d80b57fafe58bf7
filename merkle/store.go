// Package merkle implements the incrementally-maintained binary Merkle
// tree (component C): an in-memory tree with dirty-buffered node and
// key-data caches over a durable kvstore.Store, supporting atomic flush
// and revert-to-last-flushed semantics (§4.3).
package merkle

import (
	"fmt"
	"sync"

	"github.com/keep-pwr-strong/pwr-stateful-vida/crypto"
	"github.com/keep-pwr-strong/pwr-stateful-vida/kvstore"
	"github.com/keep-pwr-strong/pwr-stateful-vida/metrics"
	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

// Store is a single incrementally-maintained Merkle tree. The zero value
// is not usable; construct via Open. Safe for concurrent use: every
// public method holds the store's mutex for its duration.
type Store struct {
	mu     sync.Mutex
	name   string
	kv     kvstore.Store
	closed bool

	rootHash *types.Hash
	numLeaves int32
	depth     int32
	hanging   map[int]types.Hash

	nodeCache         map[types.Hash]*node
	keyCache          map[string][]byte
	hasUnsavedChanges bool
}

// Open creates or loads the tree named name, backed by kv. It fails with
// ErrAlreadyOpen if a store of the same name is already live in this
// process (§4.3, §9).
func Open(name string, kv kvstore.Store) (*Store, error) {
	s := &Store{
		name:      name,
		kv:        kv,
		nodeCache: make(map[types.Hash]*node),
		keyCache:  make(map[string][]byte),
	}
	if err := registerOpen(name, s); err != nil {
		return nil, err
	}

	rootHash, numLeaves, depth, hanging, err := loadMetadata(kv)
	if err != nil {
		registerClose(name)
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	s.rootHash = rootHash
	s.numLeaves = numLeaves
	s.depth = depth
	s.hanging = hanging

	metrics.TreeLeaves.WithLabelValues(name).Set(float64(numLeaves))
	return s, nil
}

// Get returns the value stored under K, checking the dirty key-data
// cache before the keydata namespace. Absent keys return (nil, false).
func (s *Store) Get(k []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	return s.getLocked(k)
}

func (s *Store) getLocked(k []byte) ([]byte, bool, error) {
	if v, ok := s.keyCache[string(k)]; ok {
		return v, true, nil
	}
	v, ok, err := s.kv.Get(kvstore.NamespaceKeyData, k)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return v, ok, nil
}

// Contains reports whether K has an entry in the keydata namespace. It
// intentionally bypasses the dirty cache, matching the source behavior
// (§9): an unflushed put is not yet visible to Contains.
func (s *Store) Contains(k []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	_, ok, err := s.kv.Get(kvstore.NamespaceKeyData, k)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return ok, nil
}

// Put inserts or updates the value under K. Empty K or V fails with
// ErrBadArgument. A put whose recomputed leaf hash equals the prior leaf
// hash for K is a no-op and does not mark the store dirty.
func (s *Store) Put(k, v []byte) error {
	if len(k) == 0 || len(v) == 0 {
		return ErrBadArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	newHash := crypto.LeafHash(k, v)

	var prevHash *types.Hash
	if prevV, ok, err := s.getLocked(k); err != nil {
		return err
	} else if ok {
		h := crypto.LeafHash(k, prevV)
		if h == newHash {
			return nil
		}
		prevHash = &h
	}

	s.keyCache[string(k)] = v
	s.hasUnsavedChanges = true
	if prevHash != nil {
		// Update: re-identify the existing leaf and propagate to the root.
		leaf, err := s.fetchNode(*prevHash)
		if err != nil {
			return err
		}
		return s.updateNodeHash(leaf, newHash)
	}
	if err := s.addLeaf(newHash); err != nil {
		return err
	}
	s.numLeaves++
	metrics.TreeLeaves.WithLabelValues(s.name).Set(float64(s.numLeaves))
	return nil
}

// Root returns the current in-memory root hash, which may differ from
// the durable root until Flush.
func (s *Store) Root() (*types.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.rootHash, nil
}

// RootOnDisk reads the root hash directly from the metadata namespace,
// ignoring the in-memory caches.
func (s *Store) RootOnDisk() (*types.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	root, _, _, _, err := loadMetadata(s.kv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return root, nil
}

// NumLeaves returns the number of leaves inserted so far.
func (s *Store) NumLeaves() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return int(s.numLeaves), nil
}

// Depth returns the highest tree level ever populated. It is monotonic
// and never decreases within the tree's lifetime.
func (s *Store) Depth() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return int(s.depth), nil
}

// Flush atomically writes all dirty state to the durable KV backend and
// clears the caches. It is a no-op if the store has no unsaved changes.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if !s.hasUnsavedChanges {
		return nil
	}

	batch := s.kv.NewBatch()

	if s.rootHash != nil {
		batch.Put(kvstore.NamespaceMetadata, []byte(metaKeyRootHash), s.rootHash.Bytes())
	} else {
		batch.Delete(kvstore.NamespaceMetadata, []byte(metaKeyRootHash))
	}
	batch.Put(kvstore.NamespaceMetadata, []byte(metaKeyNumLeaves), encodeInt32LE(s.numLeaves))
	batch.Put(kvstore.NamespaceMetadata, []byte(metaKeyDepth), encodeInt32LE(s.depth))
	for level, h := range s.hanging {
		batch.Put(kvstore.NamespaceMetadata, hangingNodeKey(level), h.Bytes())
	}

	for hash, n := range s.nodeCache {
		wire, err := encodeNode(n)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		batch.Put(kvstore.NamespaceNodes, hash.Bytes(), wire)
		if n.staleHash != nil {
			batch.Delete(kvstore.NamespaceNodes, n.staleHash.Bytes())
		}
	}

	for k, v := range s.keyCache {
		batch.Put(kvstore.NamespaceKeyData, []byte(k), v)
	}

	if err := batch.Write(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	s.nodeCache = make(map[types.Hash]*node)
	s.keyCache = make(map[string][]byte)
	s.hasUnsavedChanges = false
	metrics.TreeFlushes.WithLabelValues(s.name).Inc()
	return nil
}

// Revert discards the dirty caches and reloads metadata from durable
// storage, undoing any unflushed mutations. No-op if not dirty.
func (s *Store) Revert() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.revertLocked()
}

func (s *Store) revertLocked() error {
	if !s.hasUnsavedChanges {
		return nil
	}

	rootHash, numLeaves, depth, hanging, err := loadMetadata(s.kv)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	s.rootHash = rootHash
	s.numLeaves = numLeaves
	s.depth = depth
	s.hanging = hanging
	s.nodeCache = make(map[types.Hash]*node)
	s.keyCache = make(map[string][]byte)
	s.hasUnsavedChanges = false
	metrics.TreeLeaves.WithLabelValues(s.name).Set(float64(numLeaves))
	return nil
}

// Close flushes pending state and releases the store's name from the
// process-global registry. Subsequent operations fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	err := s.flushLocked()
	s.closed = true
	registerClose(s.name)
	if err != nil {
		return err
	}
	return nil
}

// Clear removes all durable state for this tree and zeroes the
// in-memory state.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.kv.DeleteNamespace(kvstore.NamespaceMetadata); err != nil {
		return err
	}
	if err := s.kv.DeleteNamespace(kvstore.NamespaceNodes); err != nil {
		return err
	}
	if err := s.kv.DeleteNamespace(kvstore.NamespaceKeyData); err != nil {
		return err
	}

	s.rootHash = nil
	s.numLeaves = 0
	s.depth = 0
	s.hanging = make(map[int]types.Hash)
	s.nodeCache = make(map[types.Hash]*node)
	s.keyCache = make(map[string][]byte)
	s.hasUnsavedChanges = false
	metrics.TreeLeaves.WithLabelValues(s.name).Set(0)
	return nil
}
