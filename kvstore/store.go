// Package kvstore provides the durable key-value backend the Merkle store
// and ledger are layered on (§6.2). Keys are scoped into three logical
// namespaces (metadata, nodes, keydata) that a single physical store
// disambiguates with a one-byte namespace prefix, so any ordered or hashed
// KV store satisfying the Store contract can serve all three.
package kvstore

import "errors"

// ErrNotFound names a key that does not exist in the requested namespace.
// Store.Get does not return it; Get reports a missing key through its
// boolean result.
var ErrNotFound = errors.New("kvstore: key not found")

// Namespace partitions the physical key space. Values are never shared
// across namespaces even if the underlying keys collide.
type Namespace byte

const (
	// NamespaceMetadata holds tree-level bookkeeping: root hash, leaf
	// count, depth, and other singleton values.
	NamespaceMetadata Namespace = 'm'

	// NamespaceNodes holds serialized Merkle node records keyed by node
	// hash.
	NamespaceNodes Namespace = 'n'

	// NamespaceKeyData holds the raw key/value pairs stored at leaves,
	// keyed by the leaf's original key.
	NamespaceKeyData Namespace = 'k'
)

// Store is the durable, namespaced key-value contract the Merkle store and
// ledger depend on. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under (ns, key). The second return
	// value reports whether the key was present.
	Get(ns Namespace, key []byte) ([]byte, bool, error)

	// Put stores value under (ns, key), overwriting any existing value.
	Put(ns Namespace, key, value []byte) error

	// Delete removes (ns, key). It is a no-op if the key is absent.
	Delete(ns Namespace, key []byte) error

	// NewBatch returns a batch of writes that commit atomically on Write.
	NewBatch() Batch

	// DeleteNamespace removes every key in ns, regardless of whether it
	// is present in any in-memory cache. Used by Store.Clear to wipe
	// durable state that has already survived a flush.
	DeleteNamespace(ns Namespace) error

	// Close releases any resources held by the store.
	Close() error
}

// Batch buffers put and delete operations for atomic application to a
// Store.
type Batch interface {
	Put(ns Namespace, key, value []byte)
	Delete(ns Namespace, key []byte)
	Write() error
	Reset()
	Len() int
}

// namespacedKey builds the physical key for (ns, key): a one-byte
// namespace prefix followed by the logical key.
func namespacedKey(ns Namespace, key []byte) []byte {
	phys := make([]byte, 1+len(key))
	phys[0] = byte(ns)
	copy(phys[1:], key)
	return phys
}
