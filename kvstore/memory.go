package kvstore

import (
	"sort"
	"sync"
)

// Memory is an in-memory Store. It is safe for concurrent use and
// suitable for tests and short-lived nodes.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ns Namespace, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[string(namespacedKey(ns, key))]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, true, nil
}

func (m *Memory) Put(ns Namespace, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(namespacedKey(ns, key))] = cp
	return nil
}

func (m *Memory) Delete(ns Namespace, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(namespacedKey(ns, key)))
	return nil
}

// DeleteNamespace removes every key stored under ns.
func (m *Memory) DeleteNamespace(ns Namespace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if len(k) > 0 && Namespace(k[0]) == ns {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Len returns the total number of entries across all namespaces.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Keys returns the logical keys present in ns, sorted ascending. Useful
// for tests and diagnostics; not part of the Store contract.
func (m *Memory) Keys(ns Namespace) [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out [][]byte
	for k := range m.data {
		if len(k) == 0 || Namespace(k[0]) != ns {
			continue
		}
		out = append(out, []byte(k[1:]))
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i]) < string(out[j])
	})
	return out
}

func (m *Memory) NewBatch() Batch {
	return &memoryBatch{store: m}
}

type memoryOp struct {
	key    []byte
	value  []byte
	delete bool
}

type memoryBatch struct {
	store *Memory
	ops   []memoryOp
}

func (b *memoryBatch) Put(ns Namespace, key, value []byte) {
	valCp := make([]byte, len(value))
	copy(valCp, value)
	b.ops = append(b.ops, memoryOp{key: namespacedKey(ns, key), value: valCp})
}

func (b *memoryBatch) Delete(ns Namespace, key []byte) {
	b.ops = append(b.ops, memoryOp{key: namespacedKey(ns, key), delete: true})
}

func (b *memoryBatch) Write() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, op := range b.ops {
		if op.delete {
			delete(b.store.data, string(op.key))
		} else {
			b.store.data[string(op.key)] = op.value
		}
	}
	return nil
}

func (b *memoryBatch) Reset() {
	b.ops = b.ops[:0]
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}
