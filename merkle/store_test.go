package merkle

import (
	"testing"

	"github.com/keep-pwr-strong/pwr-stateful-vida/crypto"
	"github.com/keep-pwr-strong/pwr-stateful-vida/kvstore"
)

func freshStore(t *testing.T, name string) (*Store, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	s, err := Open(name, kv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		registerClose(name)
	})
	return s, kv
}

func TestOpenSameNameTwiceFailsAlreadyOpen(t *testing.T) {
	kv := kvstore.NewMemory()
	s, err := Open("dup", kv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer registerClose("dup")

	if _, err := Open("dup", kv); err != ErrAlreadyOpen {
		t.Fatalf("second Open err = %v, want ErrAlreadyOpen", err)
	}
	_ = s
}

// S1: single leaf.
func TestSingleLeaf(t *testing.T) {
	s, _ := freshStore(t, "s1")

	if err := s.Put([]byte("hello"), []byte("world")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	n, _ := s.NumLeaves()
	if n != 1 {
		t.Errorf("NumLeaves = %d, want 1", n)
	}
	d, _ := s.Depth()
	if d != 0 {
		t.Errorf("Depth = %d, want 0", d)
	}
	root, _ := s.Root()
	want := crypto.LeafHash([]byte("hello"), []byte("world"))
	if root == nil || *root != want {
		t.Errorf("Root = %v, want %v", root, want)
	}
}

// S2: two leaves.
func TestTwoLeaves(t *testing.T) {
	s, _ := freshStore(t, "s2")

	s.Put([]byte("hello"), []byte("world"))
	s.Put([]byte("foo"), []byte("bar"))

	n, _ := s.NumLeaves()
	if n != 2 {
		t.Errorf("NumLeaves = %d, want 2", n)
	}
	d, _ := s.Depth()
	if d != 1 {
		t.Errorf("Depth = %d, want 1", d)
	}

	h1 := crypto.LeafHash([]byte("hello"), []byte("world"))
	h2 := crypto.LeafHash([]byte("foo"), []byte("bar"))
	want := crypto.InternalHash(h1, h2, true, true)

	root, _ := s.Root()
	if root == nil || *root != want {
		t.Errorf("Root = %v, want %v", root, want)
	}
}

// S3: three leaves, odd.
func TestThreeLeavesOdd(t *testing.T) {
	s, _ := freshStore(t, "s3")

	s.Put([]byte("hello"), []byte("world"))
	s.Put([]byte("foo"), []byte("bar"))
	s.Put([]byte("a"), []byte("b"))

	n, _ := s.NumLeaves()
	if n != 3 {
		t.Errorf("NumLeaves = %d, want 3", n)
	}
	d, _ := s.Depth()
	if d != 2 {
		t.Errorf("Depth = %d, want 2", d)
	}

	h1 := crypto.LeafHash([]byte("hello"), []byte("world"))
	h2 := crypto.LeafHash([]byte("foo"), []byte("bar"))
	h3 := crypto.LeafHash([]byte("a"), []byte("b"))
	left := crypto.InternalHash(h1, h2, true, true)
	right := crypto.InternalHash(h3, h3, true, true)
	want := crypto.InternalHash(left, right, true, true)

	root, _ := s.Root()
	if root == nil || *root != want {
		t.Errorf("Root = %v, want %v", root, want)
	}
}

// S4: update existing leaf.
func TestUpdateExistingLeaf(t *testing.T) {
	s, _ := freshStore(t, "s4")

	s.Put([]byte("hello"), []byte("world"))
	s.Put([]byte("foo"), []byte("bar"))
	s.Put([]byte("a"), []byte("b"))
	s.Put([]byte("hello"), []byte("world2"))

	n, _ := s.NumLeaves()
	if n != 3 {
		t.Errorf("NumLeaves = %d, want 3 (update does not add a leaf)", n)
	}
	d, _ := s.Depth()
	if d != 2 {
		t.Errorf("Depth = %d, want 2", d)
	}

	h1 := crypto.LeafHash([]byte("hello"), []byte("world2"))
	h2 := crypto.LeafHash([]byte("foo"), []byte("bar"))
	h3 := crypto.LeafHash([]byte("a"), []byte("b"))
	left := crypto.InternalHash(h1, h2, true, true)
	right := crypto.InternalHash(h3, h3, true, true)
	want := crypto.InternalHash(left, right, true, true)

	root, _ := s.Root()
	if root == nil || *root != want {
		t.Errorf("Root = %v, want %v", root, want)
	}
}

// S5: flush/reopen equivalence.
func TestFlushCloseReopen(t *testing.T) {
	kv := kvstore.NewMemory()
	name := "s5"
	s, err := Open(name, kv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.Put([]byte("hello"), []byte("world"))
	s.Put([]byte("foo"), []byte("bar"))
	s.Put([]byte("a"), []byte("b"))
	s.Put([]byte("hello"), []byte("world2"))

	preCloseRoot, _ := s.Root()

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(name, kv)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer registerClose(name)

	reopenedRoot, err := s2.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if reopenedRoot == nil || *reopenedRoot != *preCloseRoot {
		t.Errorf("reopened root = %v, want %v", reopenedRoot, preCloseRoot)
	}

	val, ok, err := s2.Get([]byte("hello"))
	if err != nil || !ok || string(val) != "world2" {
		t.Errorf("Get(hello) = %q, ok=%v, err=%v", val, ok, err)
	}

	has, err := s2.Contains([]byte("a"))
	if err != nil || !has {
		t.Errorf("Contains(a) = %v, err=%v, want true", has, err)
	}
}

// S6: revert.
func TestRevertDiscardsDirtyState(t *testing.T) {
	kv := kvstore.NewMemory()
	name := "s6"
	s, err := Open(name, kv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer registerClose(name)

	s.Put([]byte("hello"), []byte("world"))
	s.Put([]byte("foo"), []byte("bar"))
	s.Put([]byte("a"), []byte("b"))
	s.Put([]byte("hello"), []byte("world2"))
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	preRevertRoot, _ := s.Root()
	preRevertLeaves, _ := s.NumLeaves()
	preRevertDepth, _ := s.Depth()

	if err := s.Put([]byte("x"), []byte("y")); err != nil {
		t.Fatalf("Put(x): %v", err)
	}

	if err := s.Revert(); err != nil {
		t.Fatalf("Revert: %v", err)
	}

	root, _ := s.Root()
	if root == nil || *root != *preRevertRoot {
		t.Errorf("root after revert = %v, want %v", root, preRevertRoot)
	}
	leaves, _ := s.NumLeaves()
	if leaves != preRevertLeaves {
		t.Errorf("NumLeaves after revert = %d, want %d", leaves, preRevertLeaves)
	}
	depth, _ := s.Depth()
	if depth != preRevertDepth {
		t.Errorf("Depth after revert = %d, want %d", depth, preRevertDepth)
	}

	_, ok, err := s.Get([]byte("x"))
	if err != nil {
		t.Fatalf("Get(x): %v", err)
	}
	if ok {
		t.Error("Get(x) found a value after revert, want absent")
	}

	has, err := s.Contains([]byte("x"))
	if err != nil {
		t.Fatalf("Contains(x): %v", err)
	}
	if has {
		t.Error("Contains(x) = true after revert, want false")
	}
}

func TestPutRejectsEmptyKeyOrValue(t *testing.T) {
	s, _ := freshStore(t, "s-bad-arg")

	if err := s.Put(nil, []byte("v")); err != ErrBadArgument {
		t.Errorf("Put(empty key) err = %v, want ErrBadArgument", err)
	}
	if err := s.Put([]byte("k"), nil); err != ErrBadArgument {
		t.Errorf("Put(empty value) err = %v, want ErrBadArgument", err)
	}
}

func TestPutNoOpOnUnchangedLeafHash(t *testing.T) {
	s, _ := freshStore(t, "s-noop")

	s.Put([]byte("k"), []byte("v"))
	root1, _ := s.Root()

	if err := s.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put (repeat): %v", err)
	}
	root2, _ := s.Root()
	if *root1 != *root2 {
		t.Errorf("root changed on no-op put: %v -> %v", root1, root2)
	}
	n, _ := s.NumLeaves()
	if n != 1 {
		t.Errorf("NumLeaves after no-op put = %d, want 1", n)
	}
}

func TestOperationsFailAfterClose(t *testing.T) {
	kv := kvstore.NewMemory()
	name := "s-closed"
	s, err := Open(name, kv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, _, err := s.Get([]byte("k")); err != ErrClosed {
		t.Errorf("Get after close = %v, want ErrClosed", err)
	}
	if err := s.Put([]byte("k"), []byte("v")); err != ErrClosed {
		t.Errorf("Put after close = %v, want ErrClosed", err)
	}
	if _, err := s.Root(); err != ErrClosed {
		t.Errorf("Root after close = %v, want ErrClosed", err)
	}
}

func TestFlushIsNoOpWhenNotDirty(t *testing.T) {
	s, _ := freshStore(t, "s-flush-noop")

	if err := s.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
}

// Clear must remove durable state too, not just what's still cached
// in-memory: after a Flush, nodes/keydata live only in the kv store.
func TestClearRemovesDurableStateAfterFlush(t *testing.T) {
	s, kv := freshStore(t, "s-clear")

	if err := s.Put([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put([]byte("k2"), []byte("v2")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if len(kv.Keys(kvstore.NamespaceNodes)) == 0 {
		t.Fatal("expected durable node rows after Flush")
	}
	if len(kv.Keys(kvstore.NamespaceKeyData)) == 0 {
		t.Fatal("expected durable keydata rows after Flush")
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if keys := kv.Keys(kvstore.NamespaceNodes); len(keys) != 0 {
		t.Errorf("durable nodes survived Clear: %v", keys)
	}
	if keys := kv.Keys(kvstore.NamespaceKeyData); len(keys) != 0 {
		t.Errorf("durable keydata survived Clear: %v", keys)
	}
	if keys := kv.Keys(kvstore.NamespaceMetadata); len(keys) != 0 {
		t.Errorf("durable metadata survived Clear: %v", keys)
	}

	n, err := s.NumLeaves()
	if err != nil {
		t.Fatalf("NumLeaves: %v", err)
	}
	if n != 0 {
		t.Errorf("NumLeaves after Clear = %d, want 0", n)
	}
}
