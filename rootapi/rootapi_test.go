package rootapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/keep-pwr-strong/pwr-stateful-vida/kvstore"
	"github.com/keep-pwr-strong/pwr-stateful-vida/ledger"
	"github.com/keep-pwr-strong/pwr-stateful-vida/merkle"
	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

func newTestLedger(t *testing.T, name string) *ledger.Ledger {
	t.Helper()
	kv := kvstore.NewMemory()
	tree, err := merkle.Open(name, kv)
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { tree.Close() })
	return ledger.New(tree)
}

// S7: HTTP scenario.
func TestRootHashCurrentBlock(t *testing.T) {
	l := newTestLedger(t, "rootapi-current")
	if err := l.Tree().Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := l.SetLastCheckedBlock(100); err != nil {
		t.Fatalf("SetLastCheckedBlock: %v", err)
	}

	actualRoot, err := l.RootHash()
	if err != nil || actualRoot == nil {
		t.Fatalf("RootHash: %v", err)
	}

	h := New(l)
	req := httptest.NewRequest(http.MethodGet, "/rootHash?blockNumber=100", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := strings.TrimSpace(w.Body.String())
	if body != actualRoot.Hex() {
		t.Errorf("body = %q, want %q", body, actualRoot.Hex())
	}
	if len(body) != 64 {
		t.Errorf("body length = %d, want 64 hex chars", len(body))
	}
}

func TestRootHashCurrentBlockAbsentRootBadRequest(t *testing.T) {
	l := newTestLedger(t, "rootapi-current-absent")

	h := New(l)
	req := httptest.NewRequest(http.MethodGet, "/rootHash?blockNumber=0", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRootHashHistoricalBlockNotFound(t *testing.T) {
	l := newTestLedger(t, "rootapi-historical-missing")
	l.SetLastCheckedBlock(100)

	h := New(l)
	req := httptest.NewRequest(http.MethodGet, "/rootHash?blockNumber=50", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRootHashHistoricalBlockFound(t *testing.T) {
	l := newTestLedger(t, "rootapi-historical-found")
	l.SetLastCheckedBlock(100)
	var want types.Hash
	for i := range want {
		want[i] = 0x22
	}
	if err := l.SetBlockRootHash(50, want); err != nil {
		t.Fatalf("SetBlockRootHash: %v", err)
	}

	h := New(l)
	req := httptest.NewRequest(http.MethodGet, "/rootHash?blockNumber=50", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := strings.TrimSpace(w.Body.String())
	if body != want.Hex() {
		t.Errorf("body = %q, want %q", body, want.Hex())
	}
}

func TestRootHashFutureBlockBadRequest(t *testing.T) {
	l := newTestLedger(t, "rootapi-future")
	l.SetLastCheckedBlock(100)

	h := New(l)
	req := httptest.NewRequest(http.MethodGet, "/rootHash?blockNumber=200", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRootHashInvalidParamBadRequest(t *testing.T) {
	l := newTestLedger(t, "rootapi-invalid-param")
	l.SetLastCheckedBlock(100)

	h := New(l)
	req := httptest.NewRequest(http.MethodGet, "/rootHash?blockNumber=abc", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRootHashMissingParamBadRequest(t *testing.T) {
	l := newTestLedger(t, "rootapi-missing-param")

	h := New(l)
	req := httptest.NewRequest(http.MethodGet, "/rootHash", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRootHashBlockNumberOneOrLessIsBadRequestUnlessCurrent(t *testing.T) {
	l := newTestLedger(t, "rootapi-zero-or-one")
	l.SetLastCheckedBlock(100)

	h := New(l)
	for _, n := range []string{"0", "1"} {
		req := httptest.NewRequest(http.MethodGet, "/rootHash?blockNumber="+n, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("blockNumber=%s status = %d, want 400", n, w.Code)
		}
	}
}
