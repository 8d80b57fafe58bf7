package ledger

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/keep-pwr-strong/pwr-stateful-vida/kvstore"
	"github.com/keep-pwr-strong/pwr-stateful-vida/merkle"
	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
)

func newLedger(t *testing.T, name string) *Ledger {
	t.Helper()
	kv := kvstore.NewMemory()
	tree, err := merkle.Open(name, kv)
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { tree.Close() })
	return New(tree)
}

func addr(b byte) []byte {
	a := make([]byte, 20)
	a[19] = b
	return a
}

func TestGetBalanceAbsentIsZero(t *testing.T) {
	l := newLedger(t, "ledger-absent")
	bal, err := l.GetBalance(addr(1))
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("balance = %v, want 0", bal)
	}
}

func TestSetBalanceZeroEncodesSingleByte(t *testing.T) {
	l := newLedger(t, "ledger-zero")
	if err := l.SetBalance(addr(1), uint256.NewInt(0)); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	raw, ok, err := l.tree.Get(addr(1))
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(raw) != 1 || raw[0] != 0x00 {
		t.Errorf("raw = %x, want [00]", raw)
	}
}

func TestSetGetBalanceRoundTrip(t *testing.T) {
	l := newLedger(t, "ledger-roundtrip")
	want := uint256.NewInt(123456789)
	if err := l.SetBalance(addr(1), want); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	got, err := l.GetBalance(addr(1))
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Errorf("GetBalance = %v, want %v", got, want)
	}
}

// Property 7: balance conservation under transfer.
func TestTransferConservesBalance(t *testing.T) {
	l := newLedger(t, "ledger-conserve")
	from, to := addr(1), addr(2)
	l.SetBalance(from, uint256.NewInt(1000))
	l.SetBalance(to, uint256.NewInt(500))

	ok, err := l.Transfer(from, to, uint256.NewInt(300))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !ok {
		t.Fatal("Transfer returned false, want true")
	}

	fromBal, _ := l.GetBalance(from)
	toBal, _ := l.GetBalance(to)
	total := uint256.NewInt(0).Add(fromBal, toBal)
	want := uint256.NewInt(1500)
	if total.Cmp(want) != 0 {
		t.Errorf("total after transfer = %v, want %v", total, want)
	}
	if fromBal.Cmp(uint256.NewInt(700)) != 0 {
		t.Errorf("from balance = %v, want 700", fromBal)
	}
	if toBal.Cmp(uint256.NewInt(800)) != 0 {
		t.Errorf("to balance = %v, want 800", toBal)
	}
}

func TestTransferInsufficientFundsReturnsFalse(t *testing.T) {
	l := newLedger(t, "ledger-insufficient")
	from, to := addr(1), addr(2)
	l.SetBalance(from, uint256.NewInt(10))

	ok, err := l.Transfer(from, to, uint256.NewInt(100))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if ok {
		t.Fatal("Transfer returned true, want false (insufficient funds)")
	}

	fromBal, _ := l.GetBalance(from)
	if fromBal.Cmp(uint256.NewInt(10)) != 0 {
		t.Errorf("from balance mutated on failed transfer: %v", fromBal)
	}
}

// Property 8: self-transfer preserves balance.
func TestSelfTransferPreservesBalance(t *testing.T) {
	l := newLedger(t, "ledger-self")
	addrX := addr(1)
	l.SetBalance(addrX, uint256.NewInt(500))

	ok, err := l.Transfer(addrX, addrX, uint256.NewInt(200))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !ok {
		t.Fatal("self-transfer returned false, want true")
	}

	bal, _ := l.GetBalance(addrX)
	if bal.Cmp(uint256.NewInt(500)) != 0 {
		t.Errorf("balance after self-transfer = %v, want unchanged 500", bal)
	}
}

func TestLastCheckedBlockDefaultsToZero(t *testing.T) {
	l := newLedger(t, "ledger-watermark-zero")
	n, err := l.GetLastCheckedBlock()
	if err != nil {
		t.Fatalf("GetLastCheckedBlock: %v", err)
	}
	if n != 0 {
		t.Errorf("watermark = %d, want 0", n)
	}
}

func TestLastCheckedBlockRoundTrip(t *testing.T) {
	l := newLedger(t, "ledger-watermark")
	if err := l.SetLastCheckedBlock(42); err != nil {
		t.Fatalf("SetLastCheckedBlock: %v", err)
	}
	n, err := l.GetLastCheckedBlock()
	if err != nil {
		t.Fatalf("GetLastCheckedBlock: %v", err)
	}
	if n != 42 {
		t.Errorf("watermark = %d, want 42", n)
	}
}

func TestBlockRootHashRoundTrip(t *testing.T) {
	l := newLedger(t, "ledger-blockroot")
	want := types.BytesToHash([]byte("some 32 byte root hash padded..."))

	if _, err := l.GetBlockRootHash(7); err != nil {
		t.Fatalf("GetBlockRootHash(absent): %v", err)
	}

	if err := l.SetBlockRootHash(7, want); err != nil {
		t.Fatalf("SetBlockRootHash: %v", err)
	}
	got, err := l.GetBlockRootHash(7)
	if err != nil {
		t.Fatalf("GetBlockRootHash: %v", err)
	}
	if got == nil || *got != want {
		t.Errorf("GetBlockRootHash = %v, want %v", got, want)
	}
}
