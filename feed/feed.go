// Package feed defines the external transaction-feed contract the sync
// node consumes (§6.3) and a concrete HTTP-polling implementation. The
// contract, not this implementation, is normative: any subscription
// satisfying Subscription and the OnTxn callback shape can drive the
// node.
package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Transaction is a single item yielded by the feed: a transaction's
// sender and payload, both hex-encoded as delivered on the wire (§6.3).
type Transaction struct {
	BlockNumber uint64
	SenderHex   string
	DataHex     string
}

// OnTxn is invoked once per transaction pulled from the feed.
type OnTxn func(txn Transaction)

// Subscription is a handle to a live feed subscription (§6.3).
type Subscription interface {
	// GetLatestCheckedBlock returns the watermark the subscription has
	// advanced past.
	GetLatestCheckedBlock() uint64

	// SetLatestCheckedBlock rewinds (or fast-forwards) the watermark,
	// used by the consensus driver after a revert (§4.6 step 5).
	SetLatestCheckedBlock(n uint64)

	// Stop halts the subscription's background polling at its next
	// poll boundary.
	Stop()
}

// Source fetches transactions for a block range. Implementations talk
// to the actual feed transport (RPC, websocket, etc); HTTPPolling is one
// such implementation.
type Source interface {
	// FetchBlock returns the transactions included in block n.
	FetchBlock(ctx context.Context, vidaID uint64, n uint64) ([]Transaction, error)
}

// HTTPPolling is a Source-driven Subscription that polls for new blocks
// on a fixed interval and invokes onTxn for every transaction found,
// advancing its watermark one block at a time.
type HTTPPolling struct {
	source    Source
	vidaID    uint64
	onTxn     OnTxn
	watermark atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// PollInterval is the interval between block-availability checks.
const PollInterval = 5 * time.Second

// Subscribe starts polling source for vidaID starting at fromBlock,
// invoking onTxn for each transaction found. The returned Subscription
// must be Stop()ped to release its background goroutine.
func Subscribe(source Source, vidaID, fromBlock uint64, onTxn OnTxn) *HTTPPolling {
	h := &HTTPPolling{
		source: source,
		vidaID: vidaID,
		onTxn:  onTxn,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	h.watermark.Store(fromBlock)
	go h.run()
	return h
}

func (h *HTTPPolling) run() {
	defer close(h.doneCh)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.pollOnce()
		}
	}
}

func (h *HTTPPolling) pollOnce() {
	block := h.watermark.Load()
	ctx, cancel := context.WithTimeout(context.Background(), PollInterval)
	defer cancel()

	txns, err := h.source.FetchBlock(ctx, h.vidaID, block)
	if err != nil {
		return
	}
	for _, txn := range txns {
		h.onTxn(txn)
	}
	h.watermark.Store(block + 1)
}

// GetLatestCheckedBlock returns the current watermark.
func (h *HTTPPolling) GetLatestCheckedBlock() uint64 {
	return h.watermark.Load()
}

// SetLatestCheckedBlock rewinds or fast-forwards the watermark.
func (h *HTTPPolling) SetLatestCheckedBlock(n uint64) {
	h.watermark.Store(n)
}

// Stop halts polling at the next tick boundary and blocks until the
// background goroutine has exited.
func (h *HTTPPolling) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	<-h.doneCh
}
