package vidanode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/keep-pwr-strong/pwr-stateful-vida/consensus"
	"github.com/keep-pwr-strong/pwr-stateful-vida/feed"
	"github.com/keep-pwr-strong/pwr-stateful-vida/kvstore"
	"github.com/keep-pwr-strong/pwr-stateful-vida/ledger"
	"github.com/keep-pwr-strong/pwr-stateful-vida/merkle"
	"github.com/keep-pwr-strong/pwr-stateful-vida/rootapi"
	"github.com/keep-pwr-strong/pwr-stateful-vida/vidalog"
	"github.com/keep-pwr-strong/pwr-stateful-vida/vidatx"
)

// pollInterval is the steady-state interval between progress checks;
// errBackoff is the interval used after a check fails (§5).
const (
	pollInterval = 5 * time.Second
	errBackoff   = 10 * time.Second
)

// Node bootstraps and owns the lifecycle of every component (A-G): the
// merkle-backed ledger, its HTTP surface, the transaction feed, and the
// consensus driver (§4.8).
type Node struct {
	config Config
	logger *vidalog.Logger

	kv     kvstore.Store
	tree   *merkle.Store
	ledger *ledger.Ledger

	driver *consensus.Driver
	sub    *feed.HTTPPolling

	httpServer *http.Server

	mu      sync.Mutex
	started bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Node from cfg, opening its backing store and seeding
// initial balances if the store is fresh. It does not start any
// background goroutines or the HTTP server; call Start for that.
func New(cfg Config) (*Node, error) {
	var kv kvstore.Store
	var err error
	if cfg.DataDir == "" {
		kv = kvstore.NewMemory()
	} else {
		kv, err = kvstore.OpenLevelDB(cfg.DataDir + "/merkleTree/" + cfg.Name)
		if err != nil {
			return nil, fmt.Errorf("vidanode: open leveldb: %w", err)
		}
	}

	tree, err := merkle.Open(cfg.Name, kv)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("vidanode: open merkle store: %w", err)
	}

	n := &Node{
		config: cfg,
		logger: vidalog.Default().Component("vidanode"),
		kv:     kv,
		tree:   tree,
		ledger: ledger.New(tree),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if err := n.seedInitialBalances(); err != nil {
		tree.Close()
		return nil, err
	}

	n.driver = consensus.New(cfg.Peers, n.ledger)
	return n, nil
}

// seedInitialBalances funds DefaultInitialBalances the first time the
// node runs against a fresh store (last-checked-block still zero),
// matching the original's one-time setup step (§4.8).
func (n *Node) seedInitialBalances() error {
	last, err := n.ledger.GetLastCheckedBlock()
	if err != nil {
		return fmt.Errorf("vidanode: read last checked block: %w", err)
	}
	if last != 0 {
		return nil
	}

	n.logger.Info("seeding initial balances for fresh database")
	for _, seed := range DefaultInitialBalances {
		addr, err := seed.addressBytes()
		if err != nil {
			return err
		}
		if err := n.ledger.SetBalance(addr, uint256.NewInt(seed.amount)); err != nil {
			return fmt.Errorf("vidanode: seed balance for %s: %w", seed.address, err)
		}
		n.logger.Info("set initial balance", "address", seed.address, "amount", seed.amount)
	}
	if err := n.ledger.Flush(); err != nil {
		return fmt.Errorf("vidanode: flush seeded balances: %w", err)
	}
	return nil
}

// Start starts the HTTP endpoint, the transaction feed subscription,
// and the consensus progress monitor (§4.8 steps: start HTTP endpoint,
// resolve from_block, subscribe to feed, start consensus monitor).
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return errors.New("vidanode: already running")
	}

	handler := rootapi.New(n.ledger)
	n.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", n.config.Port),
		Handler: handler,
	}
	go func() {
		n.logger.Info("root-hash endpoint listening", "addr", n.httpServer.Addr)
		if err := n.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.logger.Error("http server error", "err", err)
		}
	}()

	fromBlock, err := n.ledger.GetLastCheckedBlock()
	if err != nil {
		return fmt.Errorf("vidanode: resolve from block: %w", err)
	}
	if fromBlock == 0 {
		fromBlock = n.config.StartBlock
	}

	source := newRPCSource(n.config.RPCURL)
	n.sub = feed.Subscribe(source, n.config.VidaID, fromBlock, n.onTxn)
	n.logger.Info("subscribed to vida transactions", "vidaId", n.config.VidaID, "fromBlock", fromBlock)

	go n.monitorProgress()

	n.started = true
	return nil
}

// onTxn is the feed callback: it dispatches every transaction through
// vidatx.Process against the node's ledger (§4.5).
func (n *Node) onTxn(txn feed.Transaction) {
	if err := vidatx.Process(n.ledger, txn.SenderHex, txn.DataHex); err != nil {
		n.logger.Error("database error processing transaction", "err", err)
	}
}

// monitorProgress polls the feed's watermark and, on every advance,
// runs the consensus round for the newly observed block (§4.6, §5).
func (n *Node) monitorProgress() {
	defer close(n.doneCh)

	lastChecked, err := n.ledger.GetLastCheckedBlock()
	if err != nil {
		n.logger.Error("read last checked block", "err", err)
	}

	wait := pollInterval
	for {
		select {
		case <-n.stopCh:
			return
		case <-time.After(wait):
		}

		current := n.sub.GetLatestCheckedBlock()
		if current <= lastChecked {
			wait = pollInterval
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		err := n.driver.CheckBlock(ctx, current, func(rewindTo uint64) error {
			n.sub.SetLatestCheckedBlock(rewindTo)
			return nil
		})
		cancel()
		if err != nil {
			n.logger.Error("consensus round failed", "block", current, "err", err)
			wait = errBackoff
			continue
		}

		lastChecked = current
		wait = pollInterval
	}
}

// Stop halts the feed, the progress monitor and the HTTP server (if
// Start was called), and always flushes pending tree mutations and
// releases the backing store. Safe to call on a Node that was never
// started, and safe to call more than once.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}

	if n.started {
		close(n.stopCh)
		if n.sub != nil {
			n.sub.Stop()
		}
		<-n.doneCh

		if n.httpServer != nil {
			if err := n.httpServer.Close(); err != nil {
				n.logger.Error("http server close error", "err", err)
			}
		}
	}

	if err := n.tree.Close(); err != nil {
		n.logger.Error("tree close error", "err", err)
	}
	if err := n.kv.Close(); err != nil {
		n.logger.Error("store close error", "err", err)
	}

	n.closed = true
	return nil
}

// Ledger exposes the node's ledger for embedders/tests.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}
