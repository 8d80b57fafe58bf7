// Package consensus implements the block-boundary peer quorum check
// (component F): on each block advance, it queries configured peers for
// their view of the local root hash and commits or reverts depending on
// whether a dynamically-sized quorum agrees.
package consensus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/keep-pwr-strong/pwr-stateful-vida/ledger"
	"github.com/keep-pwr-strong/pwr-stateful-vida/metrics"
	"github.com/keep-pwr-strong/pwr-stateful-vida/types"
	"github.com/keep-pwr-strong/pwr-stateful-vida/vidalog"
)

// peerRequestTimeout bounds each individual peer HTTP call (§4.6).
const peerRequestTimeout = 10 * time.Second

// classification is the outcome of polling a single peer for its root
// hash at a given block.
type classification int

const (
	// classValid is an HTTP 200 response with a well-formed 32-byte hex
	// root hash.
	classValid classification = iota
	// classAliveNull is a non-200 response: the peer is alive but
	// disagrees or has no answer. Contributes no match but does not
	// shrink the active peer count.
	classAliveNull
	// classDead is an empty body, unparseable hex, timeout, or
	// connection error. Shrinks the active peer count.
	classDead
)

// Driver runs the consensus round for a configured set of peers.
type Driver struct {
	peers  []string
	ledger *ledger.Ledger
	client *http.Client
	logger *vidalog.Logger
}

// New constructs a Driver polling peers (host:port strings, no scheme)
// and reconciling against l.
func New(peers []string, l *ledger.Ledger) *Driver {
	return &Driver{
		peers:  peers,
		ledger: l,
		client: &http.Client{Timeout: peerRequestTimeout},
		logger: vidalog.Default().Component("consensus"),
	}
}

// Quorum computes ⌊2n/3⌋ + 1 for n currently-active peers (§4.6,
// GLOSSARY "Quorum").
func Quorum(active int) int {
	return (active*2)/3 + 1
}

// RewindFunc rewinds the feed subscription's watermark, invoked when a
// block fails to reach quorum (§4.6 step 5).
type RewindFunc func(lastCheckedBlock uint64) error

// CheckBlock runs one consensus round for block b: it records b as the
// last-checked-block, compares the local root hash against each peer,
// and either commits (records block→root, flushes) or reverts and
// invokes rewind with the watermark to roll the feed back to.
func (d *Driver) CheckBlock(ctx context.Context, b uint64, rewind RewindFunc) error {
	if err := d.ledger.SetLastCheckedBlock(b); err != nil {
		return err
	}

	localRoot, err := d.ledger.RootHash()
	if err != nil {
		return err
	}
	if localRoot == nil {
		d.logger.Info("no local root yet, skipping consensus round", "block", b)
		return nil
	}

	active := len(d.peers)
	matches := 0
	dead := 0

	for _, peer := range d.peers {
		class, peerRoot := d.pollPeer(ctx, peer, b)
		switch class {
		case classDead:
			active--
			dead++
		case classValid:
			if peerRoot == *localRoot {
				matches++
			}
		case classAliveNull:
			// Contributes nothing; active count unchanged.
		}

		if matches >= Quorum(active) {
			metrics.PeersAlive.Set(float64(active))
			metrics.PeersDead.Set(float64(dead))
			return d.commit(b, *localRoot)
		}
	}

	metrics.PeersAlive.Set(float64(active))
	metrics.PeersDead.Set(float64(dead))
	return d.revertAndRewind(rewind)
}

func (d *Driver) commit(b uint64, root types.Hash) error {
	if err := d.ledger.SetBlockRootHash(b, root); err != nil {
		return err
	}
	if err := d.ledger.Flush(); err != nil {
		return err
	}
	metrics.ConsensusCommits.Inc()
	d.logger.Info("block committed", "block", b, "root", root.Hex())
	return nil
}

func (d *Driver) revertAndRewind(rewind RewindFunc) error {
	if err := d.ledger.RevertUnsaved(); err != nil {
		return err
	}
	metrics.ConsensusReverts.Inc()

	last, err := d.ledger.GetLastCheckedBlock()
	if err != nil {
		return err
	}
	d.logger.Warn("quorum not reached, reverting and rewinding", "rewind_to", last)
	if rewind != nil {
		return rewind(last)
	}
	return nil
}

// pollPeer fetches peer's view of the root hash at block b and
// classifies the outcome (§4.6).
func (d *Driver) pollPeer(ctx context.Context, peer string, b uint64) (classification, types.Hash) {
	u := url.URL{Scheme: "http", Host: peer, Path: "/rootHash"}
	q := u.Query()
	q.Set("blockNumber", strconv.FormatUint(b, 10))
	u.RawQuery = q.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, peerRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return classDead, types.Hash{}
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := d.client.Do(req)
	if err != nil {
		return classDead, types.Hash{}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classDead, types.Hash{}
	}

	if resp.StatusCode != http.StatusOK {
		return classAliveNull, types.Hash{}
	}

	text := string(body)
	if len(text) == 0 {
		return classDead, types.Hash{}
	}

	raw, err := types.DecodeHex(text)
	if err != nil || len(raw) != types.HashLength {
		return classDead, types.Hash{}
	}
	return classValid, types.BytesToHash(raw)
}

func (c classification) String() string {
	switch c {
	case classValid:
		return "valid"
	case classAliveNull:
		return "alive-null"
	case classDead:
		return "dead"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}
