// Package rootapi serves the read-only root-hash HTTP endpoint consumed
// by peers during consensus (component G, §4.7).
package rootapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/keep-pwr-strong/pwr-stateful-vida/ledger"
	"github.com/keep-pwr-strong/pwr-stateful-vida/metrics"
	"github.com/keep-pwr-strong/pwr-stateful-vida/vidalog"
)

// Handler serves GET /rootHash?blockNumber=<n> and GET /metrics.
type Handler struct {
	ledger *ledger.Ledger
	mux    *http.ServeMux
	logger *vidalog.Logger
}

// New constructs a Handler reading through l.
func New(l *ledger.Ledger) *Handler {
	h := &Handler{
		ledger: l,
		mux:    http.NewServeMux(),
		logger: vidalog.Default().Component("rootapi"),
	}
	h.mux.HandleFunc("/rootHash", h.handleRootHash)
	h.mux.Handle("/metrics", metrics.Handler())
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleRootHash(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("blockNumber")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	last, err := h.ledger.GetLastCheckedBlock()
	if err != nil {
		h.writeDatabaseError(w, err)
		return
	}

	switch {
	case n == last:
		root, err := h.ledger.RootHash()
		if err != nil {
			h.writeDatabaseError(w, err)
			return
		}
		if root == nil {
			http.Error(w, "Root hash not available", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, root.Hex())

	case n > 1 && n < last:
		root, err := h.ledger.GetBlockRootHash(n)
		if err != nil {
			h.writeDatabaseError(w, err)
			return
		}
		if root == nil {
			http.Error(w, fmt.Sprintf("Block root hash not found for block number: %d", n), http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, root.Hex())

	default:
		http.Error(w, "", http.StatusBadRequest)
	}
}

func (h *Handler) writeDatabaseError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrDatabaseError) {
		h.logger.Error("database error serving rootHash", "err", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	h.logger.Error("unexpected error serving rootHash", "err", err)
	w.WriteHeader(http.StatusInternalServerError)
}
