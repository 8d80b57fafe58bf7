// Command vidasyncd synchronizes a local Merkle-backed ledger with VIDA
// transactions and validates its root hash against a configured set of
// peers.
//
// Usage:
//
//	vidasyncd [peer ...]
//
// peer arguments are host:port pairs consulted for root-hash quorum
// (§6.5). With no arguments the node falls back to its default peer
// list ("localhost:8080").
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keep-pwr-strong/pwr-stateful-vida/vidalog"
	"github.com/keep-pwr-strong/pwr-stateful-vida/vidanode"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in
// isolation.
func run(args []string) int {
	logger := vidalog.Default().Component("vidasyncd")

	cfg := vidanode.DefaultConfig()
	if len(args) > 0 {
		cfg.Peers = args
	}
	if dir := os.Getenv("VIDASYNCD_DATADIR"); dir != "" {
		cfg.DataDir = dir
	}

	logger.Info("starting vida transaction synchronizer",
		"vidaId", cfg.VidaID, "peers", cfg.Peers, "port", cfg.Port)

	n, err := vidanode.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := n.Start(); err != nil {
		logger.Error("failed to start node", "err", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	if err := n.Stop(); err != nil {
		logger.Error("error during shutdown", "err", err)
		return 1
	}

	logger.Info("shutdown complete")
	return 0
}
