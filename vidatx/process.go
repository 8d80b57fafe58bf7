// Package vidatx decodes transactions pulled from the external feed and
// dispatches recognized actions to the ledger (component E).
package vidatx

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/holiman/uint256"

	"github.com/keep-pwr-strong/pwr-stateful-vida/ledger"
	"github.com/keep-pwr-strong/pwr-stateful-vida/vidalog"
)

// Malformed transactions (§4.5, §7) -- JSON parse failure, missing
// fields, non-positive amount, or bad hex -- are logged and dropped, not
// surfaced as an error; the feed still advances past them.

var logger = vidalog.Default().Component("vidatx")

type payload struct {
	Action   string      `json:"action"`
	Amount   json.Number `json:"amount"`
	Receiver string      `json:"receiver"`
}

// Process decodes a transaction's hex payload and, if it names a
// recognized action, applies it to l. senderHex and payloadHex are
// hex-encoded strings as delivered by the feed (optional 0x prefix).
// Malformed transactions are logged and dropped without error. A
// DatabaseError from the ledger propagates to the caller, aborting the
// block's processing (§4.5).
func Process(l *ledger.Ledger, senderHex, payloadHex string) error {
	sender, err := decodeHex(senderHex)
	if err != nil {
		logger.Warn("malformed transaction: bad sender hex", "sender", senderHex, "err", err)
		return nil
	}

	raw, err := decodeHex(payloadHex)
	if err != nil {
		logger.Warn("malformed transaction: bad payload hex", "err", err)
		return nil
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		logger.Warn("malformed transaction: bad JSON payload", "err", err)
		return nil
	}

	switch strings.ToLower(p.Action) {
	case "transfer":
		return processTransfer(l, sender, p)
	default:
		// Unrecognized actions are ignored silently (§4.5).
		return nil
	}
}

func processTransfer(l *ledger.Ledger, sender []byte, p payload) error {
	if p.Amount == "" {
		logger.Warn("malformed transfer: missing amount")
		return nil
	}
	amount, err := uint256.FromDecimal(string(p.Amount))
	if err != nil || amount.IsZero() {
		logger.Warn("malformed transfer: non-positive or invalid amount", "amount", p.Amount)
		return nil
	}

	if p.Receiver == "" {
		logger.Warn("malformed transfer: missing receiver")
		return nil
	}
	receiver, err := decodeHex(p.Receiver)
	if err != nil || len(receiver) == 0 {
		logger.Warn("malformed transfer: bad receiver hex", "receiver", p.Receiver, "err", err)
		return nil
	}

	ok, err := l.Transfer(sender, receiver, amount)
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("transfer rejected: insufficient funds", "sender", senderHexOf(sender), "receiver", p.Receiver)
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func senderHexOf(b []byte) string {
	return hex.EncodeToString(b)
}
