package vidanode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/keep-pwr-strong/pwr-stateful-vida/feed"
)

// pollTimeout bounds a single FetchBlock round trip against the RPC
// endpoint.
const pollTimeout = 10 * time.Second

// rpcSource is a feed.Source backed by the PWR RPC VIDA-transaction
// endpoint. Its wire format is not normative (§6.3) — any Source
// implementation may be substituted by embedders.
type rpcSource struct {
	baseURL string
	client  *http.Client
}

func newRPCSource(baseURL string) *rpcSource {
	return &rpcSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: pollTimeout},
	}
}

type vidaTransaction struct {
	Sender string `json:"sender"`
	Data   string `json:"data"`
}

type vidaBlockResponse struct {
	Transactions []vidaTransaction `json:"transactions"`
}

// FetchBlock retrieves the VIDA transactions included in block n.
func (s *rpcSource) FetchBlock(ctx context.Context, vidaID, n uint64) ([]feed.Transaction, error) {
	url := fmt.Sprintf("%svidaTransactions?vidaId=%d&blockNumber=%d", s.baseURL, vidaID, n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vidanode: rpc returned status %d for block %d", resp.StatusCode, n)
	}

	var parsed vidaBlockResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("vidanode: decode block %d response: %w", n, err)
	}

	out := make([]feed.Transaction, 0, len(parsed.Transactions))
	for _, t := range parsed.Transactions {
		out = append(out, feed.Transaction{
			BlockNumber: n,
			SenderHex:   t.Sender,
			DataHex:     t.Data,
		})
	}
	return out, nil
}
