package web3

import "context"

// ChainSnapshot captures a point-in-time view of a chain. It is stamped
// onto archived runs as an external timestamp anchor.
type ChainSnapshot struct {
	Chain       string `json:"chain"`
	ChainID     string `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
}

// Client defines the common interface that any chain implementation must
// provide so higher layers can query different networks uniformly.
type Client interface {
	// Name returns the configured chain name (e.g. "ethereum").
	Name() string
	// FetchChainSnapshot reads the chain id and latest block number.
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	// Close releases the underlying RPC connection.
	Close()
}
