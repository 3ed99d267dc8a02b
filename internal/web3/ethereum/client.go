package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"QuantumProof-Ops/internal/web3"

	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name   string
	RPCURL string
}

// chainReader mirrors the two ethclient methods the snapshot needs so
// tests can substitute a fake backend.
type chainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Client implements the web3.Client interface for EVM compatible chains.
type Client struct {
	name      string
	rpcClient *gethrpc.Client
	reader    chainReader
	mu        sync.Mutex
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("ethereum rpc url is not configured")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum node: %w", err)
	}

	return &Client{
		name:      cfg.Name,
		rpcClient: rpcClient,
		reader:    ethclient.NewClient(rpcClient),
	}, nil
}

// NewClientWithReader wires a pre-built chain reader, used in tests.
func NewClientWithReader(name string, reader chainReader) *Client {
	return &Client{name: name, reader: reader}
}

// Name returns the configured chain name.
func (c *Client) Name() string {
	return c.name
}

// Close releases the network connection held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
	c.reader = nil
}

// FetchChainSnapshot gathers lightweight metadata from the chain.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	c.mu.Lock()
	reader := c.reader
	c.mu.Unlock()
	if reader == nil {
		return web3.ChainSnapshot{}, errors.New("ethereum client is closed")
	}

	chainID, err := reader.ChainID(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("fetch chain id: %w", err)
	}
	blockNumber, err := reader.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("fetch latest block number: %w", err)
	}

	return web3.ChainSnapshot{
		Chain:       c.name,
		ChainID:     chainID.String(),
		BlockNumber: blockNumber,
	}, nil
}
