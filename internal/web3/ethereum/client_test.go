package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"QuantumProof-Ops/internal/web3"
)

type fakeReader struct {
	chainID *big.Int
	block   uint64
	err     error
}

func (f *fakeReader) ChainID(ctx context.Context) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chainID, nil
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.block, nil
}

func TestFetchChainSnapshot(t *testing.T) {
	t.Parallel()

	client := NewClientWithReader("devnet", &fakeReader{chainID: big.NewInt(1337), block: 42})
	snapshot, err := client.FetchChainSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if snapshot.Chain != "devnet" {
		t.Fatalf("unexpected chain name %q", snapshot.Chain)
	}
	if snapshot.ChainID != "1337" {
		t.Fatalf("unexpected chain id %q", snapshot.ChainID)
	}
	if snapshot.BlockNumber != 42 {
		t.Fatalf("unexpected block number %d", snapshot.BlockNumber)
	}
}

func TestFetchChainSnapshotErrors(t *testing.T) {
	t.Parallel()

	readerErr := errors.New("node unreachable")
	client := NewClientWithReader("devnet", &fakeReader{err: readerErr})
	if _, err := client.FetchChainSnapshot(context.Background()); !errors.Is(err, readerErr) {
		t.Fatalf("expected wrapped reader error, got %v", err)
	}

	client.Close()
	if _, err := client.FetchChainSnapshot(context.Background()); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestNewClientRequiresRPCURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(context.Background(), Config{Name: "ethereum"}); err == nil {
		t.Fatal("expected error for missing rpc url")
	}
}

var _ web3.Client = (*Client)(nil)
