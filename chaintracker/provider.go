// Package chaintracker watches an EVM-compatible chain for new blocks, tracks
// a bounded sliding window of recent history, reconciles reorgs against that
// window, and publishes deltas describing which user operations (and
// entry-point balance changes) were mined, unmined, or re-mined.
package chaintracker

import (
	"context"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
)

// Block is the subset of block-header data the tracker needs from the
// provider. It intentionally carries no body/receipts -- those are fetched
// separately, by hash, through GetLogs.
type Block struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  uint64
}

// LogFilter anchors a log query to a specific block by hash rather than a
// number range: if the node is mid-reorg, logs returned for a hash are
// guaranteed to belong to that exact block, whereas a number-range query
// could silently straddle two competing chains.
type LogFilter struct {
	Addresses []common.Address
	Topics    []common.Hash
	BlockHash common.Hash
}

// Provider is the external collaborator this package depends on: a generic
// read-only view of chain state. Implementations are expected to be safe for
// concurrent use from multiple goroutines, since the sync engine fans
// GetLogs calls out in parallel.
//
// GetBlock returns (nil, nil) when no block exists for the given hash --
// callers distinguish "not found" from a transport error this way, matching
// the shape of the node RPCs this is meant to front.
//
// GetLatestBlock is the Go-idiomatic split of the "opaque block-hash or tag"
// selector this interface is modeled on: everywhere a specific ancestor is
// wanted, a hash is passed to GetBlock; the one place the tracker needs the
// chain's current tip (the head-watch poll), it calls GetLatestBlock
// instead of overloading GetBlock's argument with a sum type.
type Provider interface {
	GetBlock(ctx context.Context, hash common.Hash) (*Block, error)
	GetLatestBlock(ctx context.Context) (*Block, error)
	GetLogs(ctx context.Context, filter LogFilter) ([]types.Log, error)
}
