package chaintracker

import (
	"fmt"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MinedOp is a user operation observed mined in some block. It is uniquely
// identified, downstream, by its (Sender, Nonce) pair; Hash is the 32-byte
// userOpHash emitted by the entry point.
type MinedOp struct {
	Hash          common.Hash
	EntryPoint    common.Address
	Sender        common.Address
	Nonce         *uint256.Int
	ActualGasCost *uint256.Int

	// Paymaster is nil when the event's paymaster field decoded to the
	// zero address, i.e. the op had no paymaster.
	Paymaster *common.Address
}

// Equal reports structural equality, treating nil and zero *uint256.Int
// pointers as distinct only when one is nil and the other isn't.
func (m MinedOp) Equal(other MinedOp) bool {
	if m.Hash != other.Hash || m.EntryPoint != other.EntryPoint || m.Sender != other.Sender {
		return false
	}
	if !uint256Equal(m.Nonce, other.Nonce) || !uint256Equal(m.ActualGasCost, other.ActualGasCost) {
		return false
	}
	switch {
	case m.Paymaster == nil && other.Paymaster == nil:
		return true
	case m.Paymaster == nil || other.Paymaster == nil:
		return false
	default:
		return *m.Paymaster == *other.Paymaster
	}
}

func uint256Equal(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Eq(b)
}

// BalanceUpdate is an entry-point deposit or withdrawal affecting an
// address's stake.
type BalanceUpdate struct {
	Address    common.Address
	EntryPoint common.Address
	Amount     *uint256.Int
	IsAddition bool
}

// Equal reports structural equality.
func (b BalanceUpdate) Equal(other BalanceUpdate) bool {
	return b.Address == other.Address &&
		b.EntryPoint == other.EntryPoint &&
		b.IsAddition == other.IsAddition &&
		uint256Equal(b.Amount, other.Amount)
}

// BlockSummary is an immutable per-block record: identity, linkage to its
// parent, and the decoded entry-point events it contains. Once its ops and
// balance updates are loaded they are never mutated again.
type BlockSummary struct {
	Number         uint64
	Hash           common.Hash
	ParentHash     common.Hash
	Timestamp      uint64
	Ops            []MinedOp
	BalanceUpdates []BalanceUpdate
}

// newBlockSummaryWithoutOps converts a provider Block into a BlockSummary
// with empty op/balance-update lists. If expectedNumber is non-nil and
// disagrees with the block's actual number, it fails -- this is the single
// place that catches a provider returning inconsistent data, before that
// inconsistency can corrupt history indexing math downstream.
func newBlockSummaryWithoutOps(block Block, expectedNumber *uint64) (BlockSummary, error) {
	if expectedNumber != nil && block.Number != *expectedNumber {
		return BlockSummary{}, fmt.Errorf("%w: block number %d should match expected %d", ErrProviderInconsistent, block.Number, *expectedNumber)
	}
	return BlockSummary{
		Number:     block.Number,
		Hash:       block.Hash,
		ParentHash: block.ParentHash,
		Timestamp:  block.Timestamp,
	}, nil
}
