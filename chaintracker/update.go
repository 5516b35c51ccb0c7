package chaintracker

import "github.com/0xsequence/ethkit/go-ethereum/common"

// ChainUpdate describes one transition of the tracked chain: the new
// canonical head, the blocks the history window now forgets, and every
// mined/unmined op and balance update the transition implies. It is
// produced once per successful SyncToBlock call and shared by reference
// among every subscriber of a Watcher.
type ChainUpdate struct {
	LatestBlockNumber    uint64
	LatestBlockHash      common.Hash
	LatestBlockTimestamp uint64

	// EarliestRememberedBlockNumber is the number of the oldest block
	// still in the history window. Blocks before this number are no
	// longer tracked, so no further updates related to them will be sent.
	EarliestRememberedBlockNumber uint64

	// ReorgDepth is the number of previously-tracked blocks this update
	// discarded. Zero means a pure advance.
	ReorgDepth uint64

	MinedOps                    []MinedOp
	UnminedOps                  []MinedOp
	EntityBalanceUpdates        []BalanceUpdate
	UnminedEntityBalanceUpdates []BalanceUpdate

	// ReorgLargerThanHistory is true when ReorgDepth >= the configured
	// history size, meaning the reorg reached back further than this
	// tracker could have verified against its own remembered chain.
	ReorgLargerThanHistory bool
}

// DedupedOps is a view over a ChainUpdate with ops that appear in both
// MinedOps and UnminedOps removed from both sides. Those ops were reorged
// out and re-mined within the same update and should be treated as no-ops
// by consumers tracking mined/unmined state transitions.
type DedupedOps struct {
	MinedOps   []MinedOp
	UnminedOps []MinedOp
}

// DedupedOps computes the dedup view described above. It does not mutate
// the update's own MinedOps/UnminedOps fields. Consumers are expected to
// call this themselves; a single ChainUpdate's own lists may contain
// duplicates by design.
func (u *ChainUpdate) DedupedOps() DedupedOps {
	minedHashes := make(map[common.Hash]struct{}, len(u.MinedOps))
	for _, op := range u.MinedOps {
		minedHashes[op.Hash] = struct{}{}
	}
	unminedHashes := make(map[common.Hash]struct{}, len(u.UnminedOps))
	for _, op := range u.UnminedOps {
		unminedHashes[op.Hash] = struct{}{}
	}

	mined := make([]MinedOp, 0, len(u.MinedOps))
	for _, op := range u.MinedOps {
		if _, inUnmined := unminedHashes[op.Hash]; !inUnmined {
			mined = append(mined, op)
		}
	}
	unmined := make([]MinedOp, 0, len(u.UnminedOps))
	for _, op := range u.UnminedOps {
		if _, inMined := minedHashes[op.Hash]; !inMined {
			unmined = append(unmined, op)
		}
	}
	return DedupedOps{MinedOps: mined, UnminedOps: unmined}
}
