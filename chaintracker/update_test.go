package chaintracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainUpdate_DedupedOps(t *testing.T) {
	reminedOp := fakeMinedOp(101, entryPointV06Addr)
	stillMined := fakeMinedOp(102, entryPointV06Addr)
	stillUnmined := fakeMinedOp(103, entryPointV06Addr)

	update := &ChainUpdate{
		MinedOps:   []MinedOp{reminedOp, stillMined},
		UnminedOps: []MinedOp{reminedOp, stillUnmined},
	}

	deduped := update.DedupedOps()
	requireMinedOpsEqual(t, []MinedOp{stillMined}, deduped.MinedOps)
	requireMinedOpsEqual(t, []MinedOp{stillUnmined}, deduped.UnminedOps)

	// Original lists are untouched by computing the dedup view.
	require.Len(t, update.MinedOps, 2)
	require.Len(t, update.UnminedOps, 2)
}

func TestChainUpdate_DedupedOps_NoOverlap(t *testing.T) {
	mined := fakeMinedOp(1, entryPointV06Addr)
	unmined := fakeMinedOp(2, entryPointV06Addr)

	update := &ChainUpdate{
		MinedOps:   []MinedOp{mined},
		UnminedOps: []MinedOp{unmined},
	}

	deduped := update.DedupedOps()
	requireMinedOpsEqual(t, []MinedOp{mined}, deduped.MinedOps)
	requireMinedOpsEqual(t, []MinedOp{unmined}, deduped.UnminedOps)
}
