package chaintracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func block(n uint64) BlockSummary {
	return BlockSummary{Number: n, Hash: testHash(byte(n))}
}

func TestHistory_PushPopTrim(t *testing.T) {
	h := newHistory()
	require.True(t, h.empty())

	h.pushBack(block(0), block(1), block(2))
	require.Equal(t, 3, h.len())

	front, ok := h.front()
	require.True(t, ok)
	require.Equal(t, uint64(0), front.Number)

	back, ok := h.back()
	require.True(t, ok)
	require.Equal(t, uint64(2), back.Number)

	h.pushBack(block(3))
	h.trimFrontTo(3)
	require.Equal(t, 3, h.len())
	front, _ = h.front()
	require.Equal(t, uint64(1), front.Number)
}

func TestHistory_BlockWithNumber(t *testing.T) {
	h := newHistory()
	h.pushBack(block(5), block(6), block(7))

	b, ok := h.blockWithNumber(6)
	require.True(t, ok)
	require.Equal(t, uint64(6), b.Number)

	_, ok = h.blockWithNumber(4)
	require.False(t, ok)

	_, ok = h.blockWithNumber(8)
	require.False(t, ok)
}

func TestHistory_PopBackAndLastN(t *testing.T) {
	h := newHistory()
	h.pushBack(block(0), block(1), block(2))

	last2 := h.lastN(2)
	require.Len(t, last2, 2)
	require.Equal(t, uint64(1), last2[0].Number)
	require.Equal(t, uint64(2), last2[1].Number)

	popped, ok := h.popBack()
	require.True(t, ok)
	require.Equal(t, uint64(2), popped.Number)
	require.Equal(t, 2, h.len())
}

func TestHistory_ReplaceAndSnapshot(t *testing.T) {
	h := newHistory()
	h.pushBack(block(0))
	h.replace([]BlockSummary{block(10), block(11)})

	snap := h.snapshot()
	require.Len(t, snap, 2)
	snap[0].Number = 999 // mutating the snapshot must not affect internal state
	front, _ := h.front()
	require.Equal(t, uint64(10), front.Number)
}
