package chaintracker

import (
	"context"
	"fmt"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/goware/logger"
	"github.com/goware/superr"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// syncErrorCountMax is the number of consecutive stale-head classifications
// after which the engine gives up trying to advance incrementally and
// forces a reset-and-initialize instead.
const syncErrorCountMax = 50

// Chain holds the currently known recent state of the chain and the logic
// to update itself. It is the sync engine (component C5): calling
// SyncToBlock queries the provider to determine the new state of the
// chain, reconciles that against its own remembered history, mutates the
// history window, and returns a ChainUpdate describing what changed.
//
// A Chain is not safe for concurrent SyncToBlock calls: it owns the history
// buffer exclusively and is meant to be driven serially by one Watcher.
type Chain struct {
	provider Provider
	settings Settings
	hist     *history
	loader   *logLoader
	metrics  *metrics
	log      logger.Logger

	syncErrorCount uint64
}

// NewChain constructs a Chain. reg may be nil, in which case metrics
// register against prometheus.DefaultRegisterer; log may be nil, in which
// case a WARN-level logger is used.
func NewChain(provider Provider, settings Settings, log logger.Logger, reg prometheus.Registerer) (*Chain, error) {
	if settings.HistorySize == 0 {
		return nil, fmt.Errorf("chaintracker: history size should be positive")
	}
	if log == nil {
		log = logger.NewLogger(logger.LogLevel_WARN)
	}
	return &Chain{
		provider: provider,
		settings: settings,
		hist:     newHistory(),
		loader:   newLogLoader(provider, settings, log),
		metrics:  newMetrics(reg),
		log:      log,
	}, nil
}

// History returns a read-only snapshot of the currently tracked blocks,
// oldest first.
func (c *Chain) History() []BlockSummary {
	return c.hist.snapshot()
}

// SyncToBlock reconciles the tracker's history against a newly observed
// head block and returns a ChainUpdate describing the transition.
func (c *Chain) SyncToBlock(ctx context.Context, newHead Block) (*ChainUpdate, error) {
	head, err := newBlockSummaryWithoutOps(newHead, nil)
	if err != nil {
		return nil, err
	}

	currentBack, ok := c.hist.back()
	if !ok {
		return c.resetAndInitialize(ctx, head)
	}

	currentBlockNumber := currentBack.Number
	newBlockNumber := head.Number

	if currentBlockNumber > newBlockNumber+c.settings.HistorySize {
		c.syncErrorCount++
		if c.syncErrorCount >= syncErrorCountMax {
			return c.resetAndInitialize(ctx, head)
		}
		return nil, fmt.Errorf("%w: new block number %d should be greater than start of history (current block %d)", ErrStaleHead, newBlockNumber, currentBlockNumber)
	}

	if currentBlockNumber+c.settings.HistorySize < newBlockNumber {
		c.log.Warnf("chaintracker: new block %d is %d blocks ahead of the previously known head. chain history will skip ahead.",
			newBlockNumber, newBlockNumber-currentBlockNumber)
		return c.resetAndInitialize(ctx, head)
	}

	added, err := c.loadAddedBlocksConnectingToExistingChain(ctx, currentBlockNumber, head)
	if err != nil {
		return nil, err
	}
	return c.updateWithBlocks(currentBlockNumber, added), nil
}

func (c *Chain) resetAndInitialize(ctx context.Context, head BlockSummary) (*ChainUpdate, error) {
	minBlockNumber := uint64(0)
	if head.Number+1 > c.settings.HistorySize {
		minBlockNumber = head.Number - (c.settings.HistorySize - 1)
	}

	blocks, err := c.loadBlocksBackToNumberNoOps(ctx, head, minBlockNumber)
	if err != nil {
		return nil, fmt.Errorf("should load full history when resetting chain: %w", err)
	}
	if err := c.loadOpsIntoBlockSummaries(ctx, blocks); err != nil {
		return nil, err
	}

	c.hist.replace(blocks)
	c.syncErrorCount = 0
	c.metrics.blockHeight.Set(float64(head.Number))

	mined, balanceUpdates := flattenBlocks(blocks)
	return c.newUpdate(0, mined, nil, balanceUpdates, nil, false), nil
}

// loadAddedBlocksConnectingToExistingChain loads the forward span from the
// new head back to one past the currently tracked head, then keeps walking
// backwards (replacing presumed-stale blocks) until the oldest loaded block
// connects to a still-valid block in the current history, or until it runs
// off the front of the tracked window.
func (c *Chain) loadAddedBlocksConnectingToExistingChain(ctx context.Context, currentBlockNumber uint64, newHead BlockSummary) ([]BlockSummary, error) {
	added, err := c.loadBlocksBackToNumberNoOps(ctx, newHead, currentBlockNumber+1)
	if err != nil {
		return nil, fmt.Errorf("chain should load blocks from last processed to latest block: %w", err)
	}
	if len(added) == 0 {
		return nil, fmt.Errorf("chaintracker: added blocks should never be empty")
	}

	for {
		earliest := added[0]
		if earliest.Number == 0 {
			break
		}
		presumedParent, ok := c.hist.blockWithNumber(earliest.Number - 1)
		if !ok {
			c.log.Warnf("chaintracker: reorg is deeper than chain history size (%d)", c.hist.len())
			break
		}
		if presumedParent.Hash == earliest.ParentHash {
			break
		}

		block, err := c.provider.GetBlock(ctx, earliest.ParentHash)
		if err != nil {
			return nil, fmt.Errorf("should load parent block when handling reorg: %w", superr.New(ErrProviderTransient, err))
		}
		if block == nil {
			return nil, fmt.Errorf("%w: block with parent hash of known block should exist", ErrProviderInconsistent)
		}
		expected := earliest.Number - 1
		summary, err := newBlockSummaryWithoutOps(*block, &expected)
		if err != nil {
			return nil, err
		}
		added = append([]BlockSummary{summary}, added...)
	}

	if err := c.loadOpsIntoBlockSummaries(ctx, added); err != nil {
		return nil, err
	}
	return added, nil
}

// fetchBlockWithRetries makes up to MaxSyncRetries attempts in total at a
// block-by-hash fetch, sleeping PollInterval after each failed attempt. Both a transport error and
// a "not found" response are treated as retryable. Returns (nil, nil) --
// not an error -- if every attempt is exhausted, matching the Option<Block>
// semantics this mirrors: the caller decides whether that's fatal.
func (c *Chain) fetchBlockWithRetries(ctx context.Context, hash common.Hash) (*Block, error) {
	for attempt := uint64(1); attempt <= c.settings.MaxSyncRetries; attempt++ {
		block, err := c.provider.GetBlock(ctx, hash)
		if err == nil && block != nil {
			return block, nil
		}
		if err != nil {
			c.log.Warnf("chaintracker: error fetching block with hash %s: %v. retrying... (attempt %d/%d)",
				hash.Hex(), err, attempt, c.settings.MaxSyncRetries)
		} else {
			c.log.Warnf("chaintracker: block with hash %s not found. retrying... (attempt %d/%d)",
				hash.Hex(), attempt, c.settings.MaxSyncRetries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.settings.PollInterval):
		}
	}

	c.log.Warnf("chaintracker: failed to fetch block with hash %s after %d attempts.", hash.Hex(), c.settings.MaxSyncRetries)
	return nil, nil
}

// loadBlocksBackToNumberNoOps walks parent hashes backwards from head until
// it reaches minBlockNumber, validating each fetched block's number against
// what it expects. Ops/balance updates are left empty -- callers populate
// them afterward, in parallel, via loadOpsIntoBlockSummaries.
func (c *Chain) loadBlocksBackToNumberNoOps(ctx context.Context, head BlockSummary, minBlockNumber uint64) ([]BlockSummary, error) {
	blocks := []BlockSummary{head}
	for blocks[0].Number > minBlockNumber {
		parentHash := blocks[0].ParentHash
		parent, err := c.fetchBlockWithRetries(ctx, parentHash)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("%w: unable to backtrack chain history beyond block number %d due to missing parent block",
				ErrProviderInconsistent, blocks[0].Number)
		}
		expected := blocks[0].Number - 1
		summary, err := newBlockSummaryWithoutOps(*parent, &expected)
		if err != nil {
			return nil, err
		}
		blocks = append([]BlockSummary{summary}, blocks...)
	}
	return blocks, nil
}

// loadOpsIntoBlockSummaries loads ops and balance updates for every block
// in blocks concurrently (bounded by the log loader's semaphore) and
// applies the results in block order. A single block's load failure fails
// the whole batch.
func (c *Chain) loadOpsIntoBlockSummaries(ctx context.Context, blocks []BlockSummary) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range blocks {
		i := i
		hash := blocks[i].Hash
		g.Go(func() error {
			ops, balanceUpdates, err := c.loader.loadOpsInBlock(gctx, hash)
			if err != nil {
				return fmt.Errorf("should load ops for new blocks: %w", err)
			}
			blocks[i].Ops = ops
			blocks[i].BalanceUpdates = balanceUpdates
			return nil
		})
	}
	return g.Wait()
}

// updateWithBlocks folds a newly loaded, possibly-overlapping span of
// blocks into the history buffer and returns the ChainUpdate describing
// the transition. added's front connects either directly to the current
// back of history (pure advance) or to some earlier still-valid block
// (reorg); reorgDepth is how many currently-tracked blocks that implies
// discarding.
func (c *Chain) updateWithBlocks(currentBlockNumber uint64, added []BlockSummary) *ChainUpdate {
	mined, balanceUpdates := flattenBlocks(added)

	reorgDepth := currentBlockNumber + 1 - added[0].Number
	unmined, unminedBalanceUpdates := flattenBlocks(c.hist.lastN(reorgDepth))

	reorgLargerThanHistory := reorgDepth >= c.settings.HistorySize

	for i := uint64(0); i < reorgDepth; i++ {
		c.hist.popBack()
	}
	c.hist.pushBack(added...)
	c.hist.trimFrontTo(c.settings.HistorySize)

	c.metrics.blockHeight.Set(float64(added[len(added)-1].Number))
	if reorgDepth > 0 {
		c.metrics.reorgsDetected.Inc()
		c.metrics.totalReorgDepth.Add(float64(reorgDepth))
	}

	return c.newUpdate(reorgDepth, mined, unmined, balanceUpdates, unminedBalanceUpdates, reorgLargerThanHistory)
}

func (c *Chain) newUpdate(reorgDepth uint64, mined, unmined []MinedOp, balanceUpdates, unminedBalanceUpdates []BalanceUpdate, reorgLargerThanHistory bool) *ChainUpdate {
	back, ok := c.hist.back()
	if !ok {
		panic("chaintracker: newUpdate should not be called when history is empty")
	}
	front, _ := c.hist.front()
	c.metrics.blockHeight.Set(float64(back.Number))
	return &ChainUpdate{
		LatestBlockNumber:             back.Number,
		LatestBlockHash:               back.Hash,
		LatestBlockTimestamp:          back.Timestamp,
		EarliestRememberedBlockNumber: front.Number,
		ReorgDepth:                    reorgDepth,
		MinedOps:                      mined,
		UnminedOps:                    unmined,
		EntityBalanceUpdates:          balanceUpdates,
		UnminedEntityBalanceUpdates:   unminedBalanceUpdates,
		ReorgLargerThanHistory:        reorgLargerThanHistory,
	}
}

func flattenBlocks(blocks []BlockSummary) ([]MinedOp, []BalanceUpdate) {
	var ops []MinedOp
	var balanceUpdates []BalanceUpdate
	for _, block := range blocks {
		ops = append(ops, block.Ops...)
		balanceUpdates = append(balanceUpdates, block.BalanceUpdates...)
	}
	return ops, balanceUpdates
}
