package chaintracker

import (
	"context"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/goware/logger"
)

// waitForNewBlock polls the provider for its current head until it observes
// one whose hash differs from lastSeen, or ctx is done. It mirrors
// ethmonitor.Monitor.monitor's time.After(pollInterval) head-poll, pulled
// out into its own function the way the original implementation's
// block_watcher::wait_for_new_block is a free function rather than a method
// on the sync engine -- the watcher's head-discovery concern is independent
// of the engine's reconciliation concern.
//
// A transient provider error is logged and retried on the same interval;
// it never aborts the wait.
func waitForNewBlock(ctx context.Context, provider Provider, lastSeen common.Hash, pollInterval time.Duration, log logger.Logger) (Block, error) {
	for {
		select {
		case <-ctx.Done():
			return Block{}, ctx.Err()
		case <-time.After(pollInterval):
		}

		head, err := provider.GetLatestBlock(ctx)
		if err != nil {
			log.Warnf("chaintracker: error fetching latest block: %v. retrying...", err)
			continue
		}
		if head == nil {
			log.Warnf("chaintracker: provider returned no latest block. retrying...")
			continue
		}
		if head.Hash == lastSeen {
			continue
		}
		return *head, nil
	}
}
