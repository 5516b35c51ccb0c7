package chaintracker

import (
	"context"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/goware/logger"
	"github.com/goware/superr"
	"golang.org/x/sync/semaphore"
)

// maxLoadOpsConcurrency bounds the number of in-flight GetLogs calls across
// an entire Chain, regardless of how many blocks a single sync needs to
// populate. This matters most when the history window is resynced from
// scratch and would otherwise fire HistorySize concurrent queries at the
// provider.
const maxLoadOpsConcurrency = 64

// ErrLogLoadFailed wraps a provider failure encountered while loading logs
// for one block.
var ErrLogLoadFailed = ErrProviderTransient

// logLoader fetches and decodes the mined ops and balance updates for one
// block at a time, anchored to that block's hash. It is the only component
// that calls Provider.GetLogs.
type logLoader struct {
	provider  Provider
	settings  Settings
	addresses []common.Address
	topics    []common.Hash
	sem       *semaphore.Weighted
	log       logger.Logger
}

func newLogLoader(provider Provider, settings Settings, log logger.Logger) *logLoader {
	addresses := make([]common.Address, 0, len(settings.EntryPointAddresses))
	for addr := range settings.EntryPointAddresses {
		addresses = append(addresses, addr)
	}
	return &logLoader{
		provider:  provider,
		settings:  settings,
		addresses: addresses,
		topics:    eventSignatureHashes(settings),
		sem:       semaphore.NewWeighted(maxLoadOpsConcurrency),
		log:       log,
	}
}

// loadOpsInBlock queries the provider for logs anchored to blockHash and
// decodes them into ops and balance updates, preserving log-emission order.
// A query-by-hash (never by number range) is mandatory: if the node is
// mid-reorg, a number-range query could straddle two competing chains,
// while a hash anchor guarantees the logs belong to that exact block.
func (l *logLoader) loadOpsInBlock(ctx context.Context, blockHash common.Hash) ([]MinedOp, []BalanceUpdate, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	defer l.sem.Release(1)

	logs, err := l.provider.GetLogs(ctx, LogFilter{
		Addresses: l.addresses,
		Topics:    l.topics,
		BlockHash: blockHash,
	})
	if err != nil {
		return nil, nil, superr.New(ErrLogLoadFailed, err)
	}

	var ops []MinedOp
	var balanceUpdates []BalanceUpdate
	for _, raw := range logs {
		version, ok := l.settings.EntryPointAddresses[raw.Address]
		if !ok {
			l.log.Warnf("chaintracker: log with unknown entry point address: %s. ignoring.", raw.Address.Hex())
			continue
		}
		decoded := decodeLog(raw, version, l.log)
		if decoded.MinedOp != nil {
			ops = append(ops, *decoded.MinedOp)
		}
		if decoded.BalanceUpdate != nil {
			balanceUpdates = append(balanceUpdates, *decoded.BalanceUpdate)
		}
	}
	return ops, balanceUpdates, nil
}
