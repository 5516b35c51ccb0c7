package chaintracker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/goware/channel"
	"github.com/goware/logger"
)

// Subscription is a handle returned by Watcher.Subscribe. Updates is closed
// when Unsubscribe is called; callers should range over it rather than
// reading once.
type Subscription interface {
	Updates() <-chan *ChainUpdate
	Done() <-chan struct{}
	Unsubscribe()
}

type subscriber struct {
	ch          channel.Channel[*ChainUpdate]
	done        chan struct{}
	unsubscribe func()
}

func (s *subscriber) Updates() <-chan *ChainUpdate { return s.ch.ReadChannel() }
func (s *subscriber) Done() <-chan struct{}        { return s.done }
func (s *subscriber) Unsubscribe()                 { s.unsubscribe() }

// Watcher is the long-running task that owns a Chain: it polls the provider
// for new heads, drives SyncToBlock, and fans every resulting ChainUpdate
// out to subscribers. Grounded on ethmonitor.Monitor's Run/monitor/Subscribe
// trio -- same shutdown-via-context shape, same subscriber-list-plus-mutex
// fan-out, same goware/channel unbounded-channel transport.
type Watcher struct {
	chain    *Chain
	provider Provider
	settings Settings
	log      logger.Logger

	running int32

	mu          sync.Mutex
	subscribers []*subscriber
}

// NewWatcher constructs a Watcher driving chain. log may be nil, in which
// case a WARN-level logger is used.
func NewWatcher(chain *Chain, provider Provider, settings Settings, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.NewLogger(logger.LogLevel_WARN)
	}
	return &Watcher{
		chain:    chain,
		provider: provider,
		settings: settings,
		log:      log,
	}
}

// IsRunning reports whether Run is currently executing.
func (w *Watcher) IsRunning() bool {
	return atomic.LoadInt32(&w.running) == 1
}

// Run drives the watch loop until ctx is done. It returns nil on a clean
// shutdown. It must not be called concurrently with itself.
func (w *Watcher) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return fmt.Errorf("chaintracker: watcher is already running")
	}
	defer atomic.StoreInt32(&w.running, 0)

	return w.watch(ctx)
}

func (w *Watcher) watch(ctx context.Context) error {
	lastSeen := lastKnownHash(w.chain)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		head, err := waitForNewBlock(ctx, w.provider, lastSeen, w.settings.PollInterval, w.log)
		if err != nil {
			return nil
		}
		lastSeen = head.Hash

		update, ok := w.syncWithRetries(ctx, head)
		if !ok {
			continue
		}
		w.broadcast(update)
	}
}

// syncWithRetries attempts SyncToBlock up to MaxSyncRetries+1 times,
// sleeping PollInterval between attempts, matching wait_for_update's
// `for i in 0..=max_sync_retries` loop. Every attempt past the first counts
// against chaintracker_sync_retries_total, mirroring chain.rs's
// `if i > 0 { self.metrics.sync_retries.increment(1) }`. Returns ok=false if
// every attempt failed, having already incremented the abandoned counter.
func (w *Watcher) syncWithRetries(ctx context.Context, head Block) (*ChainUpdate, bool) {
	for attempt := uint64(0); attempt <= w.settings.MaxSyncRetries; attempt++ {
		if attempt > 0 {
			w.chain.metrics.syncRetries.Inc()
		}
		update, err := w.chain.SyncToBlock(ctx, head)
		if err == nil {
			return update, true
		}
		w.log.Warnf("chaintracker: failed to update chain at block %s: %v", head.Hash.Hex(), err)

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(w.settings.PollInterval):
		}
	}

	w.log.Warnf("chaintracker: failed to sync to block %s after %d retries. abandoning.", head.Hash.Hex(), w.settings.MaxSyncRetries)
	w.chain.metrics.syncAbandoned.Inc()
	return nil, false
}

func (w *Watcher) broadcast(update *ChainUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscribers {
		sub.ch.Send(update)
	}
}

// Subscribe registers a new subscriber and returns a handle to receive every
// future ChainUpdate. The returned channel is unbounded with a bounded
// internal buffer (goware/channel): a subscriber that falls far behind has
// old updates dropped rather than blocking the watcher, matching
// ethmonitor.Monitor.Subscribe's transport.
func (w *Watcher) Subscribe() Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()

	sub := &subscriber{
		ch:   channel.NewUnboundedChan[*ChainUpdate](w.log, 100, 5000),
		done: make(chan struct{}),
	}
	sub.unsubscribe = func() {
		close(sub.done)
		sub.ch.Close()
		sub.ch.Flush()

		w.mu.Lock()
		defer w.mu.Unlock()
		for i, s := range w.subscribers {
			if s == sub {
				w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
				return
			}
		}
	}

	w.subscribers = append(w.subscribers, sub)
	return sub
}

// lastKnownHash returns the hash of the currently tracked head, or the zero
// hash if the chain hasn't been initialized yet -- the watcher's first poll
// then accepts whatever head the provider reports, since any hash differs
// from the zero hash.
func lastKnownHash(chain *Chain) common.Hash {
	back, ok := chain.hist.back()
	if !ok {
		return common.Hash{}
	}
	return back.Hash
}
