package chaintracker

import "github.com/prometheus/client_golang/prometheus"

// metrics wraps the five named instruments from the tracker's metrics
// contract. Names are stable API: consumers scrape them by name, so they
// must not change independent of a deliberate spec revision.
type metrics struct {
	blockHeight     prometheus.Gauge
	reorgsDetected  prometheus.Counter
	totalReorgDepth prometheus.Counter
	syncRetries     prometheus.Counter
	syncAbandoned   prometheus.Counter
}

// newMetrics constructs the instrument set and registers it against reg. If
// reg is nil, prometheus.DefaultRegisterer is used. Tests should pass a
// fresh prometheus.NewRegistry() so repeated construction within one test
// binary doesn't collide on global registration, the same way the original
// ChainMetrics derive produced one fresh instance per Chain.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &metrics{
		blockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chaintracker_block_height",
			Help: "The height of the latest block in the tracked history window.",
		}),
		reorgsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chaintracker_reorgs_detected_total",
			Help: "The count of reorg events detected.",
		}),
		totalReorgDepth: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chaintracker_total_reorg_depth",
			Help: "The cumulative depth of all reorgs detected.",
		}),
		syncRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chaintracker_sync_retries_total",
			Help: "The count of whole-sync retry attempts.",
		}),
		syncAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chaintracker_sync_abandoned_total",
			Help: "The count of syncs abandoned after exhausting retries.",
		}),
	}
	reg.MustRegister(
		m.blockHeight,
		m.reorgsDetected,
		m.totalReorgDepth,
		m.syncRetries,
		m.syncAbandoned,
	)
	return m
}
