package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navtree_mutations_total",
		Help: "Total number of tree mutations, labelled by operation and status.",
	}, []string{"op", "status"})

	RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "navtree_rebuild_duration_ms",
		Help:    "Interval rebuild latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	})

	RepairCases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navtree_root_repairs_total",
		Help: "Total number of root repairs, labelled by the case that applied.",
	}, []string{"case"})

	TreeNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navtree_nodes",
		Help: "Number of nodes in the current snapshot.",
	})

	VisibleNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navtree_visible_nodes",
		Help: "Number of visible nodes in the current snapshot.",
	})

	SnapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navtree_snapshot_version",
		Help: "Version of the snapshot currently served to readers.",
	})

	MenuRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navtree_menu_requests_total",
		Help: "Total number of navigation queries, labelled by view.",
	}, []string{"view"})

	MenuCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navtree_menu_cache_total",
		Help: "Menu cache lookups, labelled by result (hit or miss).",
	}, []string{"result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "navtree_mutations_rate_limited_total",
		Help: "Total number of mutation requests rejected by the rate limiter.",
	})
)
