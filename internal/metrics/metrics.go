// Package metrics exposes Prometheus collectors for the scheduler and
// watchdog subsystems, registered via promauto the same way the teacher's
// indexserver registers its queue-depth gauges in
// cmd/zoekt-sourcegraph-indexserver/queue.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueLen is the number of reactions currently on the reaction queue,
	// across all levels.
	QueueLen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reactor_sched_queue_len",
		Help: "The number of reactions currently on the reaction queue.",
	})

	// IdleWorkers is the number of workers currently parked waiting for
	// work.
	IdleWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reactor_sched_idle_workers",
		Help: "The number of worker goroutines currently idle.",
	})

	// CurrentLevel is the dispatch level the scheduler is currently
	// distributing reactions from.
	CurrentLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reactor_sched_current_level",
		Help: "The reaction level currently being distributed.",
	})

	// TagAdvances counts successful calls to AdvanceTagLocked.
	TagAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reactor_sched_tag_advances_total",
		Help: "The total number of logical tag advances performed.",
	})

	// ReactionsExecuted counts reactions a worker has finished running.
	ReactionsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reactor_sched_reactions_executed_total",
		Help: "The total number of reactions that completed execution.",
	})

	// WatchdogFires counts watchdog timeout handler invocations, labeled
	// by watchdog name.
	WatchdogFires = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reactor_watchdog_fires_total",
		Help: "The total number of times a watchdog's handler has fired.",
	}, []string{"watchdog"})
)
