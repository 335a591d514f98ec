package sync

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	passCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bingelog",
		Subsystem: "sync",
		Name:      "passes_total",
		Help:      "Number of sync passes by result.",
	}, []string{"result"})

	pushedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bingelog",
		Subsystem: "sync",
		Name:      "records_pushed_total",
		Help:      "Number of local-only records created remotely by the push phase.",
	})

	replayCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bingelog",
		Subsystem: "sync",
		Name:      "queue_replays_total",
		Help:      "Number of offline queue replays by operation and outcome.",
	}, []string{"op", "outcome"})

	queueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bingelog",
		Subsystem: "sync",
		Name:      "queue_depth",
		Help:      "Number of operations waiting in the offline queue.",
	})
)

func init() {
	prometheus.MustRegister(passCounter, pushedCounter, replayCounter, queueDepthGauge)
}

// Pass results.
const (
	resultOK     = "ok"
	resultFailed = "failed"
)

// Replay outcomes.
const (
	outcomeApplied  = "applied"
	outcomeRequeued = "requeued"
)

func recordPass(err error) {
	if err != nil {
		passCounter.WithLabelValues(resultFailed).Inc()
		return
	}
	passCounter.WithLabelValues(resultOK).Inc()
}

func recordPushed(n int) {
	pushedCounter.Add(float64(n))
}

func recordReplay(op string, outcome string) {
	replayCounter.WithLabelValues(op, outcome).Inc()
}

func setQueueDepth(n int) {
	queueDepthGauge.Set(float64(n))
}
