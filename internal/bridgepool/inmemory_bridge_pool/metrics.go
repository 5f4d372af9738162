package inmemory_bridge_pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	addRequestsCnt    prometheus.Counter
	removeRequestsCnt prometheus.Counter
	poolSizeGauge     prometheus.GaugeFunc
}

func newMetrics(pool *inmemoryBridgePool) *metrics {
	const ss = "inmemory_bridge_pool"

	return &metrics{
		addRequestsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "add_requests_cnt",
			Subsystem: ss,
			Help:      "Count of incoming add requests",
		}),
		removeRequestsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "remove_requests_cnt",
			Subsystem: ss,
			Help:      "Count of incoming remove requests",
		}),
		poolSizeGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:      "pool_size_gauge",
			Subsystem: ss,
			Help:      "Actual count of bridges in pool",
		}, func() float64 {
			return float64(pool.size())
		}),
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.addRequestsCnt,
		m.removeRequestsCnt,
		m.poolSizeGauge,
	}
}
