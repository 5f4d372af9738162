package processor

import (
	"github.com/horockey/go-toolbox/prometheus_helpers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	dispatchTimeHist prometheus.Histogram
	discoveredCnt    prometheus.Counter
	lostCnt          prometheus.Counter
	healthFailedCnt  prometheus.Counter
	ignoredCnt       prometheus.Counter
	boundRolesGauge  prometheus.GaugeFunc
}

func newMetrics(pr *Processor) *metrics {
	const ss = "registry"

	return &metrics{
		dispatchTimeHist: prometheus.NewHistogram(*prometheus_helpers.NewHistOpts(
			"dispatch_time_hist",
			prometheus_helpers.HistOptsWithSubsystem(ss),
			prometheus_helpers.HistOptsWithHelp("Event dispatch time distribution"),
		)),
		discoveredCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "discovered_events_cnt",
			Subsystem: ss,
			Help:      "Count of handled node-discovered events",
		}),
		lostCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "lost_events_cnt",
			Subsystem: ss,
			Help:      "Count of handled node-lost events",
		}),
		healthFailedCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "health_failed_events_cnt",
			Subsystem: ss,
			Help:      "Count of handled health-check-failed events",
		}),
		ignoredCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "ignored_discoveries_cnt",
			Subsystem: ss,
			Help:      "Count of discoveries that caused no state change",
		}),
		boundRolesGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:      "bound_singleton_roles_gauge",
			Subsystem: ss,
			Help:      "Actual count of bound singleton roles",
		}, func() float64 {
			return float64(pr.boundRolesCount())
		}),
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.dispatchTimeHist,
		m.discoveredCnt,
		m.lostCnt,
		m.healthFailedCnt,
		m.ignoredCnt,
		m.boundRolesGauge,
	}
}
