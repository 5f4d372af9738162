package detector

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	upsCnt         prometheus.Counter
	downsCnt       prometheus.Counter
	instancesGauge prometheus.GaugeFunc
}

func newMetrics(d *Detector) *metrics {
	const ss = "detector"
	labels := prometheus.Labels{"brewery": d.brewery}

	return &metrics{
		upsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "instance_up_cnt",
			Subsystem:   ss,
			Help:        "Count of instance-up announcements",
			ConstLabels: labels,
		}),
		downsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "instance_down_cnt",
			Subsystem:   ss,
			Help:        "Count of instance-down announcements",
			ConstLabels: labels,
		}),
		instancesGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "instances_gauge",
			Subsystem:   ss,
			Help:        "Actual count of live instances in brewery",
			ConstLabels: labels,
		}, func() float64 {
			return float64(d.Count())
		}),
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.upsCnt,
		m.downsCnt,
		m.instancesGauge,
	}
}
