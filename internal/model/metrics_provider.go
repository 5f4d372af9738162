package model

import "github.com/prometheus/client_golang/prometheus"

// MetricsProvider is implemented by every component exposing its own
// prometheus collectors for the embedding process to register.
type MetricsProvider interface {
	Metrics() []prometheus.Collector
}
