package detector

import (
	"slices"
	"sync"

	"github.com/confkit/svcreg/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Detector tracks the live instance set of a single brewery room
// (recorder, SIP recorder or transcriber pool). Instances announce
// themselves to the brewery; the embedding process relays those
// announcements here.
type Detector struct {
	brewery string

	mu        sync.RWMutex
	instances map[model.NodeAddress]model.Version
	disposed  bool

	logger  zerolog.Logger
	metrics *metrics
}

func New(brewery string, logger zerolog.Logger) *Detector {
	d := Detector{
		brewery:   brewery,
		instances: map[model.NodeAddress]model.Version{},
		logger:    logger.With().Str("brewery", brewery).Logger(),
	}

	d.metrics = newMetrics(&d)

	return &d
}

// Brewery returns the configured brewery room name this detector watches.
func (d *Detector) Brewery() string {
	return d.brewery
}

// InstanceUp records an instance as available. Repeated announcements
// from the same address update its version metadata.
func (d *Detector) InstanceUp(addr model.NodeAddress, version model.Version) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return
	}
	d.metrics.upsCnt.Inc()

	if _, known := d.instances[addr]; !known {
		d.logger.Info().Str("instance", addr.String()).Msg("instance joined brewery")
	}
	d.instances[addr] = version
}

// InstanceDown removes an instance. Unknown addresses are a no-op.
func (d *Detector) InstanceDown(addr model.NodeAddress) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, known := d.instances[addr]; !known {
		return
	}
	d.metrics.downsCnt.Inc()

	delete(d.instances, addr)
	d.logger.Info().Str("instance", addr.String()).Msg("instance left brewery")
}

// Instances returns the current instance addresses in stable order.
func (d *Detector) Instances() []model.NodeAddress {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addrs := make([]model.NodeAddress, 0, len(d.instances))
	for addr := range d.instances {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	return addrs
}

func (d *Detector) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.instances)
}

// Select picks an available instance, or ok == false when the brewery
// is empty. Selection is deterministic (lowest address) so that callers
// spread load via their own policy, not this one.
func (d *Detector) Select() (model.NodeAddress, bool) {
	addrs := d.Instances()
	if len(addrs) == 0 {
		return "", false
	}

	return addrs[0], true
}

// Dispose drops all tracked instances. Announcements arriving after
// Dispose are ignored.
func (d *Detector) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.instances = map[model.NodeAddress]model.Version{}
	d.disposed = true
}

func (d *Detector) Metrics() []prometheus.Collector {
	return d.metrics.list()
}
