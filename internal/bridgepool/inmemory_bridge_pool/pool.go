package inmemory_bridge_pool

import (
	"slices"
	"sync"

	"github.com/confkit/svcreg/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var _ model.BridgePool = &inmemoryBridgePool{}

// inmemoryBridgePool is the default BridgePool: a plain in-memory bridge
// membership map. Selection/scoring on top of it is up to the embedding
// process.
type inmemoryBridgePool struct {
	mu      sync.RWMutex
	bridges map[model.NodeAddress]model.Version

	logger  zerolog.Logger
	metrics *metrics
}

func New(logger zerolog.Logger) *inmemoryBridgePool {
	pool := inmemoryBridgePool{
		bridges: map[model.NodeAddress]model.Version{},
		logger:  logger,
	}

	pool.metrics = newMetrics(&pool)

	return &pool
}

// Add registers a bridge address. Re-adding a known address only refreshes
// its version metadata; duplicate discovery broadcasts are expected.
func (pool *inmemoryBridgePool) Add(addr model.NodeAddress, version model.Version) error {
	pool.metrics.addRequestsCnt.Inc()

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if _, known := pool.bridges[addr]; !known {
		pool.logger.Info().Str("bridge", addr.String()).Msg("bridge added to pool")
	}
	pool.bridges[addr] = version

	return nil
}

// Remove unregisters a bridge address. Unknown addresses are a no-op.
func (pool *inmemoryBridgePool) Remove(addr model.NodeAddress) error {
	pool.metrics.removeRequestsCnt.Inc()

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if _, known := pool.bridges[addr]; !known {
		return nil
	}

	delete(pool.bridges, addr)
	pool.logger.Info().Str("bridge", addr.String()).Msg("bridge removed from pool")

	return nil
}

func (pool *inmemoryBridgePool) Contains(addr model.NodeAddress) bool {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	_, known := pool.bridges[addr]
	return known
}

func (pool *inmemoryBridgePool) Version(addr model.NodeAddress) (model.Version, bool) {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	version, known := pool.bridges[addr]
	return version, known
}

// Addresses returns all registered bridge addresses in stable order.
func (pool *inmemoryBridgePool) Addresses() []model.NodeAddress {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	addrs := make([]model.NodeAddress, 0, len(pool.bridges))
	for addr := range pool.bridges {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	return addrs
}

func (pool *inmemoryBridgePool) size() int {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	return len(pool.bridges)
}

func (pool *inmemoryBridgePool) Metrics() []prometheus.Collector {
	return pool.metrics.list()
}
