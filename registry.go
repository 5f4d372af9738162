package svcreg

import (
	"context"
	"fmt"
	"slices"

	"github.com/confkit/svcreg/internal/bridgepool/inmemory_bridge_pool"
	"github.com/confkit/svcreg/internal/model"
	"github.com/confkit/svcreg/internal/processor"
	"github.com/horockey/go-toolbox/options"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry maintains the live view of which cluster role is bound to which
// node address. It consumes discovery/loss/health events from an external
// transport and exposes the current bindings to the rest of the process.
//
// Construct with New, call Init before dispatching events, Dispose when done.
type Registry struct {
	*processor.Processor
	pool model.BridgePool
}

func New(
	cfg Config,
	opts ...options.Option[createRegistryParams],
) (*Registry, error) {
	params := defaultCreateRegistryParams()
	if err := options.ApplyOptions(&params, opts...); err != nil {
		return nil, fmt.Errorf("applying opts: %w", err)
	}

	if params.pool == nil {
		params.pool = inmemory_bridge_pool.New(
			params.logger.With().Str("scope", "bridge_pool").Logger(),
		)
	}

	proc := processor.New(
		model.NodeAddress(cfg.ServerAddress),
		params.pool,
		cfg.RecorderBrewery,
		cfg.SipRecorderBrewery,
		cfg.TranscriberBrewery,
		params.logger,
	)

	return &Registry{
		Processor: proc,
		pool:      params.pool,
	}, nil
}

// BridgePool returns the pool the registry forwards bridge events to.
func (reg *Registry) BridgePool() BridgePool {
	return reg.pool
}

// Dispatch routes a single transport event to the matching handler.
func (reg *Registry) Dispatch(ev Event) error {
	switch ev := ev.(type) {
	case NodeUp:
		return reg.OnNodeDiscovered(ev.Address, ev.Features, ev.Version)
	case NodeDown:
		return reg.OnNodeLost(ev.Address)
	case HealthCheckFailed:
		return reg.OnHealthCheckFailed(ev.Address)
	default:
		return fmt.Errorf("unknown event type %T", ev)
	}
}

// Run drains the transport's event channel until ctx is cancelled or the
// channel is closed. It is the single-writer dispatch context: events are
// applied one at a time, in arrival order. A dispatch error stops the loop
// and is returned, since the registry has no recovery strategy for a
// failed downstream pool operation.
func (reg *Registry) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("running context: %w", ctx.Err())
		case ev, open := <-events:
			if !open {
				return nil
			}
			if err := reg.Dispatch(ev); err != nil {
				return fmt.Errorf("dispatching event: %w", err)
			}
		}
	}
}

// Consume subscribes to the transport and runs the dispatch loop.
func (reg *Registry) Consume(ctx context.Context, tr Transport) error {
	events, err := tr.Events(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to transport: %w", err)
	}

	return reg.Run(ctx, events)
}

func (reg *Registry) Metrics() []prometheus.Collector {
	cols := slices.Concat(
		reg.Processor.Metrics(),
		reg.pool.Metrics(),
	)

	for _, get := range []func() (*Detector, bool){
		reg.RecorderDetector,
		reg.SipRecorderDetector,
		reg.TranscriberDetector,
	} {
		if d, ok := get(); ok {
			cols = append(cols, d.Metrics()...)
		}
	}

	return cols
}
