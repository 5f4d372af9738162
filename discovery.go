package svcreg

import (
	"context"
)

// Transport is the discovery/presence layer feeding the registry. It owns
// the wire protocol; the registry only requires pre-parsed events with
// opaque comparable addresses and unordered capability sets.
type Transport interface {
	Events(ctx context.Context) (<-chan Event, error)
}

// Event is a single membership notification from the transport.
type Event interface {
	isEvent()
}

// NodeUp reports that a node with the given capabilities became reachable.
type NodeUp struct {
	Address  NodeAddress
	Features CapabilitySet
	Version  Version
}

func (NodeUp) isEvent() {}

// NodeDown reports that a node went offline.
type NodeDown struct {
	Address NodeAddress
}

func (NodeDown) isEvent() {}

// HealthCheckFailed reports an out-of-band bridge health failure,
// independent of discovery/loss.
type HealthCheckFailed struct {
	Address NodeAddress
}

func (HealthCheckFailed) isEvent() {}

var (
	_ Event = NodeUp{}
	_ Event = NodeDown{}
	_ Event = HealthCheckFailed{}
)
