package model

// BridgePool is the collaborator owning the multi-valued bridge membership.
// The registry forwards every bridge classification and loss to it verbatim
// and performs no local bookkeeping for bridges. Implementations must make
// Add and Remove idempotent.
type BridgePool interface {
	MetricsProvider
	Add(addr NodeAddress, version Version) error
	Remove(addr NodeAddress) error
	Contains(addr NodeAddress) bool
	Version(addr NodeAddress) (Version, bool)
}
