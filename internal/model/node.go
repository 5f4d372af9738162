package model

import "fmt"

// NodeAddress is the discovery-protocol address of a cluster node.
// It is opaque to the registry: equality is the only operation performed on it.
// The empty string is reserved for "no node".
type NodeAddress string

func (a NodeAddress) String() string {
	return string(a)
}

// CapabilitySet is the unordered list of feature identifiers a node
// advertises at discovery time. It is never mutated after delivery.
type CapabilitySet []string

// Version holds the optional name/version metadata attached to a node
// by the discovery transport.
type Version struct {
	Name    string
	Version string
}

func (v Version) String() string {
	return fmt.Sprintf("%s %s", v.Name, v.Version)
}
