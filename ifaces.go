package svcreg

import (
	"github.com/confkit/svcreg/internal/classifier"
	"github.com/confkit/svcreg/internal/detector"
	"github.com/confkit/svcreg/internal/model"
)

type (
	NodeAddress   = model.NodeAddress
	CapabilitySet = model.CapabilitySet
	Version       = model.Version
	Role          = model.Role

	BridgePool      = model.BridgePool
	MetricsProvider = model.MetricsProvider
	Detector        = detector.Detector
)

const (
	RoleNone           = model.RoleNone
	RoleBridge         = model.RoleBridge
	RoleSipGateway     = model.RoleSipGateway
	RoleRoomService    = model.RoleRoomService
	RoleServerIdentity = model.RoleServerIdentity
)

// Classify maps an advertised capability set to at most one recognized
// role, in fixed precedence order (bridge, SIP gateway, room service).
func Classify(caps CapabilitySet) (Role, bool) {
	return classifier.Classify(caps)
}

// IsBridge reports whether the advertised capability set is sufficient
// for the media bridge role.
func IsBridge(caps CapabilitySet) bool {
	return classifier.IsBridge(caps)
}
