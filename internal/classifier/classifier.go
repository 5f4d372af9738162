package classifier

import (
	"github.com/confkit/svcreg/internal/model"
	"github.com/samber/lo"
)

// Feature namespaces advertised by the cluster components we recognize.
const (
	FeatureColibri  = "http://jitsi.org/protocol/colibri"
	FeatureDtlsSrtp = "urn:xmpp:jingle:apps:dtls:0"
	FeatureIceUdp   = "urn:xmpp:jingle:transports:ice-udp:1"
	FeatureRawUdp   = "urn:xmpp:jingle:transports:raw-udp:1"

	FeatureSipGateway = "http://jitsi.org/protocol/jigasi"
	FeatureRayo       = "urn:xmpp:rayo:0"

	FeatureMuc = "http://jabber.org/protocol/muc"
)

// BridgeFeatures is the set of features sufficient for a node to be
// recognized as a media bridge.
var BridgeFeatures = []string{
	FeatureColibri,
	FeatureDtlsSrtp,
	FeatureIceUdp,
	FeatureRawUdp,
}

// SipGatewayFeatures is the set of features advertised by the SIP gateway
// component.
var SipGatewayFeatures = []string{
	FeatureSipGateway,
	FeatureRayo,
}

// RoomServiceFeatures is the set of features advertised by the
// multiplexing/room service.
var RoomServiceFeatures = []string{
	FeatureMuc,
}

type rule struct {
	role     model.Role
	required []string
}

// rules are evaluated in fixed precedence order; the first rule whose
// required features are all present in the advertised set wins.
var rules = []rule{
	{model.RoleBridge, BridgeFeatures},
	{model.RoleSipGateway, SipGatewayFeatures},
	{model.RoleRoomService, RoomServiceFeatures},
}

// Classify maps an advertised capability set to at most one recognized role.
// RoleServerIdentity is never returned: identity matching is address-based
// and performed by the registry directly. An empty or unrecognized set
// yields ok == false, never an error.
func Classify(caps model.CapabilitySet) (model.Role, bool) {
	feats := []string(caps)
	for _, r := range rules {
		if lo.Every(feats, r.required) {
			return r.role, true
		}
	}
	return model.RoleNone, false
}

// IsBridge reports whether the given capability set complies with the
// bridge feature list.
func IsBridge(caps model.CapabilitySet) bool {
	return lo.Every([]string(caps), BridgeFeatures)
}
