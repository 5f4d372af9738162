package model

// Role is the cluster role a discovered node is classified into.
type Role uint8

const (
	RoleNone Role = iota
	// RoleBridge is the multi-valued media bridge role. Bridge membership
	// is owned by the BridgePool, not by the registry itself.
	RoleBridge
	// RoleSipGateway is the singleton SIP gateway role.
	RoleSipGateway
	// RoleRoomService is the singleton multiplexing/room service role.
	RoleRoomService
	// RoleServerIdentity is the signalling server itself. It is matched
	// by its configured address, never by capabilities.
	RoleServerIdentity
)

func (r Role) String() string {
	switch r {
	case RoleBridge:
		return "bridge"
	case RoleSipGateway:
		return "sip_gateway"
	case RoleRoomService:
		return "room_service"
	case RoleServerIdentity:
		return "server_identity"
	default:
		return "none"
	}
}
