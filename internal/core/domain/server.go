package domain

import "time"

// Liveness is the observed state of a neighbor server.
type Liveness int

const (
	// LivenessUnknown means no heartbeat has completed yet. Unknown
	// neighbors are still included in fan-out.
	LivenessUnknown Liveness = iota

	// LivenessUp means the neighbor answered its last heartbeat.
	LivenessUp

	// LivenessDown means the neighbor missed enough consecutive
	// heartbeats to be excluded from fan-out.
	LivenessDown
)

// String returns the liveness state name.
func (l Liveness) String() string {
	switch l {
	case LivenessUp:
		return "up"
	case LivenessDown:
		return "down"
	default:
		return "unknown"
	}
}

// ServerNode describes one mesh server, either self or a neighbor.
// Neighbors are statically configured; there is no auto-discovery.
type ServerNode struct {
	// ID is the unique server identifier in the mesh.
	ID string

	// Address is the base URL peers use to reach the server.
	Address string

	// Liveness is the current observed state.
	Liveness Liveness

	// MissedHeartbeats counts consecutive failed heartbeats.
	MissedHeartbeats int

	// LastSeen is when the last successful heartbeat completed.
	LastSeen time.Time
}
