// Package registry tracks the agents connected to the hub: their advertised
// capabilities, their liveness, and the channel the hub uses to reach them.
//
// Liveness transitions are monotonic within a connection epoch:
//
//	Connected → Unresponsive → Connected   (heartbeat recovered in time)
//	Connected → Unresponsive → Disconnected (grace period expired)
//
// A Disconnected agent must register again, which opens a new epoch with a
// new registration ID. Heartbeats carrying a registration ID from a closed
// epoch are rejected.
//
// A background sweep (Start/Stop) compares each agent's last heartbeat
// against the configured timeout and grace period. Unresponsive and
// Disconnected agents are excluded from capability lookups, so a dispatch
// never selects an agent the hub already believes is gone.
package registry
