// Package dispatch fans a disruption case's request out to its capable
// agents and collects their responses within a bounded deadline.
//
// Dispatch is the only blocking point in the hub: every other operation
// (registry lookups, arbitration, state transitions) computes synchronously
// and returns immediately. The dispatcher sends one request per agent,
// concurrently, each tagged with a fresh correlation ID, and waits until
// every agent has responded or the deadline elapses. A slow or dead agent
// delays nothing beyond the deadline and blocks nobody else.
//
// The Router is the correlation table between the dispatcher and the hub's
// per-agent receive loops: the dispatcher registers each outstanding
// correlation ID, the receive loops resolve them as responses arrive, and
// anything bearing an unknown or already-resolved correlation ID is
// discarded as stale.
//
// There are no retries here. A single attempt per agent per case; any
// retry policy belongs to the workflow above.
package dispatch
