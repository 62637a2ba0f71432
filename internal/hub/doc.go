// Package hub is the coordination core: it owns the agent registry, the
// correlation router, and the pool of concurrently running disruption
// cases, and it exposes the three external surfaces of the system.
//
// Intake: SubmitDisruption accepts a disruption event, opens a case, and
// drives it in the background. Decision: GetDecision and Acknowledge let
// consumers poll a case's outcome and close it. Agent-facing: Attach binds
// an agent channel to the hub, serving the register/heartbeat/response
// wire protocol over it.
//
// There is no process-wide singleton; each Hub instance is self-contained,
// so tests run multiple independent hubs side by side.
package hub
