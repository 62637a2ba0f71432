// Package caseflow owns the lifecycle of one disruption case from intake
// through decision to closure.
//
// A Case moves through Intake, Dispatching, Arbitrating and Decided to
// Closed, with an absorbing Escalated state reachable when no capable
// agents exist or when arbitration has nothing actionable to work with.
// Every transition is validated against the state machine and appended to
// the case's audit log; invalid transitions and double decisions are
// programming faults and are reported, never silently corrected.
//
// The Workflow drives a case end to end: it asks the registry for capable
// agents, hands the fan-out to the dispatcher, folds the outcomes into
// arbitration contributions, and records the decision. Cases run
// concurrently and independently; no case touches another case's state.
package caseflow
