package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "case.opened", "agent.registered").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Case Lifecycle Events
// -----------------------------------------------------------------------------

// CaseOpenedEvent is emitted when a disruption event is accepted at intake.
type CaseOpenedEvent struct {
	baseEvent
	CaseID         string // Unique identifier for the disruption case
	EventID        string // ID of the triggering disruption event
	DisruptionType string // Disruption type being handled
	Severity       int    // Severity of the disruption event
}

// NewCaseOpenedEvent creates a CaseOpenedEvent.
func NewCaseOpenedEvent(caseID, eventID, disruptionType string, severity int) CaseOpenedEvent {
	return CaseOpenedEvent{
		baseEvent:      newBaseEvent("case.opened"),
		CaseID:         caseID,
		EventID:        eventID,
		DisruptionType: disruptionType,
		Severity:       severity,
	}
}

// CaseTransitionedEvent is emitted on every workflow state transition.
// It is the bus-visible form of the case's audit log.
type CaseTransitionedEvent struct {
	baseEvent
	CaseID string // Case that transitioned
	From   string // State the case left
	To     string // State the case entered
	Cause  string // What triggered the transition
}

// NewCaseTransitionedEvent creates a CaseTransitionedEvent.
func NewCaseTransitionedEvent(caseID, from, to, cause string) CaseTransitionedEvent {
	return CaseTransitionedEvent{
		baseEvent: newBaseEvent("case.transitioned"),
		CaseID:    caseID,
		From:      from,
		To:        to,
		Cause:     cause,
	}
}

// DecisionReachedEvent is emitted when arbitration produces a decision.
type DecisionReachedEvent struct {
	baseEvent
	CaseID         string // Case the decision belongs to
	Recommendation string // Chosen recommendation kind
	Rule           string // Arbitration rule that fired
	Contributors   int    // Number of contributing agent responses
}

// NewDecisionReachedEvent creates a DecisionReachedEvent.
func NewDecisionReachedEvent(caseID, recommendation, rule string, contributors int) DecisionReachedEvent {
	return DecisionReachedEvent{
		baseEvent:      newBaseEvent("case.decided"),
		CaseID:         caseID,
		Recommendation: recommendation,
		Rule:           rule,
		Contributors:   contributors,
	}
}

// CaseEscalatedEvent is emitted when a case reaches the Escalated state.
type CaseEscalatedEvent struct {
	baseEvent
	CaseID string // Case that escalated
	Reason string // Why the case escalated
}

// NewCaseEscalatedEvent creates a CaseEscalatedEvent.
func NewCaseEscalatedEvent(caseID, reason string) CaseEscalatedEvent {
	return CaseEscalatedEvent{
		baseEvent: newBaseEvent("case.escalated"),
		CaseID:    caseID,
		Reason:    reason,
	}
}

// CaseClosedEvent is emitted when a case is acknowledged or cancelled.
type CaseClosedEvent struct {
	baseEvent
	CaseID    string // Case that closed
	Cancelled bool   // True if the case closed before a decision was reached
}

// NewCaseClosedEvent creates a CaseClosedEvent.
func NewCaseClosedEvent(caseID string, cancelled bool) CaseClosedEvent {
	return CaseClosedEvent{
		baseEvent: newBaseEvent("case.closed"),
		CaseID:    caseID,
		Cancelled: cancelled,
	}
}

// -----------------------------------------------------------------------------
// Dispatch Events
// -----------------------------------------------------------------------------

// RequestDispatchedEvent is emitted when a request is sent to an agent.
type RequestDispatchedEvent struct {
	baseEvent
	CaseID        string // Case the request belongs to
	Agent         string // Agent the request was sent to
	CorrelationID string // Correlation ID of the request
}

// NewRequestDispatchedEvent creates a RequestDispatchedEvent.
func NewRequestDispatchedEvent(caseID, agent, correlationID string) RequestDispatchedEvent {
	return RequestDispatchedEvent{
		baseEvent:     newBaseEvent("dispatch.request"),
		CaseID:        caseID,
		Agent:         agent,
		CorrelationID: correlationID,
	}
}

// ResponseReceivedEvent is emitted when an agent response resolves a
// pending request before the deadline.
type ResponseReceivedEvent struct {
	baseEvent
	CaseID         string        // Case the response belongs to
	Agent          string        // Agent that responded
	CorrelationID  string        // Correlation ID of the resolved request
	Recommendation string        // Recommendation kind in the response
	Confidence     float64       // Response confidence score
	Latency        time.Duration // Time between send and receive
}

// NewResponseReceivedEvent creates a ResponseReceivedEvent.
func NewResponseReceivedEvent(caseID, agent, correlationID, recommendation string, confidence float64, latency time.Duration) ResponseReceivedEvent {
	return ResponseReceivedEvent{
		baseEvent:      newBaseEvent("dispatch.response"),
		CaseID:         caseID,
		Agent:          agent,
		CorrelationID:  correlationID,
		Recommendation: recommendation,
		Confidence:     confidence,
		Latency:        latency,
	}
}

// RequestTimedOutEvent is emitted when a pending request hits the
// dispatch deadline without a matching response.
type RequestTimedOutEvent struct {
	baseEvent
	CaseID        string        // Case the request belongs to
	Agent         string        // Agent that failed to respond
	CorrelationID string        // Correlation ID of the abandoned request
	Waited        time.Duration // How long the dispatcher waited
}

// NewRequestTimedOutEvent creates a RequestTimedOutEvent.
func NewRequestTimedOutEvent(caseID, agent, correlationID string, waited time.Duration) RequestTimedOutEvent {
	return RequestTimedOutEvent{
		baseEvent:     newBaseEvent("dispatch.timeout"),
		CaseID:        caseID,
		Agent:         agent,
		CorrelationID: correlationID,
		Waited:        waited,
	}
}

// StaleResponseEvent is emitted when a response arrives bearing a
// correlation ID that is no longer outstanding. The response is discarded.
type StaleResponseEvent struct {
	baseEvent
	Agent         string // Agent that sent the stale response
	CorrelationID string // Correlation ID that did not match a pending request
}

// NewStaleResponseEvent creates a StaleResponseEvent.
func NewStaleResponseEvent(agent, correlationID string) StaleResponseEvent {
	return StaleResponseEvent{
		baseEvent:     newBaseEvent("dispatch.stale"),
		Agent:         agent,
		CorrelationID: correlationID,
	}
}

// -----------------------------------------------------------------------------
// Agent Lifecycle Events
// -----------------------------------------------------------------------------

// AgentRegisteredEvent is emitted when an agent registers with the hub.
type AgentRegisteredEvent struct {
	baseEvent
	Agent        string   // Agent name
	Capabilities []string // Disruption types the agent advertises
	Epoch        uint64   // Connection epoch opened by this registration
}

// NewAgentRegisteredEvent creates an AgentRegisteredEvent.
func NewAgentRegisteredEvent(agent string, capabilities []string, epoch uint64) AgentRegisteredEvent {
	return AgentRegisteredEvent{
		baseEvent:    newBaseEvent("agent.registered"),
		Agent:        agent,
		Capabilities: capabilities,
		Epoch:        epoch,
	}
}

// AgentUnresponsiveEvent is emitted when the liveness sweep marks an agent
// unresponsive. The agent is excluded from capability lookups until its
// next heartbeat.
type AgentUnresponsiveEvent struct {
	baseEvent
	Agent         string        // Agent that went quiet
	LastHeartbeat time.Duration // Time since the agent's last heartbeat
}

// NewAgentUnresponsiveEvent creates an AgentUnresponsiveEvent.
func NewAgentUnresponsiveEvent(agent string, lastHeartbeat time.Duration) AgentUnresponsiveEvent {
	return AgentUnresponsiveEvent{
		baseEvent:     newBaseEvent("agent.unresponsive"),
		Agent:         agent,
		LastHeartbeat: lastHeartbeat,
	}
}

// AgentDisconnectedEvent is emitted when an agent deregisters or its grace
// period expires. The agent must re-register to participate again.
type AgentDisconnectedEvent struct {
	baseEvent
	Agent  string // Agent that disconnected
	Epoch  uint64 // Connection epoch that ended
	Reason string // "deregistered" or "heartbeat expired"
}

// NewAgentDisconnectedEvent creates an AgentDisconnectedEvent.
func NewAgentDisconnectedEvent(agent string, epoch uint64, reason string) AgentDisconnectedEvent {
	return AgentDisconnectedEvent{
		baseEvent: newBaseEvent("agent.disconnected"),
		Agent:     agent,
		Epoch:     epoch,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Configuration Events
// -----------------------------------------------------------------------------

// ConfigReloadedEvent is emitted when the config file changes on disk and
// the arbitration tunables are republished.
type ConfigReloadedEvent struct {
	baseEvent
	Source string // Path of the config file that changed
}

// NewConfigReloadedEvent creates a ConfigReloadedEvent.
func NewConfigReloadedEvent(source string) ConfigReloadedEvent {
	return ConfigReloadedEvent{
		baseEvent: newBaseEvent("config.reloaded"),
		Source:    source,
	}
}
