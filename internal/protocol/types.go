package protocol

import (
	"fmt"
	"time"

	"github.com/logia/logia/internal/errors"
)

// Version is the protocol version this package encodes and the newest
// version it accepts on decode.
const Version = 1

// MessageType identifies the kind of wire message.
type MessageType string

const (
	// MessageRegister is sent by an agent to join the hub.
	MessageRegister MessageType = "register"

	// MessageRegistered is the hub's reply to a register, carrying the
	// registration ID the agent must present in heartbeats.
	MessageRegistered MessageType = "registered"

	// MessageHeartbeat is sent by an agent to refresh its liveness.
	MessageHeartbeat MessageType = "heartbeat"

	// MessageRequest is sent by the hub to ask an agent for a recommendation.
	MessageRequest MessageType = "request"

	// MessageResponse is sent by an agent with its recommendation.
	MessageResponse MessageType = "response"
)

// DisruptionType classifies a delivery disruption. It doubles as the
// capability unit agents advertise.
type DisruptionType string

const (
	// DisruptionBlockedRoute is a road closure or traffic blockage on a route.
	DisruptionBlockedRoute DisruptionType = "blocked-route"

	// DisruptionSpoiledCargo is cargo that can no longer be delivered as-is.
	DisruptionSpoiledCargo DisruptionType = "spoiled-cargo"

	// DisruptionMissedWindow is a delivery that missed its promised time window.
	DisruptionMissedWindow DisruptionType = "missed-window"

	// DisruptionOther covers disruptions outside the named categories.
	DisruptionOther DisruptionType = "other"
)

var validDisruptionTypes = map[DisruptionType]bool{
	DisruptionBlockedRoute: true,
	DisruptionSpoiledCargo: true,
	DisruptionMissedWindow: true,
	DisruptionOther:        true,
}

// ValidDisruptionType returns true if t is a known disruption type.
func ValidDisruptionType(t DisruptionType) bool {
	return validDisruptionTypes[t]
}

// DisruptionTypes returns all known disruption types.
func DisruptionTypes() []DisruptionType {
	return []DisruptionType{
		DisruptionBlockedRoute,
		DisruptionSpoiledCargo,
		DisruptionMissedWindow,
		DisruptionOther,
	}
}

// RecommendationKind is the closed set of actions an agent may recommend.
// New kinds require an explicit update here and in the arbitration priority
// table; there is no open-ended fallback.
type RecommendationKind string

const (
	// RecommendCancel recommends cancelling the affected order.
	RecommendCancel RecommendationKind = "cancel"

	// RecommendEscalate recommends handing the case to a human operator.
	RecommendEscalate RecommendationKind = "escalate"

	// RecommendReroute recommends continuing delivery on a new route.
	RecommendReroute RecommendationKind = "reroute"

	// RecommendNoAction recommends leaving the delivery as planned.
	RecommendNoAction RecommendationKind = "no-action"
)

var validRecommendationKinds = map[RecommendationKind]bool{
	RecommendCancel:   true,
	RecommendEscalate: true,
	RecommendReroute:  true,
	RecommendNoAction: true,
}

// ValidRecommendationKind returns true if k is a known recommendation kind.
func ValidRecommendationKind(k RecommendationKind) bool {
	return validRecommendationKinds[k]
}

// RecommendationKinds returns all known recommendation kinds.
func RecommendationKinds() []RecommendationKind {
	return []RecommendationKind{
		RecommendCancel,
		RecommendEscalate,
		RecommendReroute,
		RecommendNoAction,
	}
}

// Recommendation is the tagged variant an agent returns. The Kind selects
// which of the remaining fields are meaningful: NewRoute for reroute,
// Reason for cancel and escalate, neither for no-action.
type Recommendation struct {
	Kind     RecommendationKind `json:"kind"`
	NewRoute string             `json:"new_route,omitempty"`
	Reason   string             `json:"reason,omitempty"`
}

// Validate checks that the recommendation's kind is known and that the
// fields its kind requires are present.
func (r Recommendation) Validate() error {
	if !ValidRecommendationKind(r.Kind) {
		return fmt.Errorf("%w: unknown recommendation kind %q", errors.ErrMalformedMessage, r.Kind)
	}
	switch r.Kind {
	case RecommendReroute:
		if r.NewRoute == "" {
			return fmt.Errorf("%w: reroute recommendation missing new_route", errors.ErrMalformedMessage)
		}
	case RecommendCancel, RecommendEscalate:
		if r.Reason == "" {
			return fmt.Errorf("%w: %s recommendation missing reason", errors.ErrMalformedMessage, r.Kind)
		}
	}
	return nil
}

// DisruptionEvent is the immutable description of a delivery disruption.
// It is created at the ingestion boundary and never mutated afterwards.
type DisruptionEvent struct {
	// ID uniquely identifies the event at the ingestion boundary.
	ID string `json:"id"`
	// Type classifies the disruption and selects capable agents.
	Type DisruptionType `json:"type"`
	// Reference names the affected shipment or order.
	Reference string `json:"reference"`
	// Severity is an ordered scale starting at 1. It is carried to agents
	// as context and does not enter arbitration weighting.
	Severity int `json:"severity"`
	// Context is an opaque key/value payload from the ingestion source.
	Context map[string]string `json:"context,omitempty"`
	// OccurredAt is when the disruption happened.
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate checks the event's required fields.
func (e DisruptionEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing event id", errors.ErrInvalidEvent)
	}
	if !ValidDisruptionType(e.Type) {
		return fmt.Errorf("%w: unknown disruption type %q", errors.ErrInvalidEvent, e.Type)
	}
	if e.Reference == "" {
		return fmt.Errorf("%w: missing shipment reference", errors.ErrInvalidEvent)
	}
	if e.Severity < 1 {
		return fmt.Errorf("%w: severity must be at least 1, got %d", errors.ErrInvalidEvent, e.Severity)
	}
	return nil
}

/// AgentDescriptor is an agent's advertised identity: its unique name, the
// disruption types it handles, and the confidence weight arbitration
// applies to its responses.
type AgentDescriptor struct {
	Name         string           `json:"name"`
	Capabilities []DisruptionType `json:"capabilities"`
	Weight       float64          `json:"weight"`
}

// Validate checks the descriptor's required fields.
func (d AgentDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: missing agent name", errors.ErrMalformedMessage)
	}
	if len(d.Capabilities) == 0 {
		return fmt.Errorf("%w: agent %s advertises no capabilities", errors.ErrMalformedMessage, d.Name)
	}
	for _, c := range d.Capabilities {
		if !ValidDisruptionType(c) {
			return fmt.Errorf("%w: agent %s advertises unknown capability %q", errors.ErrMalformedMessage, d.Name, c)
		}
	}
	if d.Weight <= 0 {
		return fmt.Errorf("%w: agent %s weight must be positive, got %g", errors.ErrMalformedMessage, d.Name, d.Weight)
	}
	return nil
}

// CanHandle returns true if the descriptor advertises the given type.
func (d AgentDescriptor) CanHandle(t DisruptionType) bool {
	for _, c := range d.Capabilities {
		if c == t {
			return true
		}
	}
	return false
}

// Message is implemented by every wire message.
type Message interface {
	// Type returns the message's wire type tag.
	Type() MessageType
}

// Register is sent by an agent to join the hub.
type Register struct {
	Descriptor AgentDescriptor `json:"descriptor"`
}

// Type implements Message.
func (Register) Type() MessageType { return MessageRegister }

func (m Register) validate() error { return m.Descriptor.Validate() }

// Registered is the hub's reply to a Register.
type Registered struct {
	RegistrationID string `json:"registration_id"`
}

// Type implements Message.
func (Registered) Type() MessageType { return MessageRegistered }

func (m Registered) validate() error {
	if m.RegistrationID == "" {
		return fmt.Errorf("%w: missing registration_id", errors.ErrMalformedMessage)
	}
	return nil
}

// Heartbeat refreshes an agent's liveness.
type Heartbeat struct {
	RegistrationID string `json:"registration_id"`
}

// Type implements Message.
func (Heartbeat) Type() MessageType { return MessageHeartbeat }

func (m Heartbeat) validate() error {
	if m.RegistrationID == "" {
		return fmt.Errorf("%w: missing registration_id", errors.ErrMalformedMessage)
	}
	return nil
}

// Request asks an agent for a recommendation on a disruption event.
type Request struct {
	CorrelationID string          `json:"correlation_id"`
	Event         DisruptionEvent `json:"event"`
	Deadline      time.Time       `json:"deadline"`
}

// Type implements Message.
func (Request) Type() MessageType { return MessageRequest }

func (m Request) validate() error {
	if m.CorrelationID == "" {
		return fmt.Errorf("%w: missing correlation_id", errors.ErrMalformedMessage)
	}
	if m.Deadline.IsZero() {
		return fmt.Errorf("%w: missing deadline", errors.ErrMalformedMessage)
	}
	if err := m.Event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return nil
}

// Response carries an agent's recommendation for a dispatched request.
// Responses are immutable once received.
type Response struct {
	CorrelationID  string            `json:"correlation_id"`
	Recommendation Recommendation    `json:"recommendation"`
	Confidence     float64           `json:"confidence"`
	Evidence       map[string]string `json:"evidence,omitempty"`
}

// Type implements Message.
func (Response) Type() MessageType { return MessageResponse }

func (m Response) validate() error {
	if m.CorrelationID == "" {
		return fmt.Errorf("%w: missing correlation_id", errors.ErrMalformedMessage)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be in [0,1], got %g", errors.ErrMalformedMessage, m.Confidence)
	}
	return m.Recommendation.Validate()
}
