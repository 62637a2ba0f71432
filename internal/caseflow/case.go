package caseflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/logia/logia/internal/arbiter"
	"github.com/logia/logia/internal/dispatch"
	"github.com/logia/logia/internal/errors"
	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/protocol"
)

// State is a disruption case's position in its lifecycle.
type State string

const (
	// StateIntake means the case was created and not yet dispatched.
	StateIntake State = "intake"

	// StateDispatching means requests are in flight to capable agents.
	StateDispatching State = "dispatching"

	// StateArbitrating means all requests reached a terminal outcome and
	// arbitration is merging the responses.
	StateArbitrating State = "arbitrating"

	// StateDecided means arbitration produced an actionable decision,
	// awaiting acknowledgment.
	StateDecided State = "decided"

	// StateEscalated means the case was handed to a human operator, either
	// because no capable agents existed or because arbitration had no
	// actionable input. Absorbing until acknowledgment.
	StateEscalated State = "escalated"

	// StateClosed is terminal. Nothing leaves it.
	StateClosed State = "closed"
)

// validTransitions is the closed set of legal state changes. Cancellation
// is modelled as a transition to Closed from any pre-Decided state.
var validTransitions = map[State]map[State]bool{
	StateIntake: {
		StateDispatching: true,
		StateClosed:      true,
	},
	StateDispatching: {
		StateArbitrating: true,
		StateEscalated:   true,
		StateClosed:      true,
	},
	StateArbitrating: {
		StateDecided:   true,
		StateEscalated: true,
		StateClosed:    true,
	},
	StateDecided:   {StateClosed: true},
	StateEscalated: {StateClosed: true},
	StateClosed:    {},
}

// AuditEntry records one state transition in a case's history.
type AuditEntry struct {
	From    State
	To      State
	At      time.Time
	Trigger string
}

// Case is one disruption workflow instance. It is created on intake and
// mutated only through its own guarded methods; the audit log records
// every transition in order.
type Case struct {
	mu       sync.Mutex
	id       string
	event    protocol.DisruptionEvent
	state    State
	decision *arbiter.Decision
	outcomes map[string]dispatch.Outcome
	audit    []AuditEntry
	openedAt time.Time

	// cancelDispatch aborts an in-flight fan-out when the case closes
	// mid-dispatch. Nil outside the Dispatching window.
	cancelDispatch context.CancelFunc

	bus *event.Bus
}

// NewCase creates a case in Intake for the given event.
func NewCase(id string, ev protocol.DisruptionEvent, bus *event.Bus) *Case {
	c := &Case{
		id:       id,
		event:    ev,
		state:    StateIntake,
		outcomes: make(map[string]dispatch.Outcome),
		openedAt: time.Now(),
		bus:      bus,
	}
	if bus != nil {
		bus.Publish(event.NewCaseOpenedEvent(id, ev.ID, string(ev.Type), ev.Severity))
	}
	return c
}

// ID returns the case's unique identifier.
func (c *Case) ID() string { return c.id }

// Event returns the immutable disruption event that opened the case.
func (c *Case) Event() protocol.DisruptionEvent { return c.event }

// State returns the case's current state.
func (c *Case) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Decision returns the case's decision, if one has been set.
func (c *Case) Decision() (arbiter.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decision == nil {
		return arbiter.Decision{}, false
	}
	return *c.decision, true
}

// Audit returns a copy of the case's transition history in order.
func (c *Case) Audit() []AuditEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AuditEntry, len(c.audit))
	copy(out, c.audit)
	return out
}

// Outcomes returns a copy of the per-agent dispatch outcomes recorded so far.
func (c *Case) Outcomes() map[string]dispatch.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]dispatch.Outcome, len(c.outcomes))
	for k, v := range c.outcomes {
		out[k] = v
	}
	return out
}

// OpenedAt returns when the case entered Intake.
func (c *Case) OpenedAt() time.Time { return c.openedAt }

// transition moves the case to the given state, appending an audit entry.
// Fails with ErrCaseClosed if the case is terminal and ErrInvalidTransition
// for any other illegal move.
func (c *Case) transition(to State, trigger string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionLocked(to, trigger)
}

// transitionLocked performs the transition. Caller must hold c.mu.
func (c *Case) transitionLocked(to State, trigger string) error {
	if c.state == StateClosed {
		return fmt.Errorf("%w: case %s", errors.ErrCaseClosed, c.id)
	}
	if !validTransitions[c.state][to] {
		return fmt.Errorf("%w: case %s cannot move %s -> %s",
			errors.ErrInvalidTransition, c.id, c.state, to)
	}

	from := c.state
	c.state = to
	c.audit = append(c.audit, AuditEntry{
		From:    from,
		To:      to,
		At:      time.Now(),
		Trigger: trigger,
	})
	if c.bus != nil {
		c.bus.Publish(event.NewCaseTransitionedEvent(c.id, string(from), string(to), trigger))
	}
	return nil
}

// decide atomically sets the case's single decision and transitions to the
// given terminal pre-close state (Decided or Escalated). Fails with
// ErrDecisionAlreadySet if a decision exists, or with the transition error
// if the case moved on (for example it was cancelled mid-dispatch).
func (c *Case) decide(d arbiter.Decision, to State, trigger string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.decision != nil {
		return fmt.Errorf("%w: case %s", errors.ErrDecisionAlreadySet, c.id)
	}
	if err := c.transitionLocked(to, trigger); err != nil {
		return err
	}
	c.decision = &d
	return nil
}

// recordOutcomes merges the dispatch outcomes into the case.
func (c *Case) recordOutcomes(outcomes map[string]dispatch.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for agent, o := range outcomes {
		c.outcomes[agent] = o
	}
}

// Close acknowledges the case, moving it to Closed from any state. Called
// before Decided it is a cancellation: any in-flight dispatch is aborted
// and late responses are discarded as stale. Fails with ErrCaseClosed if
// the case is already closed.
func (c *Case) Close(trigger string) error {
	c.mu.Lock()
	cancelled := c.state != StateDecided && c.state != StateEscalated
	cancel := c.cancelDispatch
	err := c.transitionLocked(StateClosed, trigger)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if cancel != nil {
		cancel()
	}
	if c.bus != nil {
		c.bus.Publish(event.NewCaseClosedEvent(c.id, cancelled))
	}
	return nil
}

// armCancel stores the dispatch cancel function for the Dispatching window.
func (c *Case) armCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancelDispatch = cancel
	c.mu.Unlock()
}

// disarmCancel clears the dispatch cancel function once the fan-out returns.
func (c *Case) disarmCancel() {
	c.mu.Lock()
	c.cancelDispatch = nil
	c.mu.Unlock()
}
