package caseflow

import (
	"context"
	"time"

	"github.com/logia/logia/internal/arbiter"
	"github.com/logia/logia/internal/dispatch"
	"github.com/logia/logia/internal/errors"
	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/registry"
)

// Workflow drives disruption cases from intake to a decision or an
// escalation. A single Workflow serves all concurrent cases; it holds no
// per-case state of its own.
type Workflow struct {
	registry         *registry.Registry
	dispatcher       *dispatch.Dispatcher
	arbiterCfg       arbiter.Config
	dispatchDeadline time.Duration

	bus    *event.Bus
	logger *logging.Logger
}

// NewWorkflow creates a Workflow wired to the given registry and dispatcher.
func NewWorkflow(reg *registry.Registry, disp *dispatch.Dispatcher, arbiterCfg arbiter.Config, dispatchDeadline time.Duration, bus *event.Bus, logger *logging.Logger) *Workflow {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Workflow{
		registry:         reg,
		dispatcher:       disp,
		arbiterCfg:       arbiterCfg,
		dispatchDeadline: dispatchDeadline,
		bus:              bus,
		logger:           logger.WithComponent("caseflow"),
	}
}

// Run drives one case to Decided or Escalated. It blocks at most for the
// dispatch deadline plus arbitration's constant-time work. If the case is
// closed externally while requests are in flight, Run stops quietly and
// the case stays Closed with no decision.
func (w *Workflow) Run(ctx context.Context, c *Case) error {
	logger := w.logger.WithCase(c.ID())

	if err := c.transition(StateDispatching, "disruption event accepted"); err != nil {
		return err
	}

	// Snapshot the capable-agent set once; the case never straddles two
	// views of the registry.
	agents := w.registry.CapableAgents(c.Event().Type)
	if len(agents) == 0 {
		logger.Warn("no capable agents", "disruption_type", string(c.Event().Type))
		return w.escalate(c, arbiter.Arbitrate(w.arbiterCfg, nil), "no capable agents")
	}

	names := make([]string, len(agents))
	weights := make(map[string]float64, len(agents))
	for i, a := range agents {
		names[i] = a.Name()
		weights[a.Name()] = a.Descriptor.Weight
	}
	logger.Info("dispatching to capable agents", "agents", names, "deadline", w.dispatchDeadline.String())

	dispatchCtx, cancel := context.WithCancel(ctx)
	c.armCancel(cancel)
	outcomes := w.dispatcher.Dispatch(dispatchCtx, c.ID(), c.Event(), agents, w.dispatchDeadline)
	c.disarmCancel()
	cancel()

	c.recordOutcomes(outcomes)

	if err := c.transition(StateArbitrating, "dispatch complete"); err != nil {
		// The case was cancelled while requests were in flight. Late
		// responses are already stale; nothing more to do.
		if errors.Is(err, errors.ErrCaseClosed) {
			logger.Info("case closed during dispatch")
			return nil
		}
		return err
	}

	var contributions []arbiter.Contribution
	for agent, o := range outcomes {
		if o.Status != dispatch.OutcomeReceived {
			continue
		}
		contributions = append(contributions, arbiter.Contribution{
			Agent:    agent,
			Weight:   weights[agent],
			Response: *o.Response,
		})
	}

	decision := arbiter.Arbitrate(w.arbiterCfg, contributions)
	if decision.Rule == arbiter.RuleForcedEscalate {
		return w.escalate(c, decision, "forced escalation")
	}

	if err := c.decide(decision, StateDecided, "arbitration complete"); err != nil {
		if errors.Is(err, errors.ErrCaseClosed) {
			logger.Info("case closed during arbitration")
			return nil
		}
		return err
	}

	logger.Info("decision reached",
		"recommendation", string(decision.Recommendation.Kind),
		"rule", string(decision.Rule),
		"contributors", len(decision.Contributors))
	if w.bus != nil {
		w.bus.Publish(event.NewDecisionReachedEvent(
			c.ID(), string(decision.Recommendation.Kind),
			string(decision.Rule), len(decision.Contributors)))
	}
	return nil
}

// escalate records a forced-escalate decision and moves the case to
// Escalated. A cancelled case absorbs the escalation silently.
func (w *Workflow) escalate(c *Case, decision arbiter.Decision, trigger string) error {
	if err := c.decide(decision, StateEscalated, trigger); err != nil {
		if errors.Is(err, errors.ErrCaseClosed) {
			return nil
		}
		return err
	}

	w.logger.WithCase(c.ID()).Warn("case escalated", "reason", decision.Recommendation.Reason)
	if w.bus != nil {
		w.bus.Publish(event.NewCaseEscalatedEvent(c.ID(), decision.Recommendation.Reason))
	}
	return nil
}
