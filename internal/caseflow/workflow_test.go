package caseflow

import (
	"context"
	"testing"
	"time"

	"github.com/logia/logia/internal/arbiter"
	"github.com/logia/logia/internal/dispatch"
	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
	"github.com/logia/logia/internal/registry"
)

type workflowFixture struct {
	registry *registry.Registry
	router   *dispatch.Router
	workflow *Workflow
	bus      *event.Bus
}

func newWorkflowFixture(t *testing.T, deadline time.Duration) *workflowFixture {
	t.Helper()
	bus := event.NewBus()
	router := dispatch.NewRouter(bus, logging.NopLogger())
	disp := dispatch.NewDispatcher(router, bus, logging.NopLogger())
	reg := registry.NewRegistry(bus, logging.NopLogger())
	cfg := arbiter.Config{ConfidenceFloor: 0.2}
	return &workflowFixture{
		registry: reg,
		router:   router,
		workflow: NewWorkflow(reg, disp, cfg, deadline, bus, logging.NopLogger()),
		bus:      bus,
	}
}

// registerAgent connects a scripted agent: it answers every request with
// the given recommendation and confidence after an optional delay. A zero
// confidence with an empty kind registers a silent agent.
func (f *workflowFixture) registerAgent(t *testing.T, name string, weight float64, rec protocol.Recommendation, confidence float64, delay time.Duration) {
	t.Helper()
	ch := registry.NewChannel()
	desc := protocol.AgentDescriptor{
		Name:         name,
		Capabilities: []protocol.DisruptionType{protocol.DisruptionBlockedRoute},
		Weight:       weight,
	}
	if _, err := f.registry.Register(desc, ch); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	t.Cleanup(ch.Close)

	silent := rec.Kind == ""
	go func() {
		for {
			select {
			case frame := <-ch.FromHub():
				if silent {
					continue
				}
				msg, err := protocol.Decode(frame)
				if err != nil {
					continue
				}
				req, ok := msg.(protocol.Request)
				if !ok {
					continue
				}
				if delay > 0 {
					time.Sleep(delay)
				}
				f.router.Resolve(name, protocol.Response{
					CorrelationID:  req.CorrelationID,
					Recommendation: rec,
					Confidence:     confidence,
				})
			case <-ch.Done():
				return
			}
		}
	}()
}

func TestWorkflow_DecidesFromAgentResponses(t *testing.T) {
	// Two capable agents, reroute at 0.8 beats no-action at 0.4.
	f := newWorkflowFixture(t, 2*time.Second)
	f.registerAgent(t, "rerouting", 1.0,
		protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via NE 8th"}, 0.8, 0)
	f.registerAgent(t, "cancellation", 1.0,
		protocol.Recommendation{Kind: protocol.RecommendNoAction}, 0.4, 0)

	c := NewCase("case-1", blockedRouteEvent(), f.bus)
	if err := f.workflow.Run(context.Background(), c); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if c.State() != StateDecided {
		t.Fatalf("state = %s, want decided", c.State())
	}
	d, ok := c.Decision()
	if !ok {
		t.Fatal("no decision recorded")
	}
	if d.Recommendation.Kind != protocol.RecommendReroute {
		t.Errorf("Recommendation.Kind = %s, want reroute", d.Recommendation.Kind)
	}
	if d.Recommendation.NewRoute != "via NE 8th" {
		t.Errorf("NewRoute = %q", d.Recommendation.NewRoute)
	}

	outcomes := c.Outcomes()
	if len(outcomes) != 2 {
		t.Fatalf("recorded %d outcomes, want 2", len(outcomes))
	}
	for agent, o := range outcomes {
		if o.Status != dispatch.OutcomeReceived {
			t.Errorf("outcome[%s].Status = %s, want received", agent, o.Status)
		}
	}
}

func TestWorkflow_TimeoutFoldsIntoArbitration(t *testing.T) {
	// The reroute agent never answers; the survivor decides alone.
	f := newWorkflowFixture(t, 150*time.Millisecond)
	f.registerAgent(t, "rerouting", 1.0, protocol.Recommendation{}, 0, 0) // silent
	f.registerAgent(t, "cancellation", 1.0,
		protocol.Recommendation{Kind: protocol.RecommendNoAction}, 0.9, 0)

	c := NewCase("case-1", blockedRouteEvent(), f.bus)
	if err := f.workflow.Run(context.Background(), c); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if c.State() != StateDecided {
		t.Fatalf("state = %s, want decided", c.State())
	}
	d, _ := c.Decision()
	if d.Recommendation.Kind != protocol.RecommendNoAction {
		t.Errorf("Recommendation.Kind = %s, want no-action", d.Recommendation.Kind)
	}
	if got := c.Outcomes()["rerouting"].Status; got != dispatch.OutcomeTimedOut {
		t.Errorf("rerouting outcome = %s, want timed-out", got)
	}
}

func TestWorkflow_NoCapableAgentsEscalatesImmediately(t *testing.T) {
	f := newWorkflowFixture(t, 5*time.Second)

	var escalated []event.CaseEscalatedEvent
	f.bus.Subscribe("case.escalated", func(e event.Event) {
		escalated = append(escalated, e.(event.CaseEscalatedEvent))
	})

	c := NewCase("case-1", blockedRouteEvent(), f.bus)
	start := time.Now()
	if err := f.workflow.Run(context.Background(), c); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// No agents means no dispatch wait.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("escalation took %s, expected no dispatch wait", elapsed)
	}
	if c.State() != StateEscalated {
		t.Fatalf("state = %s, want escalated", c.State())
	}
	d, ok := c.Decision()
	if !ok {
		t.Fatal("escalated case has no decision")
	}
	if d.Rule != arbiter.RuleForcedEscalate {
		t.Errorf("Rule = %s, want forced-escalate", d.Rule)
	}
	if d.Recommendation.Reason != arbiter.EscalateNoInput {
		t.Errorf("Reason = %q, want %q", d.Recommendation.Reason, arbiter.EscalateNoInput)
	}
	if len(escalated) != 1 {
		t.Errorf("published %d case.escalated events, want 1", len(escalated))
	}
}

func TestWorkflow_AllBelowFloorEscalates(t *testing.T) {
	f := newWorkflowFixture(t, 2*time.Second)
	f.registerAgent(t, "rerouting", 1.0,
		protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via detour"}, 0.1, 0)

	c := NewCase("case-1", blockedRouteEvent(), f.bus)
	if err := f.workflow.Run(context.Background(), c); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if c.State() != StateEscalated {
		t.Fatalf("state = %s, want escalated", c.State())
	}
	d, _ := c.Decision()
	if d.Recommendation.Reason != arbiter.EscalateNoInput {
		t.Errorf("Reason = %q, want %q", d.Recommendation.Reason, arbiter.EscalateNoInput)
	}
}

func TestWorkflow_CancelDuringDispatch(t *testing.T) {
	// The agent answers after 400ms, but the case is cancelled at 50ms.
	// The case closes with no decision and the late response is stale.
	f := newWorkflowFixture(t, 2*time.Second)
	f.registerAgent(t, "rerouting", 1.0,
		protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via detour"}, 0.8, 400*time.Millisecond)

	var stale int
	staleCh := make(chan struct{}, 1)
	f.bus.Subscribe("dispatch.stale", func(event.Event) {
		stale++
		select {
		case staleCh <- struct{}{}:
		default:
		}
	})

	c := NewCase("case-1", blockedRouteEvent(), f.bus)

	done := make(chan error, 1)
	go func() { done <- f.workflow.Run(context.Background(), c) }()

	time.Sleep(50 * time.Millisecond)
	if err := c.Close("cancelled by operator"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("state = %s, want closed", c.State())
	}
	if _, ok := c.Decision(); ok {
		t.Error("cancelled case has a decision")
	}

	select {
	case <-staleCh:
	case <-time.After(time.Second):
		t.Fatal("late response was never discarded as stale")
	}
	if stale != 1 {
		t.Errorf("stale events = %d, want 1", stale)
	}
}

func TestWorkflow_RunOnClosedCaseFails(t *testing.T) {
	f := newWorkflowFixture(t, time.Second)

	c := NewCase("case-1", blockedRouteEvent(), f.bus)
	if err := c.Close("cancelled"); err != nil {
		t.Fatal(err)
	}
	if err := f.workflow.Run(context.Background(), c); err == nil {
		t.Error("Run on a closed case succeeded")
	}
}
