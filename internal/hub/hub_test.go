package hub_test

import (
	"context"
	"testing"
	"time"

	"github.com/logia/logia/internal/agents"
	"github.com/logia/logia/internal/arbiter"
	"github.com/logia/logia/internal/errors"
	"github.com/logia/logia/internal/hub"
	"github.com/logia/logia/internal/protocol"
)

func disruption(t protocol.DisruptionType, severity int) protocol.DisruptionEvent {
	return protocol.DisruptionEvent{
		ID:         "ev-1",
		Type:       t,
		Reference:  "order-42",
		Severity:   severity,
		OccurredAt: time.Now().UTC(),
	}
}

// scripted builds a single-rule simulator answering every event of the
// given type with one fixed recommendation.
func scripted(name string, weight float64, capability protocol.DisruptionType, rec protocol.Recommendation, confidence float64, opts ...agents.SimOption) *agents.Simulator {
	return agents.NewSimulator(
		protocol.AgentDescriptor{
			Name:         name,
			Capabilities: []protocol.DisruptionType{capability},
			Weight:       weight,
		},
		[]agents.Rule{{
			Type:           capability,
			MinSeverity:    1,
			Recommendation: rec,
			Confidence:     confidence,
		}},
		opts...,
	)
}

func startHub(t *testing.T, opts ...hub.Option) *hub.Hub {
	t.Helper()
	h := hub.New(opts...)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.Stop)
	return h
}

func connect(t *testing.T, h *hub.Hub, sims ...*agents.Simulator) {
	t.Helper()
	for _, s := range sims {
		if err := s.Connect(context.Background(), h); err != nil {
			t.Fatalf("connect %s: %v", s.Name(), err)
		}
		t.Cleanup(s.Disconnect)
	}
}

func awaitStatus(t *testing.T, h *hub.Hub, caseID string, want hub.CaseStatus) arbiter.Decision {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		d, status := h.GetDecision(caseID)
		if status == want {
			return d
		}
		time.Sleep(10 * time.Millisecond)
	}
	_, status := h.GetDecision(caseID)
	t.Fatalf("case %s status = %s, want %s", caseID, status, want)
	return arbiter.Decision{}
}

func TestHub_RerouteOutscoresNoAction(t *testing.T) {
	// Blocked route, severity 3. Reroute at 0.8 beats no-action at 0.4.
	h := startHub(t, hub.WithDispatchDeadline(2*time.Second))
	connect(t, h,
		scripted("rerouting", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via harbor bridge"}, 0.8),
		scripted("watcher", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendNoAction}, 0.4),
	)

	caseID, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 3))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}

	d := awaitStatus(t, h, caseID, hub.StatusDecided)
	if d.Recommendation.Kind != protocol.RecommendReroute {
		t.Errorf("Recommendation.Kind = %s, want reroute", d.Recommendation.Kind)
	}
	if d.Recommendation.NewRoute != "via harbor bridge" {
		t.Errorf("NewRoute = %q", d.Recommendation.NewRoute)
	}
	if d.Rule != arbiter.RuleHighestScore {
		t.Errorf("Rule = %s, want highest-score", d.Rule)
	}
}

func TestHub_SurvivorDecidesWhenPeerTimesOut(t *testing.T) {
	// The reroute agent thinks past the deadline; the survivor's
	// no-action at 0.9 decides alone.
	h := startHub(t, hub.WithDispatchDeadline(100*time.Millisecond))
	connect(t, h,
		scripted("rerouting", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via harbor bridge"}, 0.8,
			agents.WithThinkTime(time.Second)),
		scripted("watcher", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendNoAction}, 0.9),
	)

	caseID, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 3))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}

	d := awaitStatus(t, h, caseID, hub.StatusDecided)
	if d.Recommendation.Kind != protocol.RecommendNoAction {
		t.Errorf("Recommendation.Kind = %s, want no-action", d.Recommendation.Kind)
	}
	if len(d.Contributors) != 1 || d.Contributors[0].Agent != "watcher" {
		t.Errorf("Contributors = %v, want only watcher", d.Contributors)
	}
}

func TestHub_TieBreakPrefersCancel(t *testing.T) {
	// Equal aggregate scores, cancel vs reroute: the conservative
	// priority order picks cancel.
	h := startHub(t, hub.WithDispatchDeadline(2*time.Second))
	connect(t, h,
		scripted("rerouting", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via harbor bridge"}, 0.7),
		scripted("safety", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendCancel, Reason: "road hazard"}, 0.7),
	)

	caseID, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 3))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}

	d := awaitStatus(t, h, caseID, hub.StatusDecided)
	if d.Recommendation.Kind != protocol.RecommendCancel {
		t.Errorf("Recommendation.Kind = %s, want cancel", d.Recommendation.Kind)
	}
	if d.Rule != arbiter.RuleTieBreak {
		t.Errorf("Rule = %s, want priority-tie-break", d.Rule)
	}
}

func TestHub_NoCapableAgentsEscalates(t *testing.T) {
	// The only connected agent handles blocked routes; a spoiled-cargo
	// event has no capable agents and escalates without waiting.
	h := startHub(t, hub.WithDispatchDeadline(5*time.Second))
	connect(t, h,
		scripted("rerouting", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via harbor bridge"}, 0.8),
	)

	start := time.Now()
	caseID, err := h.SubmitDisruption(disruption(protocol.DisruptionSpoiledCargo, 4))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}

	d := awaitStatus(t, h, caseID, hub.StatusEscalated)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("escalation took %s, expected no dispatch wait", elapsed)
	}
	if d.Recommendation.Reason != arbiter.EscalateNoInput {
		t.Errorf("Reason = %q, want %q", d.Recommendation.Reason, arbiter.EscalateNoInput)
	}
}

func TestHub_LowConfidenceEscalates(t *testing.T) {
	h := startHub(t,
		hub.WithDispatchDeadline(2*time.Second),
		hub.WithConfidenceFloor(0.5))
	connect(t, h,
		scripted("watcher", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendNoAction}, 0.2),
	)

	caseID, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 2))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}

	d := awaitStatus(t, h, caseID, hub.StatusEscalated)
	if d.Rule != arbiter.RuleForcedEscalate {
		t.Errorf("Rule = %s, want forced-escalate", d.Rule)
	}
}

func TestHub_AcknowledgeClosesDecidedCase(t *testing.T) {
	h := startHub(t, hub.WithDispatchDeadline(2*time.Second))
	connect(t, h,
		scripted("watcher", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendNoAction}, 0.8),
	)

	caseID, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 2))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}
	decided := awaitStatus(t, h, caseID, hub.StatusDecided)

	if err := h.Acknowledge(caseID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	d, status := h.GetDecision(caseID)
	if status != hub.StatusClosed {
		t.Errorf("status = %s, want closed", status)
	}
	// The decision survives closure.
	if d.Recommendation.Kind != decided.Recommendation.Kind {
		t.Errorf("closed decision kind = %s, want %s", d.Recommendation.Kind, decided.Recommendation.Kind)
	}

	if err := h.Acknowledge(caseID); !errors.Is(err, errors.ErrCaseClosed) {
		t.Errorf("second Acknowledge error = %v, want ErrCaseClosed", err)
	}
}

func TestHub_AcknowledgePendingCaseCancels(t *testing.T) {
	// Acknowledging mid-dispatch cancels the case; it closes with no
	// decision and the late response is discarded.
	h := startHub(t, hub.WithDispatchDeadline(2*time.Second))
	connect(t, h,
		scripted("rerouting", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via harbor bridge"}, 0.8,
			agents.WithThinkTime(500*time.Millisecond)),
	)

	caseID, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 3))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := h.Acknowledge(caseID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	d, status := h.GetDecision(caseID)
	if status != hub.StatusClosed {
		t.Fatalf("status = %s, want closed", status)
	}
	if d.Recommendation.Kind != "" {
		t.Errorf("cancelled case has decision %s", d.Recommendation.Kind)
	}
}

func TestHub_UnknownCase(t *testing.T) {
	h := startHub(t)

	if _, status := h.GetDecision("case-missing"); status != hub.StatusNotFound {
		t.Errorf("GetDecision status = %s, want not-found", status)
	}
	if err := h.Acknowledge("case-missing"); !errors.Is(err, errors.ErrCaseNotFound) {
		t.Errorf("Acknowledge error = %v, want ErrCaseNotFound", err)
	}
}

func TestHub_InvalidEventRejected(t *testing.T) {
	h := startHub(t)

	_, err := h.SubmitDisruption(protocol.DisruptionEvent{Type: protocol.DisruptionBlockedRoute})
	if !errors.Is(err, errors.ErrInvalidEvent) {
		t.Errorf("SubmitDisruption error = %v, want ErrInvalidEvent", err)
	}
}

func TestHub_RejectsWorkWhenNotRunning(t *testing.T) {
	h := hub.New()

	if _, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 2)); !errors.Is(err, errors.ErrHubStopped) {
		t.Errorf("SubmitDisruption error = %v, want ErrHubStopped", err)
	}

	h2 := startHub(t)
	if err := h2.Start(context.Background()); err == nil {
		t.Error("second Start succeeded, want error")
	}
}

func TestHub_StatusCountsCases(t *testing.T) {
	h := startHub(t, hub.WithDispatchDeadline(time.Second))
	connect(t, h,
		scripted("watcher", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendNoAction}, 0.8),
	)

	decidedID, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 2))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}
	awaitStatus(t, h, decidedID, hub.StatusDecided)

	escalatedID, err := h.SubmitDisruption(disruption(protocol.DisruptionSpoiledCargo, 4))
	if err != nil {
		t.Fatalf("SubmitDisruption: %v", err)
	}
	awaitStatus(t, h, escalatedID, hub.StatusEscalated)

	status := h.Status()
	if status.DecidedCases != 1 {
		t.Errorf("DecidedCases = %d, want 1", status.DecidedCases)
	}
	if status.EscalatedCases != 1 {
		t.Errorf("EscalatedCases = %d, want 1", status.EscalatedCases)
	}
	if len(status.ConnectedAgents) != 1 {
		t.Errorf("ConnectedAgents = %v, want one agent", status.ConnectedAgents)
	}

	if err := h.Acknowledge(decidedID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if got := h.Status().ClosedCases; got != 1 {
		t.Errorf("ClosedCases = %d, want 1", got)
	}
}

func TestHub_ConcurrentCasesAreIndependent(t *testing.T) {
	h := startHub(t, hub.WithDispatchDeadline(2*time.Second))
	connect(t, h,
		scripted("rerouting", 1.0, protocol.DisruptionBlockedRoute,
			protocol.Recommendation{Kind: protocol.RecommendReroute, NewRoute: "via harbor bridge"}, 0.8),
	)

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		id, err := h.SubmitDisruption(disruption(protocol.DisruptionBlockedRoute, 2))
		if err != nil {
			t.Fatalf("SubmitDisruption: %v", err)
		}
		ids[i] = id
	}

	for _, id := range ids {
		d := awaitStatus(t, h, id, hub.StatusDecided)
		if d.Recommendation.Kind != protocol.RecommendReroute {
			t.Errorf("case %s decision = %s, want reroute", id, d.Recommendation.Kind)
		}
	}
}
