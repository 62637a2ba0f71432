package hub

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/logia/logia/internal/arbiter"
	"github.com/logia/logia/internal/caseflow"
	"github.com/logia/logia/internal/dispatch"
	"github.com/logia/logia/internal/errors"
	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
	"github.com/logia/logia/internal/registry"
)

// CaseStatus is the definite answer GetDecision gives about a case. A
// caller always gets one of these, never an indefinite hang.
type CaseStatus string

const (
	// StatusPending means the case has not yet reached a decision.
	StatusPending CaseStatus = "pending"

	// StatusDecided means arbitration produced an actionable decision.
	StatusDecided CaseStatus = "decided"

	// StatusEscalated means the case was handed to a human operator.
	StatusEscalated CaseStatus = "escalated"

	// StatusClosed means the case was acknowledged or cancelled.
	StatusClosed CaseStatus = "closed"

	// StatusNotFound means no case exists with the given ID.
	StatusNotFound CaseStatus = "not-found"
)

// Status is a point-in-time snapshot of the hub.
type Status struct {
	ConnectedAgents []string
	PendingCases    int
	DecidedCases    int
	EscalatedCases  int
	ClosedCases     int
}

// Hub is the coordination core. It owns the registry, the correlation
// router, and every in-flight disruption case. Cases run concurrently and
// independently; the hub imposes no global lock across them.
type Hub struct {
	mu    sync.RWMutex
	cases map[string]*caseflow.Case

	registry   *registry.Registry
	router     *dispatch.Router
	dispatcher *dispatch.Dispatcher
	workflow   *caseflow.Workflow

	bus    *event.Bus
	logger *logging.Logger

	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      conc.WaitGroup
}

// New creates a Hub with the given options.
func New(opts ...Option) *Hub {
	o := defaultHubOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	if o.bus == nil {
		o.bus = event.NewBus()
	}

	reg := registry.NewRegistry(o.bus, o.logger,
		registry.WithHeartbeatTimeout(o.heartbeatTimeout),
		registry.WithHeartbeatGrace(o.heartbeatGrace),
		registry.WithSweepInterval(o.sweepInterval))
	router := dispatch.NewRouter(o.bus, o.logger)
	dispatcher := dispatch.NewDispatcher(router, o.bus, o.logger)
	arbiterCfg := arbiter.Config{
		ConfidenceFloor: o.confidenceFloor,
		Priority:        o.priority,
	}

	return &Hub{
		cases:      make(map[string]*caseflow.Case),
		registry:   reg,
		router:     router,
		dispatcher: dispatcher,
		workflow:   caseflow.NewWorkflow(reg, dispatcher, arbiterCfg, o.dispatchDeadline, o.bus, o.logger),
		bus:        o.bus,
		logger:     o.logger.WithComponent("hub"),
	}
}

// Bus returns the hub's event bus.
func (h *Hub) Bus() *event.Bus { return h.bus }

// Registry returns the hub's agent registry.
func (h *Hub) Registry() *registry.Registry { return h.registry }

// Start launches the hub's background work. Returns an error if the hub is
// already started.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return errors.New("hub: already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := h.registry.Start(runCtx); err != nil {
		cancel()
		return err
	}
	h.runCtx = runCtx
	h.cancel = cancel
	h.started = true

	h.logger.Info("hub started")
	return nil
}

// Stop halts intake, aborts in-flight dispatches, and waits for every case
// goroutine and agent loop to finish. It is idempotent.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	cancel := h.cancel
	h.mu.Unlock()

	cancel()
	h.registry.Stop()
	h.wg.Wait()
	h.logger.Info("hub stopped")
}

// SubmitDisruption accepts a disruption event, opens a case for it, and
// drives the case in the background. It returns the case ID immediately;
// consumers poll GetDecision for the outcome. Fails with ErrInvalidEvent
// if required fields are missing and ErrHubStopped if the hub is not running.
func (h *Hub) SubmitDisruption(ev protocol.DisruptionEvent) (string, error) {
	if err := ev.Validate(); err != nil {
		return "", err
	}

	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return "", errors.ErrHubStopped
	}
	caseID := "case-" + uuid.NewString()
	c := caseflow.NewCase(caseID, ev, h.bus)
	h.cases[caseID] = c
	runCtx := h.runCtx
	h.mu.Unlock()

	h.logger.Info("disruption accepted",
		"case", caseID,
		"event", ev.ID,
		"disruption_type", string(ev.Type),
		"severity", ev.Severity)

	h.wg.Go(func() {
		if err := h.workflow.Run(runCtx, c); err != nil {
			h.logger.Error("case workflow failed", "case", caseID, "error", err)
		}
	})
	return caseID, nil
}

// GetDecision reports a case's decision and definite status. For a pending
// case the decision is zero; for a closed case the decision is whatever was
// reached before closure, possibly none.
func (h *Hub) GetDecision(caseID string) (arbiter.Decision, CaseStatus) {
	h.mu.RLock()
	c, ok := h.cases[caseID]
	h.mu.RUnlock()
	if !ok {
		return arbiter.Decision{}, StatusNotFound
	}

	d, _ := c.Decision()
	switch c.State() {
	case caseflow.StateDecided:
		return d, StatusDecided
	case caseflow.StateEscalated:
		return d, StatusEscalated
	case caseflow.StateClosed:
		return d, StatusClosed
	default:
		return arbiter.Decision{}, StatusPending
	}
}

// Case returns the workflow instance for a case ID.
func (h *Hub) Case(caseID string) (*caseflow.Case, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.cases[caseID]
	return c, ok
}

// Acknowledge closes a case. Called on a case that has not yet decided it
// is a cancellation: the in-flight dispatch is aborted and late responses
// are discarded. Fails with a not-found error for unknown case IDs and
// ErrCaseClosed if the case is already closed.
func (h *Hub) Acknowledge(caseID string) error {
	h.mu.RLock()
	c, ok := h.cases[caseID]
	h.mu.RUnlock()
	if !ok {
		return &errors.NotFoundError{Resource: "case", ID: caseID}
	}
	return c.Close("acknowledged")
}

// Attach binds an agent channel to the hub and serves the wire protocol
// over it until the channel closes or the hub stops. The agent is expected
// to send Register first; requests are only dispatched to registered agents.
func (h *Hub) Attach(ch *registry.Channel) error {
	h.mu.RLock()
	started := h.started
	runCtx := h.runCtx
	h.mu.RUnlock()
	if !started {
		return errors.ErrHubStopped
	}

	h.wg.Go(func() { h.serveAgent(runCtx, ch) })
	return nil
}

// serveAgent is the per-agent receive loop: it decodes inbound frames and
// routes them to the registry or the correlation router. Malformed frames
// are logged and dropped; the agent's input is treated as absent.
func (h *Hub) serveAgent(ctx context.Context, ch *registry.Channel) {
	var regID, agentName string

	defer func() {
		if regID != "" {
			h.registry.Deregister(regID)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch.Done():
			return
		case frame := <-ch.FromAgent():
			msg, err := protocol.Decode(frame)
			if err != nil {
				h.logger.Warn("dropping malformed frame", "agent", agentName, "error", err)
				continue
			}

			switch m := msg.(type) {
			case protocol.Register:
				id, err := h.registry.Register(m.Descriptor, ch)
				if err != nil {
					h.logger.Warn("registration rejected", "agent", m.Descriptor.Name, "error", err)
					continue
				}
				regID = id
				agentName = m.Descriptor.Name
				if err := h.sendRegistered(ctx, ch, id); err != nil {
					h.logger.Warn("registered ack failed", "agent", agentName, "error", err)
				}

			case protocol.Heartbeat:
				if err := h.registry.Heartbeat(m.RegistrationID); err != nil {
					h.logger.Warn("heartbeat rejected", "agent", agentName, "error", err)
				}

			case protocol.Response:
				h.router.Resolve(agentName, m)

			default:
				h.logger.Warn("unexpected message from agent",
					"agent", agentName,
					"message_type", string(msg.Type()))
			}
		}
	}
}

// sendRegistered replies to a Register with the agent's registration ID.
func (h *Hub) sendRegistered(ctx context.Context, ch *registry.Channel, regID string) error {
	frame, err := protocol.Encode(protocol.Registered{RegistrationID: regID})
	if err != nil {
		return fmt.Errorf("hub: encode registered ack: %w", err)
	}
	return ch.SendToAgent(ctx, frame)
}

// Status returns a point-in-time snapshot of connected agents and case
// counts.
func (h *Hub) Status() Status {
	var s Status
	for _, v := range h.registry.Connected() {
		s.ConnectedAgents = append(s.ConnectedAgents, v.Name())
	}
	sort.Strings(s.ConnectedAgents)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.cases {
		switch c.State() {
		case caseflow.StateDecided:
			s.DecidedCases++
		case caseflow.StateEscalated:
			s.EscalatedCases++
		case caseflow.StateClosed:
			s.ClosedCases++
		default:
			s.PendingCases++
		}
	}
	return s
}
