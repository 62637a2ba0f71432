package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/logia/logia/internal/errors"
	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
)

// Liveness is an agent's connection health.
type Liveness string

const (
	// LivenessConnected means the agent is registered and heartbeating.
	LivenessConnected Liveness = "connected"

	// LivenessUnresponsive means the agent missed its heartbeat timeout.
	// It is excluded from capability lookups until it heartbeats again.
	LivenessUnresponsive Liveness = "unresponsive"

	// LivenessDisconnected means the agent deregistered or exhausted its
	// grace period. It must register again to participate.
	LivenessDisconnected Liveness = "disconnected"
)

// AgentView is an immutable snapshot of one registered agent, handed to
// dispatch so a case never straddles two views of the agent set.
type AgentView struct {
	Descriptor     protocol.AgentDescriptor
	RegistrationID string
	Epoch          uint64
	Liveness       Liveness
	Channel        *Channel
}

// Name returns the agent's unique name.
func (v AgentView) Name() string { return v.Descriptor.Name }

// entry is the registry's mutable record for one agent name.
type entry struct {
	descriptor    protocol.AgentDescriptor
	regID         string
	epoch         uint64
	liveness      Liveness
	lastHeartbeat time.Time
	channel       *Channel
}

func (e *entry) view() AgentView {
	return AgentView{
		Descriptor:     e.descriptor,
		RegistrationID: e.regID,
		Epoch:          e.epoch,
		Liveness:       e.liveness,
		Channel:        e.channel,
	}
}

// Registry tracks connected agents. Writes (registration, heartbeats,
// sweeps) are serialized; reads take consistent snapshots.
type Registry struct {
	mu        sync.RWMutex
	byName    map[string]*entry
	byReg     map[string]*entry
	nextEpoch uint64

	heartbeatTimeout time.Duration
	heartbeatGrace   time.Duration
	sweepInterval    time.Duration

	bus    *event.Bus
	logger *logging.Logger

	started   bool
	cancel    context.CancelFunc
	sweepDone chan struct{}
}

// NewRegistry creates a Registry publishing lifecycle events on bus.
func NewRegistry(bus *event.Bus, logger *logging.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logging.NopLogger()
	}

	rc := defaultOptions()
	for _, opt := range opts {
		opt(rc)
	}

	return &Registry{
		byName:           make(map[string]*entry),
		byReg:            make(map[string]*entry),
		heartbeatTimeout: rc.heartbeatTimeout,
		heartbeatGrace:   rc.heartbeatGrace,
		sweepInterval:    rc.sweepInterval,
		bus:              bus,
		logger:           logger.WithComponent("registry"),
	}
}

// Register stores an agent descriptor and its channel, opening a new
// connection epoch. It fails with ErrDuplicateAgent if the name is already
// connected (or unresponsive but not yet disconnected) in the current epoch.
func (r *Registry) Register(desc protocol.AgentDescriptor, ch *Channel) (string, error) {
	if err := desc.Validate(); err != nil {
		return "", err
	}
	if ch == nil {
		return "", errors.New("registry: channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[desc.Name]; ok && existing.liveness != LivenessDisconnected {
		return "", fmt.Errorf("%w: %s", errors.ErrDuplicateAgent, desc.Name)
	}

	r.nextEpoch++
	e := &entry{
		descriptor:    desc,
		regID:         uuid.NewString(),
		epoch:         r.nextEpoch,
		liveness:      LivenessConnected,
		lastHeartbeat: time.Now(),
		channel:       ch,
	}
	r.byName[desc.Name] = e
	r.byReg[e.regID] = e

	r.logger.Info("agent registered",
		"agent", desc.Name,
		"capabilities", desc.Capabilities,
		"weight", desc.Weight,
		"epoch", e.epoch)
	if r.bus != nil {
		caps := make([]string, len(desc.Capabilities))
		for i, c := range desc.Capabilities {
			caps[i] = string(c)
		}
		r.bus.Publish(event.NewAgentRegisteredEvent(desc.Name, caps, e.epoch))
	}
	return e.regID, nil
}

// Heartbeat refreshes an agent's liveness timestamp. It fails with
// ErrUnknownRegistration if the registration ID belongs to no current epoch.
// A heartbeat from an Unresponsive agent restores it to Connected.
func (r *Registry) Heartbeat(regID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byReg[regID]
	if !ok || e.liveness == LivenessDisconnected {
		return fmt.Errorf("%w: %s", errors.ErrUnknownRegistration, regID)
	}

	e.lastHeartbeat = time.Now()
	if e.liveness == LivenessUnresponsive {
		e.liveness = LivenessConnected
		r.logger.Info("agent recovered", "agent", e.descriptor.Name)
	}
	return nil
}

// Deregister marks the agent Disconnected and closes its channel. It is
// idempotent: unknown or already-disconnected registration IDs are ignored.
func (r *Registry) Deregister(regID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byReg[regID]
	if !ok || e.liveness == LivenessDisconnected {
		return
	}
	r.disconnectLocked(e, "deregistered")
}

// disconnectLocked finalizes an epoch. Caller must hold r.mu.
func (r *Registry) disconnectLocked(e *entry, reason string) {
	e.liveness = LivenessDisconnected
	e.channel.Close()
	delete(r.byReg, e.regID)

	r.logger.Info("agent disconnected", "agent", e.descriptor.Name, "reason", reason)
	if r.bus != nil {
		r.bus.Publish(event.NewAgentDisconnectedEvent(e.descriptor.Name, e.epoch, reason))
	}
}

// CapableAgents returns a snapshot of every Connected agent advertising the
// given disruption type, sorted by name. An empty result is valid and means
// the case must escalate. Unresponsive agents are excluded.
func (r *Registry) CapableAgents(t protocol.DisruptionType) []AgentView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var views []AgentView
	for _, e := range r.byName {
		if e.liveness == LivenessConnected && e.descriptor.CanHandle(t) {
			views = append(views, e.view())
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name() < views[j].Name() })
	return views
}

// Agent returns the current snapshot for the named agent.
func (r *Registry) Agent(name string) (AgentView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	if !ok {
		return AgentView{}, false
	}
	return e.view(), true
}

// Connected returns a snapshot of every Connected agent, sorted by name.
func (r *Registry) Connected() []AgentView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var views []AgentView
	for _, e := range r.byName {
		if e.liveness == LivenessConnected {
			views = append(views, e.view())
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name() < views[j].Name() })
	return views
}

// Start launches the background liveness sweep. Returns an error if the
// registry is already started.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New("registry: already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.started = true
	r.sweepDone = make(chan struct{})

	go r.sweepLoop(ctx)
	return nil
}

// Stop halts the liveness sweep. It is idempotent.
func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	done := r.sweepDone
	r.mu.Unlock()

	cancel()
	<-done
}

// sweepLoop periodically ages out quiet agents.
func (r *Registry) sweepLoop(ctx context.Context) {
	defer close(r.sweepDone)

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

// sweep applies the liveness policy at the given instant: agents quiet
// longer than the heartbeat timeout become Unresponsive; agents quiet
// longer than timeout plus grace become Disconnected.
func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.byName {
		if e.liveness == LivenessDisconnected {
			continue
		}
		quiet := now.Sub(e.lastHeartbeat)
		switch {
		case quiet > r.heartbeatTimeout+r.heartbeatGrace:
			r.disconnectLocked(e, "heartbeat expired")
		case quiet > r.heartbeatTimeout && e.liveness == LivenessConnected:
			e.liveness = LivenessUnresponsive
			r.logger.Warn("agent unresponsive",
				"agent", e.descriptor.Name,
				"quiet_for", quiet.String())
			if r.bus != nil {
				r.bus.Publish(event.NewAgentUnresponsiveEvent(e.descriptor.Name, quiet))
			}
		}
	}
}
