package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/logia/logia/internal/errors"
	"github.com/logia/logia/internal/hub"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
	"github.com/logia/logia/internal/registry"
)

// Defaults applied when no option overrides them.
const (
	defaultHeartbeatInterval = 5 * time.Second
	defaultRegisterTimeout   = 2 * time.Second
)

// Rule maps one class of disruption to a canned recommendation. Rules are
// evaluated in order; the first match answers the request.
type Rule struct {
	// Type is the disruption type this rule answers.
	Type protocol.DisruptionType
	// MinSeverity is the lowest severity the rule applies to.
	MinSeverity int
	// Recommendation is the answer the rule produces.
	Recommendation protocol.Recommendation
	// Confidence is the score attached to the answer. In [0,1].
	Confidence float64
}

// matches reports whether the rule answers the given event.
func (r Rule) matches(ev protocol.DisruptionEvent) bool {
	return r.Type == ev.Type && ev.Severity >= r.MinSeverity
}

// Simulator is a scripted agent. It owns its channel and background loop;
// one Simulator serves one hub connection at a time.
type Simulator struct {
	descriptor protocol.AgentDescriptor
	rules      []Rule
	thinkTime  time.Duration
	heartbeat  time.Duration
	logger     *logging.Logger

	mu      sync.Mutex
	started bool
	regID   string
	ch      *registry.Channel
	cancel  context.CancelFunc
	done    chan struct{}
}

// SimOption configures a Simulator.
type SimOption func(*Simulator)

// WithThinkTime delays each answer, simulating agent work.
func WithThinkTime(d time.Duration) SimOption {
	return func(s *Simulator) {
		if d > 0 {
			s.thinkTime = d
		}
	}
}

// WithHeartbeatInterval sets how often the simulator heartbeats.
func WithHeartbeatInterval(d time.Duration) SimOption {
	return func(s *Simulator) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithSimLogger sets the simulator's logger.
func WithSimLogger(logger *logging.Logger) SimOption {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSimulator creates a scripted agent answering from the given rule
// table. Events no rule matches are answered NoAction at low confidence.
func NewSimulator(descriptor protocol.AgentDescriptor, rules []Rule, opts ...SimOption) *Simulator {
	s := &Simulator{
		descriptor: descriptor,
		rules:      rules,
		heartbeat:  defaultHeartbeatInterval,
		logger:     logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithAgent(descriptor.Name)
	return s
}

// Name returns the simulator's agent name.
func (s *Simulator) Name() string { return s.descriptor.Name }

// RegistrationID returns the registration ID from the hub's ack, empty
// before Connect succeeds.
func (s *Simulator) RegistrationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regID
}

// Connect attaches the simulator to the hub, registers, and starts the
// serve loop. It blocks until the hub acknowledges the registration or the
// register timeout elapses.
func (s *Simulator) Connect(ctx context.Context, h *hub.Hub) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("agents: simulator already connected")
	}

	ch := registry.NewChannel()
	if err := h.Attach(ch); err != nil {
		return err
	}

	frame, err := protocol.Encode(protocol.Register{Descriptor: s.descriptor})
	if err != nil {
		ch.Close()
		return err
	}
	if err := ch.SendToHub(ctx, frame); err != nil {
		ch.Close()
		return err
	}

	regID, err := awaitRegistered(ctx, ch)
	if err != nil {
		ch.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.started = true
	s.regID = regID
	s.ch = ch
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("agent connected", "registration_id", regID)
	go s.serve(loopCtx, ch, regID)
	return nil
}

// awaitRegistered reads frames until the hub's registration ack arrives.
func awaitRegistered(ctx context.Context, ch *registry.Channel) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRegisterTimeout)
	defer cancel()

	for {
		select {
		case frame := <-ch.FromHub():
			msg, err := protocol.Decode(frame)
			if err != nil {
				return "", err
			}
			ack, ok := msg.(protocol.Registered)
			if !ok {
				return "", fmt.Errorf("agents: expected registered ack, got %s", msg.Type())
			}
			return ack.RegistrationID, nil
		case <-ch.Done():
			return "", errors.ErrChannelClosed
		case <-ctx.Done():
			return "", errors.NewTimeoutError("registration", defaultRegisterTimeout)
		}
	}
}

// Disconnect closes the simulator's channel and stops its loop. Idempotent.
func (s *Simulator) Disconnect() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	ch := s.ch
	done := s.done
	s.mu.Unlock()

	cancel()
	ch.Close()
	<-done
	s.logger.Info("agent disconnected")
}

// serve heartbeats on an interval and answers dispatched requests until
// the channel closes or the context ends.
func (s *Simulator) serve(ctx context.Context, ch *registry.Channel, regID string) {
	defer close(s.done)

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch.Done():
			return
		case <-ticker.C:
			frame, err := protocol.Encode(protocol.Heartbeat{RegistrationID: regID})
			if err != nil {
				s.logger.Error("encode heartbeat", "error", err)
				continue
			}
			if err := ch.SendToHub(ctx, frame); err != nil {
				s.logger.Warn("heartbeat send failed", "error", err)
				return
			}
		case frame := <-ch.FromHub():
			msg, err := protocol.Decode(frame)
			if err != nil {
				s.logger.Warn("dropping malformed frame", "error", err)
				continue
			}
			req, ok := msg.(protocol.Request)
			if !ok {
				continue
			}
			s.answer(ctx, ch, req)
		}
	}
}

// answer applies the rule table to one request and sends the response.
func (s *Simulator) answer(ctx context.Context, ch *registry.Channel, req protocol.Request) {
	if s.thinkTime > 0 {
		select {
		case <-time.After(s.thinkTime):
		case <-ctx.Done():
			return
		}
	}

	rec, confidence := s.recommend(req.Event)
	frame, err := protocol.Encode(protocol.Response{
		CorrelationID:  req.CorrelationID,
		Recommendation: rec,
		Confidence:     confidence,
		Evidence: map[string]string{
			"agent":    s.descriptor.Name,
			"event_id": req.Event.ID,
		},
	})
	if err != nil {
		s.logger.Error("encode response", "error", err)
		return
	}
	if err := ch.SendToHub(ctx, frame); err != nil {
		s.logger.Warn("response send failed", "correlation_id", req.CorrelationID, "error", err)
		return
	}
	s.logger.Debug("request answered",
		"correlation_id", req.CorrelationID,
		"recommendation", string(rec.Kind),
		"confidence", confidence)
}

// recommend picks the first matching rule, falling back to a low-confidence
// NoAction when nothing matches.
func (s *Simulator) recommend(ev protocol.DisruptionEvent) (protocol.Recommendation, float64) {
	for _, r := range s.rules {
		if r.matches(ev) {
			return r.Recommendation, r.Confidence
		}
	}
	return protocol.Recommendation{Kind: protocol.RecommendNoAction}, 0.3
}
