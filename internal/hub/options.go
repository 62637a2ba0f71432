package hub

import (
	"time"

	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
)

// Defaults applied when no option overrides them.
const (
	defaultDispatchDeadline = 2 * time.Second
	defaultConfidenceFloor  = 0.2
	defaultHeartbeatTimeout = 15 * time.Second
	defaultHeartbeatGrace   = 30 * time.Second
	defaultSweepInterval    = time.Second
)

// options holds optional configuration for a Hub.
type options struct {
	dispatchDeadline time.Duration
	confidenceFloor  float64
	priority         []protocol.RecommendationKind

	heartbeatTimeout time.Duration
	heartbeatGrace   time.Duration
	sweepInterval    time.Duration

	logger *logging.Logger
	bus    *event.Bus
}

func defaultHubOptions() *options {
	return &options{
		dispatchDeadline: defaultDispatchDeadline,
		confidenceFloor:  defaultConfidenceFloor,
		heartbeatTimeout: defaultHeartbeatTimeout,
		heartbeatGrace:   defaultHeartbeatGrace,
		sweepInterval:    defaultSweepInterval,
	}
}

// Option configures a Hub.
type Option func(*options)

// WithDispatchDeadline sets how long a case waits for agent responses.
func WithDispatchDeadline(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dispatchDeadline = d
		}
	}
}

// WithConfidenceFloor sets the arbitration noise filter. Responses with
// confidence below the floor are discarded. Must be in [0,1].
func WithConfidenceFloor(floor float64) Option {
	return func(o *options) {
		if floor >= 0 && floor <= 1 {
			o.confidenceFloor = floor
		}
	}
}

// WithRecommendationPriority sets the tie-break order for arbitration,
// most preferred kind first.
func WithRecommendationPriority(priority []protocol.RecommendationKind) Option {
	return func(o *options) {
		if len(priority) > 0 {
			o.priority = priority
		}
	}
}

// WithHeartbeatTimeout sets how long an agent may go without a heartbeat
// before it is marked Unresponsive.
func WithHeartbeatTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.heartbeatTimeout = d
		}
	}
}

// WithHeartbeatGrace sets how long an Unresponsive agent may stay quiet
// beyond the heartbeat timeout before it is Disconnected.
func WithHeartbeatGrace(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.heartbeatGrace = d
		}
	}
}

// WithSweepInterval sets how often the registry's liveness sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sweepInterval = d
		}
	}
}

// WithLogger sets the hub's logger. Components derive child loggers from it.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBus sets the event bus lifecycle events are published on. A shared
// bus lets callers observe case and agent activity.
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		if bus != nil {
			o.bus = bus
		}
	}
}
