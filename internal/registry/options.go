package registry

import "time"

// Defaults applied when no option overrides them.
const (
	defaultHeartbeatTimeout = 15 * time.Second
	defaultHeartbeatGrace   = 30 * time.Second
	defaultSweepInterval    = time.Second
)

// options holds optional configuration for a Registry.
type options struct {
	heartbeatTimeout time.Duration
	heartbeatGrace   time.Duration
	sweepInterval    time.Duration
}

func defaultOptions() *options {
	return &options{
		heartbeatTimeout: defaultHeartbeatTimeout,
		heartbeatGrace:   defaultHeartbeatGrace,
		sweepInterval:    defaultSweepInterval,
	}
}

// Option configures a Registry.
type Option func(*options)

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

// WithSweepInterval sets how often the background sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sweepInterval = d
		}
	}
}
