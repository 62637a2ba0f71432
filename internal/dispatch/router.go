package dispatch

import (
	"sync"

	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
)

// Router matches inbound agent responses to outstanding requests by
// correlation ID. It is shared between the dispatcher (which registers
// expectations) and the hub's receive loops (which resolve them).
type Router struct {
	mu      sync.Mutex
	pending map[string]chan protocol.Response

	bus    *event.Bus
	logger *logging.Logger
}

// NewRouter creates a Router publishing stale-response events on bus.
func NewRouter(bus *event.Bus, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Router{
		pending: make(map[string]chan protocol.Response),
		bus:     bus,
		logger:  logger.WithComponent("dispatch"),
	}
}

// Expect registers an outstanding correlation ID and returns the channel
// its response will be delivered on. The channel is buffered so a resolve
// never blocks the receive loop.
func (r *Router) Expect(correlationID string) <-chan protocol.Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan protocol.Response, 1)
	r.pending[correlationID] = ch
	return ch
}

// Resolve delivers a response to its waiting dispatcher. It returns false
// if the correlation ID is not outstanding (a duplicate, a response from
// a prior deadline, or one for a cancelled case), in which case the
// response is discarded and has no effect on any case.
func (r *Router) Resolve(agent string, resp protocol.Response) bool {
	r.mu.Lock()
	ch, ok := r.pending[resp.CorrelationID]
	if ok {
		delete(r.pending, resp.CorrelationID)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("discarding stale response",
			"agent", agent,
			"correlation_id", resp.CorrelationID)
		if r.bus != nil {
			r.bus.Publish(event.NewStaleResponseEvent(agent, resp.CorrelationID))
		}
		return false
	}

	ch <- resp
	return true
}

// Forget withdraws an outstanding correlation ID. Any response arriving
// for it afterwards is stale.
func (r *Router) Forget(correlationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, correlationID)
}

// PendingCount returns the number of outstanding correlation IDs.
func (r *Router) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
