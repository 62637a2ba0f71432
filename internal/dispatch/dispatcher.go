package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
	"github.com/logia/logia/internal/registry"
)

// OutcomeStatus is the terminal result of one dispatched request.
type OutcomeStatus string

const (
	// OutcomeReceived means a matching response arrived before the deadline.
	OutcomeReceived OutcomeStatus = "received"

	// OutcomeTimedOut means the deadline elapsed with no matching response.
	OutcomeTimedOut OutcomeStatus = "timed-out"

	// OutcomeProtocolError means the request could not be delivered or
	// framed. The agent's input is treated as absent.
	OutcomeProtocolError OutcomeStatus = "protocol-error"
)

// Outcome records how one agent's request ended. Every dispatched request
// reaches exactly one terminal Outcome before arbitration runs.
type Outcome struct {
	Agent         string
	CorrelationID string
	Status        OutcomeStatus
	Response      *protocol.Response // set only when Status is OutcomeReceived
	Latency       time.Duration
	Err           error // set only when Status is OutcomeProtocolError
}

// Dispatcher fans requests out to agents and collects their outcomes.
type Dispatcher struct {
	router *Router
	bus    *event.Bus
	logger *logging.Logger
}

// NewDispatcher creates a Dispatcher resolving responses through router.
func NewDispatcher(router *Router, bus *event.Bus, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Dispatcher{
		router: router,
		bus:    bus,
		logger: logger.WithComponent("dispatch"),
	}
}

// Dispatch sends the event to every agent in the snapshot, concurrently,
// and waits up to deadline for their responses. It returns one terminal
// Outcome per agent: as soon as all agents have responded, or when the
// deadline elapses, whichever comes first. A single attempt per agent; no
// retries.
func (d *Dispatcher) Dispatch(ctx context.Context, caseID string, ev protocol.DisruptionEvent, agents []registry.AgentView, deadline time.Duration) map[string]Outcome {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	hardDeadline := time.Now().Add(deadline)

	var mu sync.Mutex
	outcomes := make(map[string]Outcome, len(agents))
	record := func(o Outcome) {
		mu.Lock()
		outcomes[o.Agent] = o
		mu.Unlock()
	}

	var wg conc.WaitGroup
	for _, agent := range agents {
		agent := agent // per-iteration copy: pre-Go 1.22 loop variable semantics
		wg.Go(func() {
			record(d.dispatchOne(ctx, caseID, ev, agent, hardDeadline))
		})
	}
	wg.Wait()

	return outcomes
}

// dispatchOne sends one request and waits for its terminal outcome.
func (d *Dispatcher) dispatchOne(ctx context.Context, caseID string, ev protocol.DisruptionEvent, agent registry.AgentView, hardDeadline time.Time) Outcome {
	correlationID := uuid.NewString()
	logger := d.logger.WithCase(caseID).WithAgent(agent.Name())

	waitCh := d.router.Expect(correlationID)
	sentAt := time.Now()

	frame, err := protocol.Encode(protocol.Request{
		CorrelationID: correlationID,
		Event:         ev,
		Deadline:      hardDeadline,
	})
	if err == nil {
		err = agent.Channel.SendToAgent(ctx, frame)
	}
	if err != nil {
		d.router.Forget(correlationID)
		logger.Warn("request delivery failed", "correlation_id", correlationID, "error", err)
		return Outcome{
			Agent:         agent.Name(),
			CorrelationID: correlationID,
			Status:        OutcomeProtocolError,
			Latency:       time.Since(sentAt),
			Err:           err,
		}
	}

	logger.Debug("request dispatched", "correlation_id", correlationID)
	if d.bus != nil {
		d.bus.Publish(event.NewRequestDispatchedEvent(caseID, agent.Name(), correlationID))
	}

	select {
	case resp := <-waitCh:
		latency := time.Since(sentAt)
		logger.Info("response received",
			"correlation_id", correlationID,
			"recommendation", string(resp.Recommendation.Kind),
			"confidence", resp.Confidence,
			"latency", latency.String())
		if d.bus != nil {
			d.bus.Publish(event.NewResponseReceivedEvent(
				caseID, agent.Name(), correlationID,
				string(resp.Recommendation.Kind), resp.Confidence, latency))
		}
		return Outcome{
			Agent:         agent.Name(),
			CorrelationID: correlationID,
			Status:        OutcomeReceived,
			Response:      &resp,
			Latency:       latency,
		}

	case <-ctx.Done():
		// Withdraw the correlation ID so a late response is discarded
		// as stale instead of leaking into a future dispatch.
		d.router.Forget(correlationID)
		waited := time.Since(sentAt)
		logger.Warn("request timed out", "correlation_id", correlationID, "waited", waited.String())
		if d.bus != nil {
			d.bus.Publish(event.NewRequestTimedOutEvent(caseID, agent.Name(), correlationID, waited))
		}
		return Outcome{
			Agent:         agent.Name(),
			CorrelationID: correlationID,
			Status:        OutcomeTimedOut,
			Latency:       waited,
		}
	}
}
