package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/logia/logia/internal/arbiter"
	"github.com/logia/logia/internal/config"
	"github.com/logia/logia/internal/hub"
	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
)

var (
	demoType     string
	demoSeverity int
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Submit a sample disruption and print the decision",
	Long: `Run a single disruption through the hub and the configured agent
fleet, then print the decision, its rationale, and the case's audit trail.

Examples:
  logia demo
  logia demo --type spoiled-cargo --severity 5
  logia demo --type missed-window --severity 2`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoType, "type", "blocked-route",
		"disruption type: blocked-route, spoiled-cargo, missed-window, other")
	demoCmd.Flags().IntVar(&demoSeverity, "severity", 3, "disruption severity (1 and up)")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	ctx := cmd.Context()
	h := newHub(cfg, logger)
	if err := h.Start(ctx); err != nil {
		return err
	}
	defer h.Stop()

	sims, err := connectAgents(ctx, h, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sims {
			s.Disconnect()
		}
	}()

	ev := protocol.DisruptionEvent{
		ID:         "demo-" + uuid.NewString(),
		Type:       protocol.DisruptionType(demoType),
		Reference:  "order-demo-1",
		Severity:   demoSeverity,
		Context:    map[string]string{"source": "logia demo"},
		OccurredAt: time.Now().UTC(),
	}

	caseID, err := h.SubmitDisruption(ev)
	if err != nil {
		return err
	}
	fmt.Printf("submitted %s (severity %d) as %s\n", ev.Type, ev.Severity, caseID)

	decision, status, err := awaitDecision(ctx, h, caseID, cfg.Hub.DispatchDeadline()+time.Second)
	if err != nil {
		return err
	}

	fmt.Printf("\nstatus:         %s\n", status)
	fmt.Printf("recommendation: %s\n", decision.Recommendation.Kind)
	if decision.Recommendation.NewRoute != "" {
		fmt.Printf("new route:      %s\n", decision.Recommendation.NewRoute)
	}
	if decision.Recommendation.Reason != "" {
		fmt.Printf("reason:         %s\n", decision.Recommendation.Reason)
	}
	fmt.Printf("rule:           %s\n", decision.Rule)
	fmt.Printf("rationale:      %s\n", decision.Rationale)
	for _, c := range decision.Contributors {
		fmt.Printf("  contributor:  %s (weight %.2f, confidence %.2f)\n",
			c.Agent, c.Weight, c.Response.Confidence)
	}

	if c, ok := h.Case(caseID); ok {
		fmt.Println("\naudit trail:")
		for _, entry := range c.Audit() {
			fmt.Printf("  %s  %s -> %s  (%s)\n",
				entry.At.Format(time.RFC3339Nano), entry.From, entry.To, entry.Trigger)
		}
	}

	return h.Acknowledge(caseID)
}

// awaitDecision polls until the case leaves the pending state.
func awaitDecision(ctx context.Context, h *hub.Hub, caseID string, timeout time.Duration) (arbiter.Decision, hub.CaseStatus, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return arbiter.Decision{}, "", ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}

		d, status := h.GetDecision(caseID)
		if status != hub.StatusPending {
			return d, status, nil
		}
	}
	return arbiter.Decision{}, "", fmt.Errorf("case %s still pending after %s", caseID, timeout)
}
