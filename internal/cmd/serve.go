package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logia/logia/internal/agents"
	"github.com/logia/logia/internal/config"
	"github.com/logia/logia/internal/event"
	"github.com/logia/logia/internal/hub"
	"github.com/logia/logia/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordination hub with the configured agent fleet",
	Long: `Run the coordination hub until interrupted.

The simulator agents named in agents.enabled are connected at startup;
they register, heartbeat, and answer dispatched requests. The config file
is watched for changes while the hub runs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	h := newHub(cfg, logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	config.Watch(h.Bus(), logger)

	status := h.Status()
	fmt.Printf("hub running with agents: %s\n", strings.Join(status.ConnectedAgents, ", "))
	fmt.Println("press Ctrl+C to stop")

	<-ctx.Done()
	fmt.Println("shutting down")
	return nil
}

// newHub builds a Hub from the loaded configuration.
func newHub(cfg *config.Config, logger *logging.Logger) *hub.Hub {
	return hub.New(
		hub.WithDispatchDeadline(cfg.Hub.DispatchDeadline()),
		hub.WithConfidenceFloor(cfg.Arbitration.ConfidenceFloor),
		hub.WithRecommendationPriority(cfg.Arbitration.Priority()),
		hub.WithHeartbeatTimeout(cfg.Registry.HeartbeatTimeout()),
		hub.WithHeartbeatGrace(cfg.Registry.HeartbeatGrace()),
		hub.WithSweepInterval(cfg.Registry.SweepInterval()),
		hub.WithLogger(logger),
		hub.WithBus(event.NewBus()),
	)
}

// connectAgents builds and connects the configured simulator presets.
func connectAgents(ctx context.Context, h *hub.Hub, cfg *config.Config, logger *logging.Logger) ([]*agents.Simulator, error) {
	opts := []agents.SimOption{
		agents.WithHeartbeatInterval(cfg.Agents.HeartbeatInterval()),
		agents.WithSimLogger(logger),
	}
	if cfg.Agents.ThinkTime() > 0 {
		opts = append(opts, agents.WithThinkTime(cfg.Agents.ThinkTime()))
	}

	var sims []*agents.Simulator
	for _, name := range cfg.Agents.Enabled {
		var s *agents.Simulator
		switch name {
		case "rerouting":
			s = agents.NewReroutingAgent(opts...)
		case "safety":
			s = agents.NewSafetyAgent(opts...)
		case "cancellation":
			s = agents.NewCancellationAgent(opts...)
		default:
			// Unknown names are rejected by config validation.
			continue
		}
		if err := s.Connect(ctx, h); err != nil {
			for _, connected := range sims {
				connected.Disconnect()
			}
			return nil, fmt.Errorf("connect agent %s: %w", name, err)
		}
		sims = append(sims, s)
	}
	return sims, nil
}
