package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/logia/logia/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify LOGIA configuration",
	Long: `View or modify LOGIA configuration.

Without arguments, displays the current configuration.
Use subcommands to create a config file or show its path.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/logia/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("hub:")
	fmt.Printf("  dispatch_deadline_ms: %d\n", cfg.Hub.DispatchDeadlineMs)

	fmt.Println("arbitration:")
	fmt.Printf("  confidence_floor: %g\n", cfg.Arbitration.ConfidenceFloor)
	fmt.Printf("  recommendation_priority: [%s]\n", strings.Join(cfg.Arbitration.RecommendationPriority, ", "))

	fmt.Println("registry:")
	fmt.Printf("  heartbeat_timeout_ms: %d\n", cfg.Registry.HeartbeatTimeoutMs)
	fmt.Printf("  heartbeat_grace_ms: %d\n", cfg.Registry.HeartbeatGraceMs)
	fmt.Printf("  sweep_interval_ms: %d\n", cfg.Registry.SweepIntervalMs)

	fmt.Println("agents:")
	fmt.Printf("  enabled: [%s]\n", strings.Join(cfg.Agents.Enabled, ", "))
	fmt.Printf("  think_time_ms: %d\n", cfg.Agents.ThinkTimeMs)
	fmt.Printf("  heartbeat_interval_ms: %d\n", cfg.Agents.HeartbeatIntervalMs)

	fmt.Println("logging:")
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	if cfg.Logging.Dir != "" {
		fmt.Printf("  dir: %s\n", cfg.Logging.Dir)
	} else {
		fmt.Printf("  dir: (stderr)\n")
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ConfigFile()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	defaults := config.Default()
	content := fmt.Sprintf(`# LOGIA coordination hub configuration

hub:
  # How long a case waits for agent responses (milliseconds)
  dispatch_deadline_ms: %d

arbitration:
  # Responses below this confidence are discarded, in [0, 1]
  confidence_floor: %g
  # Tie-break order, most preferred first. Must list every kind once.
  recommendation_priority: [%s]

registry:
  # Quiet agents become unresponsive after this long (milliseconds)
  heartbeat_timeout_ms: %d
  # Unresponsive agents disconnect after this additional grace (milliseconds)
  heartbeat_grace_ms: %d
  # How often the liveness sweep runs (milliseconds)
  sweep_interval_ms: %d

agents:
  # Simulator presets the serve command connects
  enabled: [%s]
  # Delay before each simulator answer (milliseconds, 0 = immediate)
  think_time_ms: %d
  # How often simulators heartbeat (milliseconds)
  heartbeat_interval_ms: %d

logging:
  # Log level: debug, info, warn, error
  level: %s
  # Log directory; empty logs to stderr
  dir: ""
`,
		defaults.Hub.DispatchDeadlineMs,
		defaults.Arbitration.ConfidenceFloor,
		strings.Join(defaults.Arbitration.RecommendationPriority, ", "),
		defaults.Registry.HeartbeatTimeoutMs,
		defaults.Registry.HeartbeatGraceMs,
		defaults.Registry.SweepIntervalMs,
		strings.Join(defaults.Agents.Enabled, ", "),
		defaults.Agents.ThinkTimeMs,
		defaults.Agents.HeartbeatIntervalMs,
		defaults.Logging.Level,
	)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Printf("Created config file: %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}
