package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/logia/logia/internal/protocol"
)

// Config represents the complete LOGIA hub configuration
type Config struct {
	Hub         HubConfig         `mapstructure:"hub"`
	Arbitration ArbitrationConfig `mapstructure:"arbitration"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	Agents      AgentsConfig      `mapstructure:"agents"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// HubConfig controls the coordination hub's dispatch behavior
type HubConfig struct {
	// DispatchDeadlineMs is how long a case waits for agent responses
	// before outstanding requests resolve as timed out (in milliseconds)
	DispatchDeadlineMs int `mapstructure:"dispatch_deadline_ms"`
}

// ArbitrationConfig controls how conflicting agent recommendations merge
type ArbitrationConfig struct {
	// ConfidenceFloor discards responses below this confidence, in [0,1]
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`
	// RecommendationPriority is the tie-break order, most preferred first.
	// Must list every recommendation kind exactly once.
	// Default: cancel, escalate, reroute, no-action (conservative-first)
	RecommendationPriority []string `mapstructure:"recommendation_priority"`
}

// RegistryConfig controls agent liveness tracking
type RegistryConfig struct {
	// HeartbeatTimeoutMs is how long an agent may go without a heartbeat
	// before it is marked Unresponsive (in milliseconds)
	HeartbeatTimeoutMs int `mapstructure:"heartbeat_timeout_ms"`
	// HeartbeatGraceMs is how much longer an Unresponsive agent may stay
	// quiet before it is Disconnected (in milliseconds)
	HeartbeatGraceMs int `mapstructure:"heartbeat_grace_ms"`
	// SweepIntervalMs is how often the liveness sweep runs (in milliseconds)
	SweepIntervalMs int `mapstructure:"sweep_interval_ms"`
}

// AgentsConfig controls the simulator fleet the serve command starts
type AgentsConfig struct {
	// Enabled names the simulator presets to connect.
	// Options: "rerouting", "safety", "cancellation"
	Enabled []string `mapstructure:"enabled"`
	// ThinkTimeMs delays each simulator answer, simulating agent work
	// (0 = answer immediately)
	ThinkTimeMs int `mapstructure:"think_time_ms"`
	// HeartbeatIntervalMs is how often simulators heartbeat (in milliseconds)
	HeartbeatIntervalMs int `mapstructure:"heartbeat_interval_ms"`
}

// LoggingConfig controls hub logging behavior
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory the hub log file is written to.
	// Empty means log to stderr.
	Dir string `mapstructure:"dir"`
}

// DispatchDeadline returns the dispatch deadline as a time.Duration
func (c *HubConfig) DispatchDeadline() time.Duration {
	return time.Duration(c.DispatchDeadlineMs) * time.Millisecond
}

// Priority returns the configured tie-break order as recommendation kinds.
// An empty or invalid list yields nil, meaning the built-in default order.
func (c *ArbitrationConfig) Priority() []protocol.RecommendationKind {
	if len(c.RecommendationPriority) == 0 {
		return nil
	}
	kinds := make([]protocol.RecommendationKind, 0, len(c.RecommendationPriority))
	for _, k := range c.RecommendationPriority {
		kind := protocol.RecommendationKind(k)
		if !protocol.ValidRecommendationKind(kind) {
			return nil
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

// HeartbeatTimeout returns the heartbeat timeout as a time.Duration
func (c *RegistryConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutMs) * time.Millisecond
}

// HeartbeatGrace returns the heartbeat grace period as a time.Duration
func (c *RegistryConfig) HeartbeatGrace() time.Duration {
	return time.Duration(c.HeartbeatGraceMs) * time.Millisecond
}

// SweepInterval returns the sweep interval as a time.Duration
func (c *RegistryConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMs) * time.Millisecond
}

// ThinkTime returns the simulator think time as a time.Duration
func (c *AgentsConfig) ThinkTime() time.Duration {
	return time.Duration(c.ThinkTimeMs) * time.Millisecond
}

// HeartbeatInterval returns the simulator heartbeat interval as a time.Duration
func (c *AgentsConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Hub: HubConfig{
			DispatchDeadlineMs: 2000,
		},
		Arbitration: ArbitrationConfig{
			ConfidenceFloor: 0.2,
			RecommendationPriority: []string{
				string(protocol.RecommendCancel),
				string(protocol.RecommendEscalate),
				string(protocol.RecommendReroute),
				string(protocol.RecommendNoAction),
			},
		},
		Registry: RegistryConfig{
			HeartbeatTimeoutMs: 15000,
			HeartbeatGraceMs:   30000,
			SweepIntervalMs:    1000,
		},
		Agents: AgentsConfig{
			Enabled:             []string{"rerouting", "safety", "cancellation"},
			ThinkTimeMs:         0,
			HeartbeatIntervalMs: 5000,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Hub defaults
	viper.SetDefault("hub.dispatch_deadline_ms", defaults.Hub.DispatchDeadlineMs)

	// Arbitration defaults
	viper.SetDefault("arbitration.confidence_floor", defaults.Arbitration.ConfidenceFloor)
	viper.SetDefault("arbitration.recommendation_priority", defaults.Arbitration.RecommendationPriority)

	// Registry defaults
	viper.SetDefault("registry.heartbeat_timeout_ms", defaults.Registry.HeartbeatTimeoutMs)
	viper.SetDefault("registry.heartbeat_grace_ms", defaults.Registry.HeartbeatGraceMs)
	viper.SetDefault("registry.sweep_interval_ms", defaults.Registry.SweepIntervalMs)

	// Agents defaults
	viper.SetDefault("agents.enabled", defaults.Agents.Enabled)
	viper.SetDefault("agents.think_time_ms", defaults.Agents.ThinkTimeMs)
	viper.SetDefault("agents.heartbeat_interval_ms", defaults.Agents.HeartbeatIntervalMs)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "logia")
	}
	// Fall back to ~/.config/logia
	home, err := os.UserHomeDir()
	if err != nil {
		return ".logia"
	}
	return filepath.Join(home, ".config", "logia")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidAgentPresets returns the list of known simulator preset names
func ValidAgentPresets() []string {
	return []string{"rerouting", "safety", "cancellation"}
}

// IsValidAgentPreset checks if the given preset name is known
func IsValidAgentPreset(name string) bool {
	for _, valid := range ValidAgentPresets() {
		if name == valid {
			return true
		}
	}
	return false
}
