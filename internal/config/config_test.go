package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/logia/logia/internal/protocol"
)

// resetViper clears viper state between tests.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default() fails validation: %v", ValidationErrors(errs))
	}
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Hub.DispatchDeadline() != 2*time.Second {
		t.Errorf("DispatchDeadline = %s, want 2s", cfg.Hub.DispatchDeadline())
	}
	if cfg.Arbitration.ConfidenceFloor != 0.2 {
		t.Errorf("ConfidenceFloor = %g, want 0.2", cfg.Arbitration.ConfidenceFloor)
	}
	if cfg.Registry.HeartbeatTimeout() != 15*time.Second {
		t.Errorf("HeartbeatTimeout = %s, want 15s", cfg.Registry.HeartbeatTimeout())
	}
	if len(cfg.Agents.Enabled) != 3 {
		t.Errorf("Agents.Enabled = %v, want all three presets", cfg.Agents.Enabled)
	}
}

func TestLoad_FromFile(t *testing.T) {
	resetViper(t)
	SetDefaults()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
hub:
  dispatch_deadline_ms: 500
arbitration:
  confidence_floor: 0.5
  recommendation_priority: [reroute, cancel, escalate, no-action]
registry:
  heartbeat_timeout_ms: 3000
agents:
  enabled: [rerouting]
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Hub.DispatchDeadline() != 500*time.Millisecond {
		t.Errorf("DispatchDeadline = %s, want 500ms", cfg.Hub.DispatchDeadline())
	}
	if cfg.Arbitration.ConfidenceFloor != 0.5 {
		t.Errorf("ConfidenceFloor = %g, want 0.5", cfg.Arbitration.ConfidenceFloor)
	}
	wantPriority := []protocol.RecommendationKind{
		protocol.RecommendReroute,
		protocol.RecommendCancel,
		protocol.RecommendEscalate,
		protocol.RecommendNoAction,
	}
	if got := cfg.Arbitration.Priority(); !reflect.DeepEqual(got, wantPriority) {
		t.Errorf("Priority() = %v, want %v", got, wantPriority)
	}
	// Unset sections keep their defaults.
	if cfg.Registry.HeartbeatGrace() != 30*time.Second {
		t.Errorf("HeartbeatGrace = %s, want default 30s", cfg.Registry.HeartbeatGrace())
	}
	if !reflect.DeepEqual(cfg.Agents.Enabled, []string{"rerouting"}) {
		t.Errorf("Agents.Enabled = %v, want [rerouting]", cfg.Agents.Enabled)
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	resetViper(t)
	SetDefaults()
	viper.Set("arbitration.confidence_floor", 1.5)

	if _, err := Load(); err == nil {
		t.Error("Load accepted confidence floor above 1")
	}
}

func TestPriority_EmptyAndInvalid(t *testing.T) {
	empty := ArbitrationConfig{}
	if got := empty.Priority(); got != nil {
		t.Errorf("empty Priority() = %v, want nil", got)
	}

	bad := ArbitrationConfig{RecommendationPriority: []string{"cancel", "bogus"}}
	if got := bad.Priority(); got != nil {
		t.Errorf("invalid Priority() = %v, want nil", got)
	}
}
