package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/logia/logia/internal/logging"
	"github.com/logia/logia/internal/protocol"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "arbitration.confidence_floor")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateHub()...)
	errors = append(errors, c.validateArbitration()...)
	errors = append(errors, c.validateRegistry()...)
	errors = append(errors, c.validateAgents()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateHub validates the HubConfig
func (c *Config) validateHub() []ValidationError {
	var errors []ValidationError

	const minDeadlineMs = 10
	const maxDeadlineMs = 300_000 // 5 minutes

	if c.Hub.DispatchDeadlineMs < minDeadlineMs {
		errors = append(errors, ValidationError{
			Field:   "hub.dispatch_deadline_ms",
			Value:   c.Hub.DispatchDeadlineMs,
			Message: fmt.Sprintf("must be at least %dms", minDeadlineMs),
		})
	}
	if c.Hub.DispatchDeadlineMs > maxDeadlineMs {
		errors = append(errors, ValidationError{
			Field:   "hub.dispatch_deadline_ms",
			Value:   c.Hub.DispatchDeadlineMs,
			Message: fmt.Sprintf("exceeds maximum of %dms (5 minutes)", maxDeadlineMs),
		})
	}

	return errors
}

// validateArbitration validates the ArbitrationConfig
func (c *Config) validateArbitration() []ValidationError {
	var errors []ValidationError

	if c.Arbitration.ConfidenceFloor < 0 || c.Arbitration.ConfidenceFloor > 1 {
		errors = append(errors, ValidationError{
			Field:   "arbitration.confidence_floor",
			Value:   c.Arbitration.ConfidenceFloor,
			Message: "must be in [0, 1]",
		})
	}

	// The priority list, when given, must be a permutation of every
	// recommendation kind: a kind with no rank would make ties
	// unresolvable.
	if len(c.Arbitration.RecommendationPriority) > 0 {
		all := protocol.RecommendationKinds()
		if len(c.Arbitration.RecommendationPriority) != len(all) {
			errors = append(errors, ValidationError{
				Field:   "arbitration.recommendation_priority",
				Value:   c.Arbitration.RecommendationPriority,
				Message: fmt.Sprintf("must list all %d recommendation kinds exactly once", len(all)),
			})
			return errors
		}

		seen := make(map[string]bool, len(all))
		for i, k := range c.Arbitration.RecommendationPriority {
			if !protocol.ValidRecommendationKind(protocol.RecommendationKind(k)) {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("arbitration.recommendation_priority[%d]", i),
					Value:   k,
					Message: "unknown recommendation kind",
				})
				continue
			}
			if seen[k] {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("arbitration.recommendation_priority[%d]", i),
					Value:   k,
					Message: "duplicate recommendation kind",
				})
			}
			seen[k] = true
		}
	}

	return errors
}

// validateRegistry validates the RegistryConfig
func (c *Config) validateRegistry() []ValidationError {
	var errors []ValidationError

	if c.Registry.HeartbeatTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "registry.heartbeat_timeout_ms",
			Value:   c.Registry.HeartbeatTimeoutMs,
			Message: "must be positive",
		})
	}
	if c.Registry.HeartbeatGraceMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "registry.heartbeat_grace_ms",
			Value:   c.Registry.HeartbeatGraceMs,
			Message: "must be positive",
		})
	}
	if c.Registry.SweepIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "registry.sweep_interval_ms",
			Value:   c.Registry.SweepIntervalMs,
			Message: "must be positive",
		})
	}

	// A sweep slower than the timeout would let agents linger well past
	// their deadline before being noticed.
	if c.Registry.SweepIntervalMs > 0 && c.Registry.HeartbeatTimeoutMs > 0 &&
		c.Registry.SweepIntervalMs > c.Registry.HeartbeatTimeoutMs {
		errors = append(errors, ValidationError{
			Field:   "registry.sweep_interval_ms",
			Value:   c.Registry.SweepIntervalMs,
			Message: fmt.Sprintf("should not exceed heartbeat_timeout_ms (%d)", c.Registry.HeartbeatTimeoutMs),
		})
	}

	return errors
}

// validateAgents validates the AgentsConfig
func (c *Config) validateAgents() []ValidationError {
	var errors []ValidationError

	seen := make(map[string]bool)
	for i, name := range c.Agents.Enabled {
		fieldName := fmt.Sprintf("agents.enabled[%d]", i)

		if !IsValidAgentPreset(name) {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Value:   name,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidAgentPresets(), ", ")),
			})
			continue
		}
		if seen[name] {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Value:   name,
				Message: "duplicate agent preset",
			})
		}
		seen[name] = true
	}

	if c.Agents.ThinkTimeMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "agents.think_time_ms",
			Value:   c.Agents.ThinkTimeMs,
			Message: "must be non-negative",
		})
	}
	if c.Agents.HeartbeatIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "agents.heartbeat_interval_ms",
			Value:   c.Agents.HeartbeatIntervalMs,
			Message: "must be positive",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(logging.ValidLevels(), strings.ToUpper(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidLevels(), ", ")),
		})
	}

	return errors
}
