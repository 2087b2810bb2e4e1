package interpreter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/onsell/automation/pkg/models"
)

// Node configuration is stored as opaque structured data; the interpreter
// parses it once per execution into a typed struct per node type.

// ActionConfig names the side-effecting operation an action node performs.
// Params are template-rendered against the execution context before the
// operation service runs them.
type ActionConfig struct {
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params"`
}

// ConditionConfig is the predicate of a condition node. The produced handle
// defaults to "true"/"false" but can be renamed per branch.
type ConditionConfig struct {
	Field       string                `json:"field"`
	Operator    models.FilterOperator `json:"operator"`
	Value       string                `json:"value"`
	TrueHandle  string                `json:"true_handle"`
	FalseHandle string                `json:"false_handle"`
}

// Handle returns the branch handle for an evaluation outcome.
func (c *ConditionConfig) Handle(matched bool) string {
	if matched {
		if c.TrueHandle != "" {
			return c.TrueHandle
		}

		return "true"
	}

	if c.FalseHandle != "" {
		return c.FalseHandle
	}

	return "false"
}

// DelayConfig is the parsed duration of a delay node.
type DelayConfig struct {
	Duration time.Duration
}

func ParseActionConfig(config map[string]any) (*ActionConfig, error) {
	parsed := &ActionConfig{}

	err := decodeConfig(config, parsed)
	if err != nil {
		return nil, err
	}

	if parsed.Operation == "" {
		return nil, fmt.Errorf("action config missing operation")
	}

	return parsed, nil
}

func ParseConditionConfig(config map[string]any) (*ConditionConfig, error) {
	parsed := &ConditionConfig{}

	err := decodeConfig(config, parsed)
	if err != nil {
		return nil, err
	}

	if parsed.Field == "" {
		return nil, fmt.Errorf("condition config missing field")
	}

	if parsed.Operator == "" {
		return nil, fmt.Errorf("condition config missing operator")
	}

	return parsed, nil
}

// ParseDelayConfig accepts a duration string ("1440m", "2h") or a bare
// number, which means minutes.
func ParseDelayConfig(config map[string]any) (*DelayConfig, error) {
	raw, ok := config["duration"]
	if !ok {
		return nil, fmt.Errorf("delay config missing duration")
	}

	switch typed := raw.(type) {
	case string:
		duration, err := time.ParseDuration(typed)
		if err != nil {
			return nil, fmt.Errorf("invalid delay duration %q: %w", typed, err)
		}

		if duration < 0 {
			return nil, fmt.Errorf("negative delay duration %q", typed)
		}

		return &DelayConfig{Duration: duration}, nil
	case float64:
		if typed < 0 {
			return nil, fmt.Errorf("negative delay duration %v", typed)
		}

		return &DelayConfig{Duration: time.Duration(typed) * time.Minute}, nil
	case int:
		if typed < 0 {
			return nil, fmt.Errorf("negative delay duration %v", typed)
		}

		return &DelayConfig{Duration: time.Duration(typed) * time.Minute}, nil
	default:
		return nil, fmt.Errorf("delay duration must be a string or a number, got %T", raw)
	}
}

func decodeConfig(config map[string]any, target any) error {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal node config: %w", err)
	}

	err = json.Unmarshal(configJSON, target)
	if err != nil {
		return fmt.Errorf("failed to decode node config: %w", err)
	}

	return nil
}
