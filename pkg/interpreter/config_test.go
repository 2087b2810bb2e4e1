package interpreter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onsell/automation/pkg/models"
)

func TestParseActionConfig(t *testing.T) {
	config, err := ParseActionConfig(map[string]any{
		"operation": "send_message",
		"params": map[string]any{
			"channel": "whatsapp",
			"content": "Hi {{contact.name}}",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "send_message", config.Operation)
	assert.Equal(t, "whatsapp", config.Params["channel"])
}

func TestParseActionConfig_MissingOperation(t *testing.T) {
	_, err := ParseActionConfig(map[string]any{"params": map[string]any{}})
	assert.ErrorContains(t, err, "missing operation")
}

func TestParseConditionConfig(t *testing.T) {
	config, err := ParseConditionConfig(map[string]any{
		"field":    "contact.status",
		"operator": "equals",
		"value":    "lead",
	})
	require.NoError(t, err)

	assert.Equal(t, "contact.status", config.Field)
	assert.Equal(t, models.FilterOperatorEquals, config.Operator)
	assert.Equal(t, "lead", config.Value)
}

func TestParseConditionConfig_MissingField(t *testing.T) {
	_, err := ParseConditionConfig(map[string]any{"operator": "equals"})
	assert.ErrorContains(t, err, "missing field")

	_, err = ParseConditionConfig(map[string]any{"field": "status"})
	assert.ErrorContains(t, err, "missing operator")
}

func TestConditionConfig_Handle(t *testing.T) {
	config := &ConditionConfig{}

	assert.Equal(t, "true", config.Handle(true))
	assert.Equal(t, "false", config.Handle(false))

	config.TrueHandle = "yes"
	config.FalseHandle = "no"

	assert.Equal(t, "yes", config.Handle(true))
	assert.Equal(t, "no", config.Handle(false))
}

func TestParseDelayConfig(t *testing.T) {
	tests := []struct {
		name     string
		duration any
		want     time.Duration
	}{
		{"duration string minutes", "1440m", 1440 * time.Minute},
		{"duration string hours", "2h", 2 * time.Hour},
		{"bare number means minutes", 30.0, 30 * time.Minute},
		{"bare int means minutes", 15, 15 * time.Minute},
		{"zero", 0.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseDelayConfig(map[string]any{"duration": tt.duration})
			require.NoError(t, err)
			assert.Equal(t, tt.want, config.Duration)
		})
	}
}

func TestParseDelayConfig_Invalid(t *testing.T) {
	_, err := ParseDelayConfig(map[string]any{})
	assert.ErrorContains(t, err, "missing duration")

	_, err = ParseDelayConfig(map[string]any{"duration": "soon"})
	assert.ErrorContains(t, err, "invalid delay duration")

	_, err = ParseDelayConfig(map[string]any{"duration": -5.0})
	assert.ErrorContains(t, err, "negative delay")

	_, err = ParseDelayConfig(map[string]any{"duration": true})
	assert.ErrorContains(t, err, "must be a string or a number")
}
