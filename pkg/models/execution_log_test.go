package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from ExecutionStatus
		to   ExecutionStatus
		want bool
	}{
		{ExecutionStatusPending, ExecutionStatusRunning, true},
		{ExecutionStatusPending, ExecutionStatusFailed, true},
		{ExecutionStatusPending, ExecutionStatusSkipped, true},
		{ExecutionStatusPending, ExecutionStatusCompleted, false},
		{ExecutionStatusRunning, ExecutionStatusCompleted, true},
		{ExecutionStatusRunning, ExecutionStatusFailed, true},
		{ExecutionStatusRunning, ExecutionStatusSkipped, true},
		{ExecutionStatusRunning, ExecutionStatusPending, false},
		{ExecutionStatusCompleted, ExecutionStatusRunning, false},
		{ExecutionStatusCompleted, ExecutionStatusFailed, false},
		{ExecutionStatusFailed, ExecutionStatusPending, false},
		{ExecutionStatusFailed, ExecutionStatusRunning, false},
		{ExecutionStatusSkipped, ExecutionStatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestExecutionStatus_Terminal(t *testing.T) {
	assert.False(t, ExecutionStatusPending.Terminal())
	assert.False(t, ExecutionStatusRunning.Terminal())
	assert.True(t, ExecutionStatusCompleted.Terminal())
	assert.True(t, ExecutionStatusFailed.Terminal())
	assert.True(t, ExecutionStatusSkipped.Terminal())
}

func TestAutomation_EntryNodes(t *testing.T) {
	automation := &Automation{
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeTrigger},
			{ID: "act", Type: NodeTypeAction},
		},
		Edges: []*Edge{
			{ID: "e1", SourceID: "start", TargetID: "act"},
		},
	}

	entries := automation.EntryNodes()
	assert.Len(t, entries, 1)
	assert.Equal(t, "start", entries[0].ID)
}

func TestAutomation_EntryNodes_NoTriggerFallsBackToRoots(t *testing.T) {
	automation := &Automation{
		Nodes: []*Node{
			{ID: "a", Type: NodeTypeAction},
			{ID: "b", Type: NodeTypeAction},
			{ID: "c", Type: NodeTypeAction},
		},
		Edges: []*Edge{
			{ID: "e1", SourceID: "a", TargetID: "c"},
			{ID: "e2", SourceID: "b", TargetID: "c"},
		},
	}

	entries := automation.EntryNodes()
	assert.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
}

func TestAutomation_NodeByID(t *testing.T) {
	automation := &Automation{
		Nodes: []*Node{{ID: "n1", Type: NodeTypeAction}},
	}

	assert.NotNil(t, automation.NodeByID("n1"))
	assert.Nil(t, automation.NodeByID("missing"))
}
