package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from CampaignStatus
		to   CampaignStatus
		want bool
	}{
		{CampaignStatusDraft, CampaignStatusScheduled, true},
		{CampaignStatusDraft, CampaignStatusInProgress, false},
		{CampaignStatusScheduled, CampaignStatusInProgress, true},
		{CampaignStatusScheduled, CampaignStatusPaused, false},
		{CampaignStatusInProgress, CampaignStatusPaused, true},
		{CampaignStatusInProgress, CampaignStatusCompleted, true},
		{CampaignStatusPaused, CampaignStatusInProgress, true},
		{CampaignStatusPaused, CampaignStatusCompleted, false},
		// Cancel is allowed from any non-terminal state.
		{CampaignStatusDraft, CampaignStatusCancelled, true},
		{CampaignStatusScheduled, CampaignStatusCancelled, true},
		{CampaignStatusInProgress, CampaignStatusCancelled, true},
		{CampaignStatusPaused, CampaignStatusCancelled, true},
		// Terminal states never move.
		{CampaignStatusCompleted, CampaignStatusInProgress, false},
		{CampaignStatusCompleted, CampaignStatusCancelled, false},
		{CampaignStatusCancelled, CampaignStatusScheduled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestMessageStatus_CanTransition(t *testing.T) {
	assert.True(t, MessageStatusScheduled.CanTransition(MessageStatusSent))
	assert.True(t, MessageStatusScheduled.CanTransition(MessageStatusFailed))
	assert.True(t, MessageStatusSent.CanTransition(MessageStatusDelivered))
	assert.True(t, MessageStatusDelivered.CanTransition(MessageStatusRead))
	assert.False(t, MessageStatusScheduled.CanTransition(MessageStatusRead))
	assert.False(t, MessageStatusFailed.CanTransition(MessageStatusSent))
	assert.False(t, MessageStatusRead.CanTransition(MessageStatusDelivered))
}

func TestTriggerType_IsValid(t *testing.T) {
	assert.True(t, TriggerTypeNewLead.IsValid())
	assert.True(t, TriggerTypeManual.IsValid())
	assert.False(t, TriggerType("deal_won").IsValid())
}

func TestNodeType_IsValid(t *testing.T) {
	assert.True(t, NodeTypeAction.IsValid())
	assert.True(t, NodeTypeGroup.IsValid())
	assert.False(t, NodeType("webhook").IsValid())
}
