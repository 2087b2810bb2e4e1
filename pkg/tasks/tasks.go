// Package tasks defines the durable units of work carried by the task bus.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type discriminates task payloads on the wire.
type Type string

// Topic is the task queue topic on the bus.
const Topic = "automation.tasks"

// Bus message metadata keys.
const (
	KeyMetadataKey  = "key"
	TypeMetadataKey = "task_type"
)

const (
	TypeRunNode                 Type = "task.run_node"
	TypeRunCampaignBatch        Type = "task.run_campaign_batch"
	TypeCheckScheduledCampaigns Type = "task.check_scheduled_campaigns"
)

// Task is a unit of work that executes out-of-process with automatic retry.
type Task interface {
	GetType() Type
	Meta() *Base
}

// Base carries the bookkeeping every task shares. TenantID is the tenant
// snapshot taken at enqueue time ("" for cross-tenant tasks); Attempt counts
// executions so the retry limit survives process restarts.
type Base struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	TenantID   string    `json:"tenant_id,omitempty"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewBase creates task bookkeeping with a fresh id.
func NewBase(taskType Type) Base {
	return Base{
		ID:         uuid.New().String(),
		Type:       taskType,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (b *Base) Meta() *Base { return b }

// RunNode executes one automation node for one contact under one log entry.
type RunNode struct {
	Base

	AutomationID  string         `json:"automation_id"`
	NodeID        string         `json:"node_id"`
	ContactID     string         `json:"contact_id"`
	OpportunityID *string        `json:"opportunity_id,omitempty"`
	LogID         string         `json:"log_id"`
	Context       map[string]any `json:"context,omitempty"`
}

func (t RunNode) GetType() Type { return TypeRunNode }

// RunCampaignBatch sends one bounded batch of due messages for a campaign and
// re-arms itself while scheduled messages remain.
type RunCampaignBatch struct {
	Base

	CampaignID string `json:"campaign_id"`
}

func (t RunCampaignBatch) GetType() Type { return TypeRunCampaignBatch }

// CheckScheduledCampaigns is the periodic cross-campaign sweep: it starts
// campaigns whose scheduled time has arrived and drains due messages.
type CheckScheduledCampaigns struct {
	Base
}

func (t CheckScheduledCampaigns) GetType() Type { return TypeCheckScheduledCampaigns }

// Decode unmarshals a task payload by its wire type.
func Decode(taskType Type, payload []byte) (Task, error) {
	var task Task

	switch taskType {
	case TypeRunNode:
		task = &RunNode{}
	case TypeRunCampaignBatch:
		task = &RunCampaignBatch{}
	case TypeCheckScheduledCampaigns:
		task = &CheckScheduledCampaigns{}
	default:
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := json.Unmarshal(payload, task); err != nil {
		return nil, fmt.Errorf("failed to decode %s task: %w", taskType, err)
	}

	return task, nil
}
