// Package models defines the core domain models for the CRM automation engine.
package models

import "time"

// TriggerType identifies which CRM event starts an automation.
type TriggerType string

const (
	TriggerTypeNewLead            TriggerType = "new_lead"
	TriggerTypeFormSubmitted      TriggerType = "form_submitted"
	TriggerTypeTagApplied         TriggerType = "tag_applied"
	TriggerTypeStatusChanged      TriggerType = "status_changed"
	TriggerTypeContactCreated     TriggerType = "contact_created"
	TriggerTypeOpportunityCreated TriggerType = "opportunity_created"
	TriggerTypeManual             TriggerType = "manual"
)

// ValidTriggerTypes lists every trigger type accepted on automation create/update.
var ValidTriggerTypes = []TriggerType{
	TriggerTypeNewLead,
	TriggerTypeFormSubmitted,
	TriggerTypeTagApplied,
	TriggerTypeStatusChanged,
	TriggerTypeContactCreated,
	TriggerTypeOpportunityCreated,
	TriggerTypeManual,
}

// IsValid reports whether t is a known trigger type.
func (t TriggerType) IsValid() bool {
	for _, valid := range ValidTriggerTypes {
		if t == valid {
			return true
		}
	}

	return false
}

// Automation represents a named workflow: its trigger configuration plus the
// full graph snapshot (nodes and edges) for fast reload.
type Automation struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id,omitempty"`
	Name          string         `json:"name"           validate:"required,min=3"`
	Description   string         `json:"description"`
	TriggerType   TriggerType    `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Active        bool           `json:"active"`
	Nodes         []*Node        `json:"nodes"`
	Edges         []*Edge        `json:"edges"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (a *Automation) NodeByID(nodeID string) *Node {
	for _, node := range a.Nodes {
		if node.ID == nodeID {
			return node
		}
	}

	return nil
}

// EntryNodes returns the designated starting points of the graph: nodes typed
// trigger, or, when none exists, nodes with no incoming edges.
func (a *Automation) EntryNodes() []*Node {
	var triggers []*Node

	for _, node := range a.Nodes {
		if node.Type == NodeTypeTrigger {
			triggers = append(triggers, node)
		}
	}

	if len(triggers) > 0 {
		return triggers
	}

	incoming := make(map[string]bool, len(a.Edges))
	for _, edge := range a.Edges {
		incoming[edge.TargetID] = true
	}

	var roots []*Node

	for _, node := range a.Nodes {
		if !incoming[node.ID] {
			roots = append(roots, node)
		}
	}

	return roots
}
