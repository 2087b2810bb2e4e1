package web

import (
	"time"

	"github.com/onsell/automation/pkg/models"
)

// SaveAutomationRequest creates or fully replaces an automation, graph
// included. The graph is validated before anything persists.
type SaveAutomationRequest struct {
	Name          string             `json:"name"           validate:"required,min=3"`
	Description   string             `json:"description"`
	TriggerType   models.TriggerType `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any     `json:"trigger_config"`
	Active        bool               `json:"active"`
	Nodes         []*models.Node     `json:"nodes"`
	Edges         []*models.Edge     `json:"edges"`
}

// ExecuteAutomationRequest starts a manual run for one contact.
type ExecuteAutomationRequest struct {
	ContactID     string         `json:"contact_id" validate:"required"`
	OpportunityID *string        `json:"opportunity_id,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
}

// SaveCampaignRequest creates or updates a draft campaign.
type SaveCampaignRequest struct {
	Name        string                `json:"name"     validate:"required,min=3"`
	Audience    models.AudienceFilter `json:"audience"`
	Steps       []models.CampaignStep `json:"steps"    validate:"required,min=1,dive"`
	ScheduledAt *time.Time            `json:"scheduled_at,omitempty"`
}
