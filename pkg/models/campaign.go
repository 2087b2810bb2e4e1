package models

import "time"

// CampaignStatus defines the lifecycle of a batch-messaging campaign.
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusScheduled  CampaignStatus = "scheduled"
	CampaignStatusInProgress CampaignStatus = "in_progress"
	CampaignStatusPaused     CampaignStatus = "paused"
	CampaignStatusCompleted  CampaignStatus = "completed"
	CampaignStatusCancelled  CampaignStatus = "cancelled"
)

// Terminal reports whether the campaign can no longer change state.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusCancelled
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition: draft -> scheduled -> in_progress -> completed, pause/resume
// toggling in_progress and paused, and cancel from any non-terminal state.
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	if s.Terminal() {
		return false
	}

	if next == CampaignStatusCancelled {
		return true
	}

	switch s {
	case CampaignStatusDraft:
		return next == CampaignStatusScheduled
	case CampaignStatusScheduled:
		return next == CampaignStatusInProgress
	case CampaignStatusInProgress:
		return next == CampaignStatusPaused || next == CampaignStatusCompleted
	case CampaignStatusPaused:
		return next == CampaignStatusInProgress
	default:
		return false
	}
}

// FilterOperator is one of the supported audience filter comparisons.
type FilterOperator string

const (
	FilterOperatorEquals      FilterOperator = "equals"
	FilterOperatorNotEquals   FilterOperator = "not_equals"
	FilterOperatorContains    FilterOperator = "contains"
	FilterOperatorGreaterThan FilterOperator = "greater_than"
	FilterOperatorLessThan    FilterOperator = "less_than"
	FilterOperatorIsEmpty     FilterOperator = "is_empty"
	FilterOperatorIsNotEmpty  FilterOperator = "is_not_empty"
)

// FilterCondition is a single comparison against a contact field.
type FilterCondition struct {
	Field    string         `json:"field"    validate:"required"`
	Operator FilterOperator `json:"operator" validate:"required"`
	Value    string         `json:"value,omitempty"`
}

// AudienceFilter selects the target contacts of a campaign. Conditions are
// combined with AND; Limit caps the result count when positive.
type AudienceFilter struct {
	Conditions []FilterCondition `json:"conditions,omitempty"`
	Limit      int               `json:"limit,omitempty"`
}

// CampaignStep is one configured message of a campaign: a channel, either a
// template reference or direct content, and a delay from campaign start.
type CampaignStep struct {
	Channel      string  `json:"channel"  validate:"required"`
	TemplateID   *string `json:"template_id,omitempty"`
	Content      string  `json:"content,omitempty"`
	MediaURL     string  `json:"media_url,omitempty"`
	DelayMinutes int     `json:"delay_minutes"`
}

// Campaign is a scheduled, multi-step outbound messaging run against a
// filtered contact audience.
type Campaign struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id,omitempty"`
	Name        string         `json:"name"     validate:"required,min=3"`
	Status      CampaignStatus `json:"status"`
	Audience    AudienceFilter `json:"audience"`
	Steps       []CampaignStep `json:"steps"    validate:"required,min=1,dive"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PrepareResult reports what prepareMessages did, per spec: how many rows were
// created, updated in place, or skipped, and how many contacts matched.
type PrepareResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// CampaignStats aggregates message counts by status for reporting.
type CampaignStats struct {
	Scheduled int `json:"scheduled"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Read      int `json:"read"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}
