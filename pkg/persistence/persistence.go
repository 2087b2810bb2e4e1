// Package persistence provides the data storage abstraction for automations,
// execution logs, campaigns and scheduled tasks.
package persistence

import (
	"context"
	"time"

	"github.com/onsell/automation/pkg/models"
)

// Persistence aggregates the engine's repositories behind one durable store.
type Persistence interface {
	AutomationRepository() AutomationRepository
	ExecutionLogRepository() ExecutionLogRepository
	CampaignRepository() CampaignRepository
	CampaignMessageRepository() CampaignMessageRepository
	ScheduledTaskRepository() ScheduledTaskRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// AutomationRepository stores automations and their graph snapshots.
type AutomationRepository interface {
	All(ctx context.Context) ([]*models.Automation, error)
	GetByID(ctx context.Context, id string) (*models.Automation, error)
	Save(ctx context.Context, automation *models.Automation) error

	// Delete soft-deletes; the graph snapshot stays for the audit trail.
	Delete(ctx context.Context, id string) error

	// ListActiveByTrigger returns active automations whose trigger type
	// matches, for event-triggered starts.
	ListActiveByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Automation, error)

	// ReplaceGraph atomically swaps all nodes and edges of an automation in
	// one transaction; a partially-applied edit is never observable.
	ReplaceGraph(ctx context.Context, automationID string, nodes []*models.Node, edges []*models.Edge) error

	// OutEdges returns the outgoing edges of a node ordered by insertion
	// order (position), the tie-break for condition handle matching.
	OutEdges(ctx context.Context, automationID, nodeID string) ([]*models.Edge, error)
}

// ExecutionLogRepository stores the append-only execution audit trail.
type ExecutionLogRepository interface {
	Create(ctx context.Context, entry *models.ExecutionLog) error
	GetByID(ctx context.Context, id string) (*models.ExecutionLog, error)
	Update(ctx context.Context, entry *models.ExecutionLog) error

	// ListByRun returns entries for one (automation, contact) pair ordered
	// by creation time, paginated for lazy history iteration.
	ListByRun(ctx context.Context, automationID, contactID string, offset, limit int) ([]*models.ExecutionLog, error)
}

// CampaignRepository stores campaigns.
type CampaignRepository interface {
	All(ctx context.Context) ([]*models.Campaign, error)
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	Save(ctx context.Context, campaign *models.Campaign) error

	// ListDueScheduled returns campaigns still 'scheduled' whose scheduled
	// time has passed, for the periodic sweep.
	ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Campaign, error)
}

// CampaignMessageRepository stores per-(campaign, contact, channel) messages.
type CampaignMessageRepository interface {
	GetByID(ctx context.Context, id string) (*models.CampaignMessage, error)
	Save(ctx context.Context, msg *models.CampaignMessage) error

	// FindScheduled returns the existing 'scheduled' row for the unique
	// (campaign, contact, channel) key, so prepare updates instead of
	// duplicating.
	FindScheduled(ctx context.Context, campaignID, contactID, channel string) (*models.CampaignMessage, error)

	// ListDue returns up to limit 'scheduled' messages whose scheduled time
	// has passed. An empty campaignID selects across all campaigns.
	ListDue(ctx context.Context, campaignID string, now time.Time, limit int) ([]*models.CampaignMessage, error)

	// CountScheduled is the authoritative completion check for a campaign.
	CountScheduled(ctx context.Context, campaignID string) (int, error)

	// FailAllScheduled flips every 'scheduled' message of a campaign to
	// 'failed' with the given reason, returning how many rows changed.
	FailAllScheduled(ctx context.Context, campaignID, reason string) (int, error)

	ListByCampaign(ctx context.Context, campaignID string, offset, limit int) ([]*models.CampaignMessage, error)
	Stats(ctx context.Context, campaignID string) (*models.CampaignStats, error)
}

// ScheduledTaskRepository is the durable due-time index for delayed tasks.
type ScheduledTaskRepository interface {
	Save(ctx context.Context, task *models.ScheduledTask) error
	Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error)
	Delete(ctx context.Context, id string) error
}
