// Package memory provides the in-memory persistence implementation used by
// tests and local development. All repositories copy values on the way in and
// out, so callers never share mutable state with the store.
package memory

import (
	"context"
	"maps"
	"slices"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

// Persistence implements persistence.Persistence backed by process memory.
type Persistence struct {
	automations    *AutomationRepository
	executionLogs  *ExecutionLogRepository
	campaigns      *CampaignRepository
	messages       *CampaignMessageRepository
	scheduledTasks *ScheduledTaskRepository
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		automations:    NewAutomationRepository(),
		executionLogs:  NewExecutionLogRepository(),
		campaigns:      NewCampaignRepository(),
		messages:       NewCampaignMessageRepository(),
		scheduledTasks: NewScheduledTaskRepository(),
	}
}

func (p *Persistence) AutomationRepository() persistence.AutomationRepository {
	return p.automations
}

func (p *Persistence) ExecutionLogRepository() persistence.ExecutionLogRepository {
	return p.executionLogs
}

func (p *Persistence) CampaignRepository() persistence.CampaignRepository {
	return p.campaigns
}

func (p *Persistence) CampaignMessageRepository() persistence.CampaignMessageRepository {
	return p.messages
}

func (p *Persistence) ScheduledTaskRepository() persistence.ScheduledTaskRepository {
	return p.scheduledTasks
}

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }

func (p *Persistence) Close(_ context.Context) error { return nil }

func cloneNode(node *models.Node) *models.Node {
	copied := *node
	copied.Config = maps.Clone(node.Config)

	return &copied
}

func cloneEdge(edge *models.Edge) *models.Edge {
	copied := *edge
	copied.Config = maps.Clone(edge.Config)

	return &copied
}

func cloneAutomation(automation *models.Automation) *models.Automation {
	copied := *automation
	copied.TriggerConfig = maps.Clone(automation.TriggerConfig)
	copied.Nodes = make([]*models.Node, 0, len(automation.Nodes))
	copied.Edges = make([]*models.Edge, 0, len(automation.Edges))

	for _, node := range automation.Nodes {
		copied.Nodes = append(copied.Nodes, cloneNode(node))
	}

	for _, edge := range automation.Edges {
		copied.Edges = append(copied.Edges, cloneEdge(edge))
	}

	return &copied
}

func cloneExecutionLog(entry *models.ExecutionLog) *models.ExecutionLog {
	copied := *entry
	copied.Context = maps.Clone(entry.Context)
	copied.Result = maps.Clone(entry.Result)

	return &copied
}

func cloneCampaign(campaign *models.Campaign) *models.Campaign {
	copied := *campaign
	copied.Steps = slices.Clone(campaign.Steps)
	copied.Audience.Conditions = slices.Clone(campaign.Audience.Conditions)

	return &copied
}

func cloneCampaignMessage(msg *models.CampaignMessage) *models.CampaignMessage {
	copied := *msg

	return &copied
}

func cloneScheduledTask(task *models.ScheduledTask) *models.ScheduledTask {
	copied := *task
	copied.Payload = slices.Clone(task.Payload)

	return &copied
}
