package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

// AutomationRepository stores automations and their graphs in memory.
type AutomationRepository struct {
	mu          sync.RWMutex
	automations map[string]*models.Automation
}

func NewAutomationRepository() *AutomationRepository {
	return &AutomationRepository{automations: make(map[string]*models.Automation)}
}

func (r *AutomationRepository) All(_ context.Context) ([]*models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Automation, 0, len(r.automations))

	for _, automation := range r.automations {
		if automation.DeletedAt != nil {
			continue
		}

		result = append(result, cloneAutomation(automation))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *AutomationRepository) GetByID(_ context.Context, id string) (*models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	automation, ok := r.automations[id]
	if !ok || automation.DeletedAt != nil {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	return cloneAutomation(automation), nil
}

func (r *AutomationRepository) Save(_ context.Context, automation *models.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if automation.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewAutomationError("Save", "", err)
		}

		automation.ID = id.String()
	}

	if automation.CreatedAt.IsZero() {
		automation.CreatedAt = now
	}

	automation.UpdatedAt = now

	for _, node := range automation.Nodes {
		node.AutomationID = automation.ID
	}

	for i, edge := range automation.Edges {
		edge.AutomationID = automation.ID
		edge.Position = i
	}

	r.automations[automation.ID] = cloneAutomation(automation)

	return nil
}

func (r *AutomationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	automation, ok := r.automations[id]
	if !ok || automation.DeletedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	automation.DeletedAt = &now

	return nil
}

func (r *AutomationRepository) ListActiveByTrigger(_ context.Context, triggerType models.TriggerType) ([]*models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Automation

	for _, automation := range r.automations {
		if automation.DeletedAt != nil || !automation.Active {
			continue
		}

		if automation.TriggerType != triggerType {
			continue
		}

		result = append(result, cloneAutomation(automation))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// ReplaceGraph swaps all nodes and edges under the repository lock, so a
// concurrent reader sees either the old graph or the new one, never a mix.
func (r *AutomationRepository) ReplaceGraph(_ context.Context, automationID string, nodes []*models.Node, edges []*models.Edge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	automation, ok := r.automations[automationID]
	if !ok || automation.DeletedAt != nil {
		return persistence.NewAutomationError("ReplaceGraph", automationID, persistence.ErrAutomationNotFound)
	}

	automation.Nodes = make([]*models.Node, 0, len(nodes))
	automation.Edges = make([]*models.Edge, 0, len(edges))

	for _, node := range nodes {
		copied := cloneNode(node)
		copied.AutomationID = automationID
		automation.Nodes = append(automation.Nodes, copied)
	}

	for i, edge := range edges {
		copied := cloneEdge(edge)
		copied.AutomationID = automationID
		copied.Position = i
		automation.Edges = append(automation.Edges, copied)
	}

	automation.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *AutomationRepository) OutEdges(_ context.Context, automationID, nodeID string) ([]*models.Edge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	automation, ok := r.automations[automationID]
	if !ok || automation.DeletedAt != nil {
		return nil, persistence.NewAutomationError("OutEdges", automationID, persistence.ErrAutomationNotFound)
	}

	var result []*models.Edge

	for _, edge := range automation.Edges {
		if edge.SourceID == nodeID {
			result = append(result, cloneEdge(edge))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})

	return result, nil
}
