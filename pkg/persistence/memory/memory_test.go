package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

func TestAutomationRepository_SaveAssignsIDsAndOwnership(t *testing.T) {
	repo := NewAutomationRepository()
	ctx := context.Background()

	automation := &models.Automation{
		Name:        "Welcome flow",
		TriggerType: models.TriggerTypeManual,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger},
			{ID: "act", Type: models.NodeTypeAction},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceID: "start", TargetID: "act"},
		},
	}

	require.NoError(t, repo.Save(ctx, automation))
	require.NotEmpty(t, automation.ID)
	assert.False(t, automation.CreatedAt.IsZero())

	stored, err := repo.GetByID(ctx, automation.ID)
	require.NoError(t, err)
	assert.Equal(t, automation.ID, stored.Nodes[0].AutomationID)
	assert.Equal(t, automation.ID, stored.Edges[0].AutomationID)
	assert.Equal(t, 0, stored.Edges[0].Position)
}

func TestAutomationRepository_ReadsReturnIsolatedCopies(t *testing.T) {
	repo := NewAutomationRepository()
	ctx := context.Background()

	automation := &models.Automation{
		ID:          "auto-1",
		Name:        "Welcome flow",
		TriggerType: models.TriggerTypeManual,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger, Config: map[string]any{"k": "v"}},
		},
	}
	require.NoError(t, repo.Save(ctx, automation))

	first, err := repo.GetByID(ctx, "auto-1")
	require.NoError(t, err)

	// Mutating a returned graph never touches the stored one.
	first.Name = "Mutated"
	first.Nodes[0].Config["k"] = "changed"

	second, err := repo.GetByID(ctx, "auto-1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome flow", second.Name)
	assert.Equal(t, "v", second.Nodes[0].Config["k"])
}

func TestAutomationRepository_SoftDelete(t *testing.T) {
	repo := NewAutomationRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.Automation{
		ID: "auto-1", Name: "Doomed flow", TriggerType: models.TriggerTypeManual,
	}))
	require.NoError(t, repo.Delete(ctx, "auto-1"))

	_, err := repo.GetByID(ctx, "auto-1")
	require.Error(t, err)
	assert.True(t, persistence.IsAutomationNotFound(err))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Deleting again is a no-op.
	require.NoError(t, repo.Delete(ctx, "auto-1"))
}

func TestCampaignRepository_CloneIsolation(t *testing.T) {
	repo := NewCampaignRepository()
	ctx := context.Background()

	campaign := &models.Campaign{
		Name:   "Spring promo",
		Status: models.CampaignStatusDraft,
		Steps:  []models.CampaignStep{{Channel: "whatsapp", Content: "Hi"}},
	}
	require.NoError(t, repo.Save(ctx, campaign))
	require.NotEmpty(t, campaign.ID)

	stored, err := repo.GetByID(ctx, campaign.ID)
	require.NoError(t, err)

	stored.Steps[0].Content = "Mutated"

	again, err := repo.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi", again.Steps[0].Content)
}

func TestScheduledTaskRepository_DueAndDelete(t *testing.T) {
	repo := NewScheduledTaskRepository()
	ctx := context.Background()

	now := time.Now().UTC()

	past := &models.ScheduledTask{
		TaskType: "task.run_node",
		Key:      "k1",
		Payload:  []byte(`{"id":"t1"}`),
		DueAt:    now.Add(-time.Minute),
	}
	future := &models.ScheduledTask{
		TaskType: "task.run_node",
		Key:      "k2",
		Payload:  []byte(`{"id":"t2"}`),
		DueAt:    now.Add(time.Hour),
	}
	require.NoError(t, repo.Save(ctx, past))
	require.NoError(t, repo.Save(ctx, future))

	due, err := repo.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "k1", due[0].Key)

	require.NoError(t, repo.Delete(ctx, due[0].ID))

	due, err = repo.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
