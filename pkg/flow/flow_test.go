package flow

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onsell/automation/pkg/dispatcher"
	"github.com/onsell/automation/pkg/execlog"
	"github.com/onsell/automation/pkg/graph"
	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence/memory"
	"github.com/onsell/automation/pkg/tasks"
	"github.com/onsell/automation/pkg/tenant"
)

type stubBus struct {
	published []tasks.Task
}

func (b *stubBus) Publish(_ context.Context, _ string, task tasks.Task) error {
	b.published = append(b.published, task)

	return nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *memory.Persistence, *stubBus) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := memory.NewPersistence()
	bus := &stubBus{}
	tenants := tenant.NewContextProvider()
	dispatch := dispatcher.NewDispatcher(bus, store.ScheduledTaskRepository(), tenants, logger)
	graphs := graph.NewStore(store.AutomationRepository(), logger)
	logs := execlog.NewService(store.ExecutionLogRepository(), logger)

	return NewOrchestrator(graphs, logs, dispatch, logger), store, bus
}

func saveAutomation(t *testing.T, store *memory.Persistence, automation *models.Automation) {
	t.Helper()

	require.NoError(t, store.AutomationRepository().Save(context.Background(), automation))
}

func TestStartManually_SeedsEntryNode(t *testing.T) {
	orchestrator, store, bus := newTestOrchestrator(t)
	ctx := context.Background()

	saveAutomation(t, store, &models.Automation{
		ID:          "auto-1",
		Name:        "Welcome flow",
		TriggerType: models.TriggerTypeManual,
		Active:      true,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger},
			{ID: "act", Type: models.NodeTypeAction, Config: map[string]any{"operation": "op"}},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceID: "start", TargetID: "act"},
		},
	})

	err := orchestrator.StartManually(ctx, "auto-1", "c1", nil, nil)
	require.NoError(t, err)

	// One task for the single entry node, carrying its pending log entry.
	require.Len(t, bus.published, 1)

	runNode, ok := bus.published[0].(*tasks.RunNode)
	require.True(t, ok)
	assert.Equal(t, "auto-1", runNode.AutomationID)
	assert.Equal(t, "start", runNode.NodeID)
	assert.Equal(t, "c1", runNode.ContactID)
	require.NotEmpty(t, runNode.LogID)

	entries, err := store.ExecutionLogRepository().ListByRun(ctx, "auto-1", "c1", 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Run-level summary entry first, completed through the full monotonic
	// ladder, with the entry node list.
	assert.Nil(t, entries[0].NodeID)
	assert.Equal(t, models.ExecutionStatusCompleted, entries[0].Status)
	assert.Equal(t, []string{"start"}, entries[0].Result["entry_nodes"])
	assert.NotNil(t, entries[0].StartedAt)
	assert.NotNil(t, entries[0].CompletedAt)

	require.NotNil(t, entries[1].NodeID)
	assert.Equal(t, "start", *entries[1].NodeID)
	assert.Equal(t, models.ExecutionStatusPending, entries[1].Status)
	assert.Equal(t, entries[1].ID, runNode.LogID)
}

func TestStartManually_MultipleEntryNodes(t *testing.T) {
	orchestrator, store, bus := newTestOrchestrator(t)

	saveAutomation(t, store, &models.Automation{
		ID:          "auto-1",
		Name:        "Two triggers",
		TriggerType: models.TriggerTypeManual,
		Active:      true,
		Nodes: []*models.Node{
			{ID: "t1", Type: models.NodeTypeTrigger},
			{ID: "t2", Type: models.NodeTypeTrigger},
		},
	})

	err := orchestrator.StartManually(context.Background(), "auto-1", "c1", nil, nil)
	require.NoError(t, err)

	require.Len(t, bus.published, 2)
}

func TestStartManually_NoEntryNodes(t *testing.T) {
	orchestrator, store, bus := newTestOrchestrator(t)

	saveAutomation(t, store, &models.Automation{
		ID:          "auto-1",
		Name:        "Empty graph",
		TriggerType: models.TriggerTypeManual,
		Active:      true,
	})

	err := orchestrator.StartManually(context.Background(), "auto-1", "c1", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entry node")
	assert.Empty(t, bus.published)
}

func TestStartManually_UnknownAutomation(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(t)

	err := orchestrator.StartManually(context.Background(), "missing", "c1", nil, nil)
	require.Error(t, err)
}

func TestStartFromEvent_StartsEveryMatchingActiveAutomation(t *testing.T) {
	orchestrator, store, bus := newTestOrchestrator(t)
	ctx := context.Background()

	trigger := []*models.Node{{ID: "start", Type: models.NodeTypeTrigger}}

	saveAutomation(t, store, &models.Automation{
		ID: "auto-1", Name: "Lead flow A", TriggerType: models.TriggerTypeNewLead,
		Active: true, Nodes: trigger,
	})
	saveAutomation(t, store, &models.Automation{
		ID: "auto-2", Name: "Lead flow B", TriggerType: models.TriggerTypeNewLead,
		Active: true, Nodes: trigger,
	})
	// Inactive and mismatched automations never start.
	saveAutomation(t, store, &models.Automation{
		ID: "auto-3", Name: "Disabled flow", TriggerType: models.TriggerTypeNewLead,
		Active: false, Nodes: trigger,
	})
	saveAutomation(t, store, &models.Automation{
		ID: "auto-4", Name: "Form flow", TriggerType: models.TriggerTypeFormSubmitted,
		Active: true, Nodes: trigger,
	})

	payload := map[string]any{"contact_id": "c1", "source": "landing_page"}

	err := orchestrator.StartFromEvent(ctx, models.TriggerTypeNewLead, payload)
	require.NoError(t, err)

	require.Len(t, bus.published, 2)

	started := map[string]bool{}

	for _, task := range bus.published {
		runNode, ok := task.(*tasks.RunNode)
		require.True(t, ok)
		started[runNode.AutomationID] = true

		// The event payload rides along as trigger context.
		triggerData, ok := runNode.Context["trigger"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "landing_page", triggerData["source"])
	}

	assert.True(t, started["auto-1"])
	assert.True(t, started["auto-2"])
}

func TestStartFromEvent_RequiresContactID(t *testing.T) {
	orchestrator, store, bus := newTestOrchestrator(t)

	saveAutomation(t, store, &models.Automation{
		ID: "auto-1", Name: "Lead flow", TriggerType: models.TriggerTypeNewLead,
		Active: true, Nodes: []*models.Node{{ID: "start", Type: models.NodeTypeTrigger}},
	})

	err := orchestrator.StartFromEvent(context.Background(), models.TriggerTypeNewLead, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no contact_id")
	assert.Empty(t, bus.published)
}

func TestStartFromEvent_OpportunityIDRidesAlong(t *testing.T) {
	orchestrator, store, bus := newTestOrchestrator(t)

	saveAutomation(t, store, &models.Automation{
		ID: "auto-1", Name: "Opportunity flow", TriggerType: models.TriggerTypeOpportunityCreated,
		Active: true, Nodes: []*models.Node{{ID: "start", Type: models.NodeTypeTrigger}},
	})

	payload := map[string]any{"contact_id": "c1", "opportunity_id": "opp-9"}

	err := orchestrator.StartFromEvent(context.Background(), models.TriggerTypeOpportunityCreated, payload)
	require.NoError(t, err)

	require.Len(t, bus.published, 1)

	runNode, ok := bus.published[0].(*tasks.RunNode)
	require.True(t, ok)
	require.NotNil(t, runNode.OpportunityID)
	assert.Equal(t, "opp-9", *runNode.OpportunityID)
}
