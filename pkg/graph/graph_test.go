package graph

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence/memory"
)

func newTestStore(t *testing.T) (*Store, *memory.AutomationRepository) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := memory.NewAutomationRepository()

	return NewStore(repo, logger), repo
}

func validNodes() []*models.Node {
	return []*models.Node{
		{ID: "start", Type: models.NodeTypeTrigger},
		{ID: "check", Type: models.NodeTypeCondition, Config: map[string]any{
			"field":    "status",
			"operator": "equals",
			"value":    "lead",
		}},
		{ID: "notify", Type: models.NodeTypeAction, Config: map[string]any{
			"operation": "send_message",
		}},
	}
}

func validEdges() []*models.Edge {
	return []*models.Edge{
		{ID: "e1", SourceID: "start", TargetID: "check"},
		{ID: "e2", SourceID: "check", TargetID: "notify", SourceHandle: "true"},
	}
}

func TestValidateGraph_Valid(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.ValidateGraph(validNodes(), validEdges())
	assert.NoError(t, err)
}

func TestValidateGraph_UnknownNodeType(t *testing.T) {
	store, _ := newTestStore(t)

	nodes := []*models.Node{{ID: "n1", Type: "webhook"}}

	err := store.ValidateGraph(nodes, nil)
	require.Error(t, err)

	var verr *ValidationError

	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 1)
	assert.Contains(t, verr.Problems[0], "unknown type")
}

func TestValidateGraph_DuplicateNodeID(t *testing.T) {
	store, _ := newTestStore(t)

	nodes := []*models.Node{
		{ID: "n1", Type: models.NodeTypeTrigger},
		{ID: "n1", Type: models.NodeTypeTrigger},
	}

	var verr *ValidationError

	err := store.ValidateGraph(nodes, nil)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Problems[0], "duplicate id")
}

func TestValidateGraph_EdgeToMissingNode(t *testing.T) {
	store, _ := newTestStore(t)

	nodes := []*models.Node{{ID: "n1", Type: models.NodeTypeTrigger}}
	edges := []*models.Edge{{ID: "e1", SourceID: "n1", TargetID: "ghost"}}

	var verr *ValidationError

	err := store.ValidateGraph(nodes, edges)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Problems[0], `target node "ghost" not in graph`)
}

func TestValidateGraph_InvalidNodeConfig(t *testing.T) {
	store, _ := newTestStore(t)

	tests := []struct {
		name string
		node *models.Node
	}{
		{"action without operation", &models.Node{
			ID: "n1", Type: models.NodeTypeAction, Config: map[string]any{},
		}},
		{"condition with unknown operator", &models.Node{
			ID: "n1", Type: models.NodeTypeCondition, Config: map[string]any{
				"field":    "status",
				"operator": "matches",
			},
		}},
		{"delay without duration", &models.Node{
			ID: "n1", Type: models.NodeTypeDelay, Config: map[string]any{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ValidateGraph([]*models.Node{tt.node}, nil)
			require.Error(t, err)

			var verr *ValidationError

			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Problems[0], `node "n1"`)
		})
	}
}

func TestValidateGraph_TriggerNeedsNoConfig(t *testing.T) {
	store, _ := newTestStore(t)

	nodes := []*models.Node{
		{ID: "start", Type: models.NodeTypeTrigger},
		{ID: "box", Type: models.NodeTypeGroup},
	}

	assert.NoError(t, store.ValidateGraph(nodes, nil))
}

func TestReplaceGraph_RejectedGraphLeavesStoreUntouched(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	automation := &models.Automation{
		ID:          "auto-1",
		Name:        "Welcome flow",
		TriggerType: models.TriggerTypeNewLead,
		Nodes:       validNodes(),
		Edges:       validEdges(),
	}

	require.NoError(t, repo.Save(ctx, automation))

	badNodes := []*models.Node{{ID: "n1", Type: "webhook"}}

	var verr *ValidationError

	err := store.ReplaceGraph(ctx, "auto-1", badNodes, nil)
	require.True(t, errors.As(err, &verr))

	// The old graph survives intact.
	loaded, err := store.LoadGraph(ctx, "auto-1")
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 3)
	assert.Len(t, loaded.Edges, 2)
}

func TestReplaceGraph_SwapsGraph(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	automation := &models.Automation{
		ID:          "auto-1",
		Name:        "Welcome flow",
		TriggerType: models.TriggerTypeNewLead,
		Nodes:       validNodes(),
		Edges:       validEdges(),
	}

	require.NoError(t, repo.Save(ctx, automation))

	newNodes := []*models.Node{{ID: "solo", Type: models.NodeTypeTrigger}}

	err := store.ReplaceGraph(ctx, "auto-1", newNodes, nil)
	require.NoError(t, err)

	loaded, err := store.LoadGraph(ctx, "auto-1")
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, "solo", loaded.Nodes[0].ID)
	assert.Empty(t, loaded.Edges)
}

func TestOutEdges_PreservesInsertionOrder(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	automation := &models.Automation{
		ID:          "auto-1",
		Name:        "Branchy flow",
		TriggerType: models.TriggerTypeManual,
		Nodes: []*models.Node{
			{ID: "check", Type: models.NodeTypeCondition, Config: map[string]any{
				"field": "status", "operator": "equals", "value": "lead",
			}},
			{ID: "a", Type: models.NodeTypeAction, Config: map[string]any{"operation": "op_a"}},
			{ID: "b", Type: models.NodeTypeAction, Config: map[string]any{"operation": "op_b"}},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceID: "check", TargetID: "a", SourceHandle: "true", Position: 0},
			{ID: "e2", SourceID: "check", TargetID: "b", SourceHandle: "true", Position: 1},
		},
	}

	require.NoError(t, repo.Save(ctx, automation))

	edges, err := store.OutEdges(ctx, "auto-1", "check")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "a", edges[0].TargetID)
	assert.Equal(t, "b", edges[1].TargetID)
}
