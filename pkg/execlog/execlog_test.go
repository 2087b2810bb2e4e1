package execlog

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

func newService(t *testing.T) *Service {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewService(memory.NewExecutionLogRepository(), logger)
}

func TestService_BeginCreatesPendingEntry(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	nodeID := "node-1"

	logID, err := service.Begin(ctx, "auto-1", "contact-1", nil, &nodeID, map[string]any{"k": "v"})
	require.NoError(t, err)
	require.NotEmpty(t, logID)

	entry, err := service.Get(ctx, logID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusPending, entry.Status)
	assert.Equal(t, "auto-1", entry.AutomationID)
	assert.Equal(t, "contact-1", entry.ContactID)
	require.NotNil(t, entry.NodeID)
	assert.Equal(t, "node-1", *entry.NodeID)
	assert.Equal(t, "v", entry.Context["k"])
	assert.Nil(t, entry.StartedAt)
}

func TestService_HappyPathTransitions(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	nodeID := "node-1"

	logID, err := service.Begin(ctx, "auto-1", "contact-1", nil, &nodeID, nil)
	require.NoError(t, err)

	entry, err := service.MarkRunning(ctx, logID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, entry.Status)
	assert.NotNil(t, entry.StartedAt)

	entry, err = service.MarkCompleted(ctx, logID, map[string]any{"sent": true})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, entry.Status)
	assert.NotNil(t, entry.CompletedAt)
	assert.Equal(t, true, entry.Result["sent"])
}

func TestService_FailedEntryNeverFlipsBack(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	nodeID := "node-1"

	logID, err := service.Begin(ctx, "auto-1", "contact-1", nil, &nodeID, nil)
	require.NoError(t, err)

	_, err = service.MarkRunning(ctx, logID)
	require.NoError(t, err)

	_, err = service.MarkFailed(ctx, logID, "operation timed out")
	require.NoError(t, err)

	_, err = service.MarkRunning(ctx, logID)
	require.Error(t, err)

	var invariantErr *InvariantError

	require.True(t, errors.As(err, &invariantErr))
	assert.Equal(t, models.ExecutionStatusFailed, invariantErr.From)
	assert.Equal(t, models.ExecutionStatusRunning, invariantErr.To)
	assert.True(t, invariantErr.Permanent())

	entry, err := service.Get(ctx, logID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, entry.Status)
	assert.Equal(t, "operation timed out", entry.Message)
}

func TestService_CompletedRejectsFurtherTransitions(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	nodeID := "node-1"

	logID, err := service.Begin(ctx, "auto-1", "contact-1", nil, &nodeID, nil)
	require.NoError(t, err)

	_, err = service.MarkRunning(ctx, logID)
	require.NoError(t, err)

	_, err = service.MarkCompleted(ctx, logID, nil)
	require.NoError(t, err)

	var invariantErr *InvariantError

	_, err = service.MarkFailed(ctx, logID, "late failure")
	assert.True(t, errors.As(err, &invariantErr))

	_, err = service.MarkSkipped(ctx, logID, "late skip")
	assert.True(t, errors.As(err, &invariantErr))
}

func TestService_SkipFromPending(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	nodeID := "node-1"

	logID, err := service.Begin(ctx, "auto-1", "contact-1", nil, &nodeID, nil)
	require.NoError(t, err)

	entry, err := service.MarkSkipped(ctx, logID, "no matching branch")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSkipped, entry.Status)
	assert.Equal(t, "no matching branch", entry.Message)
	assert.NotNil(t, entry.CompletedAt)
}

func TestService_UpdateContextKeepsStatus(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	nodeID := "node-1"

	logID, err := service.Begin(ctx, "auto-1", "contact-1", nil, &nodeID, map[string]any{"a": 1})
	require.NoError(t, err)

	err = service.UpdateContext(ctx, logID, map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)

	entry, err := service.Get(ctx, logID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, entry.Status)
	assert.Equal(t, 2, entry.Context["b"])
}

func TestService_HistoryPagesThroughEveryEntry(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	// More entries than one history page.
	total := historyPageSize + 7

	for i := range total {
		nodeID := "node"

		_, err := service.Begin(ctx, "auto-1", "contact-1", nil, &nodeID, map[string]any{"seq": i})
		require.NoError(t, err)
	}

	// An entry of another run must not leak in.
	otherNode := "node"
	_, err := service.Begin(ctx, "auto-2", "contact-1", nil, &otherNode, nil)
	require.NoError(t, err)

	var seen int

	for entry, err := range service.History(ctx, "auto-1", "contact-1") {
		require.NoError(t, err)
		assert.Equal(t, "auto-1", entry.AutomationID)

		seen++
	}

	assert.Equal(t, total, seen)
}

func TestService_HistoryStopsWhenYieldReturnsFalse(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	for range 5 {
		nodeID := "node"

		_, err := service.Begin(ctx, "auto-1", "contact-1", nil, &nodeID, nil)
		require.NoError(t, err)
	}

	var seen int

	for _, err := range service.History(ctx, "auto-1", "contact-1") {
		require.NoError(t, err)

		seen++
		if seen == 2 {
			break
		}
	}

	assert.Equal(t, 2, seen)
}
