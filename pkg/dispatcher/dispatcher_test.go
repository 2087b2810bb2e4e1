package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence/memory"
	"github.com/onsell/automation/pkg/taskbus"
	"github.com/onsell/automation/pkg/tasks"
	"github.com/onsell/automation/pkg/tenant"
)

// captureBus records published tasks and registered handlers for direct
// invocation in tests.
type captureBus struct {
	published []tasks.Task
	handlers  map[tasks.Type]taskbus.Handler
	failNext  error
}

func newCaptureBus() *captureBus {
	return &captureBus{handlers: make(map[tasks.Type]taskbus.Handler)}
}

func (b *captureBus) Publish(_ context.Context, _ string, task tasks.Task) error {
	if b.failNext != nil {
		err := b.failNext
		b.failNext = nil

		return err
	}

	b.published = append(b.published, task)

	return nil
}

func (b *captureBus) Handle(taskType tasks.Type, handler taskbus.Handler) error {
	b.handlers[taskType] = handler

	return nil
}

func (b *captureBus) Subscribe(_ context.Context) error { return nil }

func newTestDispatcher(t *testing.T) (*Dispatcher, *captureBus, *memory.ScheduledTaskRepository, tenant.Provider) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := newCaptureBus()
	scheduled := memory.NewScheduledTaskRepository()
	tenants := tenant.NewContextProvider()

	return NewDispatcher(bus, scheduled, tenants, logger), bus, scheduled, tenants
}

func TestDispatcher_EnqueueImmediate(t *testing.T) {
	dispatch, bus, scheduled, _ := newTestDispatcher(t)
	ctx := context.Background()

	task := &tasks.RunCampaignBatch{CampaignID: "camp-1"}

	err := dispatch.Enqueue(ctx, task, 0)
	require.NoError(t, err)

	require.Len(t, bus.published, 1)
	assert.NotEmpty(t, task.Meta().ID)
	assert.Equal(t, tasks.TypeRunCampaignBatch, task.Meta().Type)

	due, err := scheduled.Due(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDispatcher_EnqueueDelayedPersistsScheduledRow(t *testing.T) {
	dispatch, bus, scheduled, _ := newTestDispatcher(t)
	ctx := context.Background()

	task := &tasks.RunNode{
		Base:         tasks.NewBase(tasks.TypeRunNode),
		AutomationID: "auto-1",
		NodeID:       "node-1",
		ContactID:    "contact-1",
		LogID:        "log-1",
	}

	err := dispatch.Enqueue(ctx, task, 30*time.Minute)
	require.NoError(t, err)

	// Nothing reaches the bus until the delay elapses.
	assert.Empty(t, bus.published)

	due, err := scheduled.Due(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = scheduled.Due(ctx, time.Now().UTC().Add(31*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, string(tasks.TypeRunNode), due[0].TaskType)
	assert.Equal(t, task.ID, due[0].Key)

	decoded, err := tasks.Decode(tasks.Type(due[0].TaskType), due[0].Payload)
	require.NoError(t, err)

	runNode, ok := decoded.(*tasks.RunNode)
	require.True(t, ok)
	assert.Equal(t, "node-1", runNode.NodeID)
	assert.Equal(t, "log-1", runNode.LogID)
}

func TestDispatcher_EnqueueCapturesTenant(t *testing.T) {
	dispatch, bus, _, tenants := newTestDispatcher(t)

	ctx := tenants.Activate(context.Background(), "tenant-42")

	task := &tasks.RunCampaignBatch{CampaignID: "camp-1"}

	err := dispatch.Enqueue(ctx, task, 0)
	require.NoError(t, err)

	require.Len(t, bus.published, 1)
	assert.Equal(t, "tenant-42", bus.published[0].Meta().TenantID)
}

func TestDispatcher_EnqueueWithoutTenantStaysCrossTenant(t *testing.T) {
	dispatch, bus, _, _ := newTestDispatcher(t)

	task := &tasks.CheckScheduledCampaigns{}

	err := dispatch.Enqueue(context.Background(), task, 0)
	require.NoError(t, err)

	require.Len(t, bus.published, 1)
	assert.Empty(t, bus.published[0].Meta().TenantID)
}

func TestExecutor_RetriesTransientFailure(t *testing.T) {
	dispatch, bus, scheduled, tenants := newTestDispatcher(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	executor := NewExecutor(dispatch, tenants, logger)

	calls := 0

	err := executor.Register(bus, tasks.TypeRunCampaignBatch, func(_ context.Context, _ tasks.Task) error {
		calls++

		return errors.New("provider unavailable")
	})
	require.NoError(t, err)

	task := &tasks.RunCampaignBatch{
		Base:       tasks.NewBase(tasks.TypeRunCampaignBatch),
		CampaignID: "camp-1",
	}

	// First attempt fails transiently; the retry lands in the scheduled
	// store with the backoff, and the message itself is acked.
	err = bus.handlers[tasks.TypeRunCampaignBatch](context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, task.Attempt)

	due, err := scheduled.Due(context.Background(), time.Now().UTC().Add(RetryBackoff+time.Second), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestExecutor_ExhaustedAttemptsInvokeFailureHook(t *testing.T) {
	dispatch, bus, scheduled, tenants := newTestDispatcher(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	executor := NewExecutor(dispatch, tenants, logger)

	var hookCause error

	executor.OnPermanentFailure(tasks.TypeRunCampaignBatch, func(_ context.Context, _ tasks.Task, cause error) {
		hookCause = cause
	})

	err := executor.Register(bus, tasks.TypeRunCampaignBatch, func(_ context.Context, _ tasks.Task) error {
		return errors.New("still broken")
	})
	require.NoError(t, err)

	task := &tasks.RunCampaignBatch{
		Base:       tasks.NewBase(tasks.TypeRunCampaignBatch),
		CampaignID: "camp-1",
	}
	task.Attempt = MaxAttempts - 1

	err = bus.handlers[tasks.TypeRunCampaignBatch](context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, MaxAttempts, task.Attempt)
	require.Error(t, hookCause)
	assert.Contains(t, hookCause.Error(), "still broken")

	// No retry is scheduled once the task is dropped for good.
	due, err := scheduled.Due(context.Background(), time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestExecutor_PermanentErrorSkipsRetries(t *testing.T) {
	dispatch, bus, scheduled, tenants := newTestDispatcher(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	executor := NewExecutor(dispatch, tenants, logger)

	hookCalled := false

	executor.OnPermanentFailure(tasks.TypeRunNode, func(_ context.Context, _ tasks.Task, _ error) {
		hookCalled = true
	})

	err := executor.Register(bus, tasks.TypeRunNode, func(_ context.Context, _ tasks.Task) error {
		return NewPermanentError(errors.New("node not found"))
	})
	require.NoError(t, err)

	task := &tasks.RunNode{Base: tasks.NewBase(tasks.TypeRunNode)}

	err = bus.handlers[tasks.TypeRunNode](context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, 1, task.Attempt)
	assert.True(t, hookCalled)

	due, err := scheduled.Due(context.Background(), time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestExecutor_RestoresCapturedTenant(t *testing.T) {
	dispatch, bus, _, tenants := newTestDispatcher(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	executor := NewExecutor(dispatch, tenants, logger)

	var seenTenant string

	err := executor.Register(bus, tasks.TypeRunCampaignBatch, func(ctx context.Context, _ tasks.Task) error {
		seenTenant = tenants.Current(ctx)

		return nil
	})
	require.NoError(t, err)

	task := &tasks.RunCampaignBatch{Base: tasks.NewBase(tasks.TypeRunCampaignBatch)}
	task.TenantID = "tenant-7"

	err = bus.handlers[tasks.TypeRunCampaignBatch](context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, "tenant-7", seenTenant)
}

func TestIsPermanent(t *testing.T) {
	base := errors.New("boom")

	assert.False(t, IsPermanent(base))
	assert.True(t, IsPermanent(NewPermanentError(base)))

	// Wrapped permanent errors are still detected.
	wrapped := errors.Join(errors.New("context"), NewPermanentError(base))
	assert.True(t, IsPermanent(wrapped))

	assert.True(t, errors.Is(NewPermanentError(base), base))
}

func TestPoller_TickPublishesDueTasksAndDeletesRows(t *testing.T) {
	dispatch, bus, scheduled, _ := newTestDispatcher(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	poller := NewPoller(scheduled, bus, time.Second, logger)
	ctx := context.Background()

	task := &tasks.RunNode{
		Base:         tasks.NewBase(tasks.TypeRunNode),
		AutomationID: "auto-1",
		NodeID:       "node-1",
		ContactID:    "contact-1",
		LogID:        "log-1",
	}

	// Due in the past relative to the poll, far-future row stays put.
	err := dispatch.Enqueue(ctx, task, time.Nanosecond)
	require.NoError(t, err)

	future := &tasks.RunCampaignBatch{
		Base:       tasks.NewBase(tasks.TypeRunCampaignBatch),
		CampaignID: "camp-1",
	}

	err = dispatch.Enqueue(ctx, future, time.Hour)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	err = poller.Tick(ctx)
	require.NoError(t, err)

	require.Len(t, bus.published, 1)

	runNode, ok := bus.published[0].(*tasks.RunNode)
	require.True(t, ok)
	assert.Equal(t, "node-1", runNode.NodeID)

	// The published row is gone, the future row remains.
	remaining, err := scheduled.Due(ctx, time.Now().UTC().Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, string(tasks.TypeRunCampaignBatch), remaining[0].TaskType)
}

func TestPoller_TickDropsUndecodableRow(t *testing.T) {
	_, bus, scheduled, _ := newTestDispatcher(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	poller := NewPoller(scheduled, bus, time.Second, logger)
	ctx := context.Background()

	err := scheduled.Save(ctx, &models.ScheduledTask{
		TaskType: "bogus.type",
		Key:      "k1",
		Payload:  []byte("{}"),
		DueAt:    time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)

	err = poller.Tick(ctx)
	require.NoError(t, err)

	assert.Empty(t, bus.published)

	remaining, err := scheduled.Due(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
