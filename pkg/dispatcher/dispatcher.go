// Package dispatcher turns engine work items into durably-queued tasks with
// automatic retry, tenant capture across the asynchronous boundary, and a
// durable due-time index for delayed tasks.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/taskbus"
	"github.com/onsell/automation/pkg/tasks"
	"github.com/onsell/automation/pkg/tenant"
)

const (
	// MaxAttempts is how many times a task executes before it is reported
	// permanently failed.
	MaxAttempts = 3

	// RetryBackoff is the fixed delay between retry attempts.
	RetryBackoff = 60 * time.Second
)

// Dispatcher enqueues tasks. Immediate tasks go straight to the bus; delayed
// tasks are persisted as scheduled rows so a crashed worker never loses a
// pending delay.
type Dispatcher struct {
	bus       taskbus.Publisher
	scheduled persistence.ScheduledTaskRepository
	tenants   tenant.Provider
	logger    *slog.Logger
}

func NewDispatcher(
	bus taskbus.Publisher,
	scheduled persistence.ScheduledTaskRepository,
	tenants tenant.Provider,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		bus:       bus,
		scheduled: scheduled,
		tenants:   tenants,
		logger:    logger.With("module", "dispatcher"),
	}
}

// Enqueue queues a task for execution, now or after delay. The current tenant
// is snapshotted into the payload at enqueue time; the executor restores
// exactly that tenant before the task body runs. No active tenant means a
// cross-tenant task and nothing is restored.
func (d *Dispatcher) Enqueue(ctx context.Context, task tasks.Task, delay time.Duration) error {
	meta := task.Meta()

	if meta.ID == "" {
		*meta = tasks.NewBase(task.GetType())
	}

	if meta.TenantID == "" {
		meta.TenantID = d.tenants.Current(ctx)
	}

	if delay <= 0 {
		err := d.bus.Publish(ctx, meta.ID, task)
		if err != nil {
			return fmt.Errorf("failed to publish task %s: %w", meta.ID, err)
		}

		return nil
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", meta.ID, err)
	}

	row := &models.ScheduledTask{
		TaskType: string(task.GetType()),
		Key:      meta.ID,
		Payload:  payload,
		DueAt:    time.Now().UTC().Add(delay),
	}

	err = d.scheduled.Save(ctx, row)
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", meta.ID, err)
	}

	d.logger.DebugContext(ctx, "Scheduled delayed task",
		"task_id", meta.ID, "task_type", meta.Type, "due_at", row.DueAt)

	return nil
}
