package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/taskbus"
	"github.com/onsell/automation/pkg/tasks"
)

const pollBatchSize = 100

// Poller drains the durable due-time index: due rows are decoded, published
// to the bus, and deleted only after a successful publish. A crash between
// publish and delete re-delivers the task, which the engine tolerates.
type Poller struct {
	scheduled persistence.ScheduledTaskRepository
	bus       taskbus.Publisher
	interval  time.Duration
	logger    *slog.Logger
}

func NewPoller(
	scheduled persistence.ScheduledTaskRepository,
	bus taskbus.Publisher,
	interval time.Duration,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		scheduled: scheduled,
		bus:       bus,
		interval:  interval,
		logger:    logger.With("module", "poller"),
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := p.Tick(ctx)
			if err != nil {
				p.logger.ErrorContext(ctx, "Scheduled task poll failed", "error", err)
			}
		}
	}
}

// Tick publishes every task whose due time has passed.
func (p *Poller) Tick(ctx context.Context) error {
	due, err := p.scheduled.Due(ctx, time.Now().UTC(), pollBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list due tasks: %w", err)
	}

	for _, row := range due {
		task, err := tasks.Decode(tasks.Type(row.TaskType), row.Payload)
		if err != nil {
			p.logger.ErrorContext(ctx, "Dropping undecodable scheduled task",
				"scheduled_task_id", row.ID, "task_type", row.TaskType, "error", err)

			_ = p.scheduled.Delete(ctx, row.ID)

			continue
		}

		err = p.bus.Publish(ctx, task.Meta().ID, task)
		if err != nil {
			return fmt.Errorf("failed to publish due task %s: %w", row.ID, err)
		}

		err = p.scheduled.Delete(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("failed to delete published task %s: %w", row.ID, err)
		}

		p.logger.DebugContext(ctx, "Published due task",
			"scheduled_task_id", row.ID, "task_type", row.TaskType)
	}

	return nil
}
