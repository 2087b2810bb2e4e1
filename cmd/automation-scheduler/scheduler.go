package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/onsell/automation/pkg/cmd"
	"github.com/onsell/automation/pkg/dispatcher"
	"github.com/onsell/automation/pkg/execlog"
	"github.com/onsell/automation/pkg/flow"
	"github.com/onsell/automation/pkg/graph"
	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/sources/queue"
	"github.com/onsell/automation/pkg/tasks"
	"github.com/onsell/automation/pkg/tenant"
)

func runScheduler(ctx context.Context, command *cli.Command, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := store.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	bus := cmd.NewTaskBus(command.String("task-bus"), "automation-scheduler", logger)
	defer func() {
		err := bus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close task bus", "error", err)
		}
	}()

	tenants := tenant.NewContextProvider()
	dispatch := dispatcher.NewDispatcher(bus, store.ScheduledTaskRepository(), tenants, logger)

	// Delayed tasks: publish rows whose due time has arrived.
	poller := dispatcher.NewPoller(store.ScheduledTaskRepository(), bus, command.Duration("poll-interval"), logger)

	go func() {
		err := poller.Run(ctx)
		if err != nil && ctx.Err() == nil {
			logger.ErrorContext(ctx, "Scheduled task poller stopped", "error", err)
		}
	}()

	// Campaign sweep: periodically enqueue the cross-campaign check.
	sweeper := cron.New()

	_, err := sweeper.AddFunc(command.String("sweep-schedule"), func() {
		task := &tasks.CheckScheduledCampaigns{Base: tasks.NewBase(tasks.TypeCheckScheduledCampaigns)}

		err := dispatch.Enqueue(ctx, task, 0)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to enqueue campaign sweep", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule: %w", err)
	}

	sweeper.Start()
	defer sweeper.Stop()

	// Trigger events: feed CRM events into event-triggered automation starts.
	if triggerQueue := command.String("trigger-queue"); triggerQueue != "" {
		graphs := graph.NewStore(store.AutomationRepository(), logger)
		logs := execlog.NewService(store.ExecutionLogRepository(), logger)
		orchestrator := flow.NewOrchestrator(graphs, logs, dispatch, logger)

		source, err := queue.NewSource(
			command.String("redis-addr"),
			command.String("redis-password"),
			0,
			triggerQueue,
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create trigger event source: %w", err)
		}

		err = source.Start(ctx, func(ctx context.Context, triggerType models.TriggerType, payload map[string]any) error {
			if tenantID, ok := payload["tenant_id"].(string); ok {
				ctx = tenants.Activate(ctx, tenantID)
			}

			return orchestrator.StartFromEvent(ctx, triggerType, payload)
		})
		if err != nil {
			return fmt.Errorf("failed to start trigger event source: %w", err)
		}

		defer func() {
			err := source.Stop(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to stop trigger event source", "error", err)
			}
		}()
	}

	logger.InfoContext(ctx, "Scheduler started",
		"poll_interval", command.Duration("poll-interval"),
		"sweep_schedule", command.String("sweep-schedule"))

	<-ctx.Done()

	logger.Info("Scheduler shutting down")

	return nil
}
