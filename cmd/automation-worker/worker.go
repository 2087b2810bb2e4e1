package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"

	"github.com/onsell/automation/pkg/campaign"
	"github.com/onsell/automation/pkg/cmd"
	"github.com/onsell/automation/pkg/crm"
	"github.com/onsell/automation/pkg/dispatcher"
	"github.com/onsell/automation/pkg/execlog"
	"github.com/onsell/automation/pkg/graph"
	"github.com/onsell/automation/pkg/interpreter"
	"github.com/onsell/automation/pkg/otelhelper"
	"github.com/onsell/automation/pkg/taskbus"
	"github.com/onsell/automation/pkg/tasks"
	"github.com/onsell/automation/pkg/tenant"
)

func runWorker(ctx context.Context, command *cli.Command, workerID string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := otelhelper.NewTracer(ctx, "automation-worker")
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled", "error", err)

		tracer = otel.Tracer("automation-worker")
	}

	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := store.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	bus := cmd.NewTaskBus(command.String("task-bus"), "automation-worker", logger)
	defer func() {
		err := bus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close task bus", "error", err)
		}
	}()

	tenants := tenant.NewContextProvider()
	dispatch := dispatcher.NewDispatcher(bus, store.ScheduledTaskRepository(), tenants, logger)
	graphs := graph.NewStore(store.AutomationRepository(), logger)
	logs := execlog.NewService(store.ExecutionLogRepository(), logger)

	crmClient := crm.NewClient(command.String("crm-api-url"), command.String("crm-api-key"), logger)

	interp := interpreter.NewInterpreter(graphs, logs, dispatch, crmClient, crmClient, tracer, logger)
	campaigns := campaign.NewService(
		store.CampaignRepository(),
		store.CampaignMessageRepository(),
		crmClient,
		crmClient,
		crmClient,
		dispatch,
		logger,
	)

	executor := dispatcher.NewExecutor(dispatch, tenants, logger)
	executor.OnPermanentFailure(tasks.TypeRunNode, interp.FailureHook())

	err = registerHandlers(executor, bus, interp, campaigns)
	if err != nil {
		return fmt.Errorf("failed to register task handlers: %w", err)
	}

	err = bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to task bus: %w", err)
	}

	logger.InfoContext(ctx, "Worker started, waiting for tasks")

	<-ctx.Done()

	logger.Info("Worker shutting down")

	return nil
}

func registerHandlers(executor *dispatcher.Executor, bus taskbus.TaskBus, interp *interpreter.Interpreter, campaigns *campaign.Service) error {
	err := executor.Register(bus, tasks.TypeRunNode, func(ctx context.Context, task tasks.Task) error {
		runNode, ok := task.(*tasks.RunNode)
		if !ok {
			return dispatcher.NewPermanentError(fmt.Errorf("unexpected payload type %T", task))
		}

		return interp.Execute(ctx, runNode)
	})
	if err != nil {
		return err
	}

	err = executor.Register(bus, tasks.TypeRunCampaignBatch, func(ctx context.Context, task tasks.Task) error {
		batch, ok := task.(*tasks.RunCampaignBatch)
		if !ok {
			return dispatcher.NewPermanentError(fmt.Errorf("unexpected payload type %T", task))
		}

		return campaigns.RunBatch(ctx, batch)
	})
	if err != nil {
		return err
	}

	return executor.Register(bus, tasks.TypeCheckScheduledCampaigns, func(ctx context.Context, task tasks.Task) error {
		sweep, ok := task.(*tasks.CheckScheduledCampaigns)
		if !ok {
			return dispatcher.NewPermanentError(fmt.Errorf("unexpected payload type %T", task))
		}

		return campaigns.CheckScheduled(ctx, sweep)
	})
}
