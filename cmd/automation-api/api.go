// Package main provides the automation API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/onsell/automation/pkg/campaign"
	"github.com/onsell/automation/pkg/cmd"
	"github.com/onsell/automation/pkg/crm"
	"github.com/onsell/automation/pkg/dispatcher"
	"github.com/onsell/automation/pkg/execlog"
	"github.com/onsell/automation/pkg/flow"
	"github.com/onsell/automation/pkg/graph"
	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/taskbus"
	"github.com/onsell/automation/pkg/tenant"
	"github.com/onsell/automation/pkg/web"
)

func runAPI(ctx context.Context, command *cli.Command, logger *slog.Logger) error {
	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := store.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	bus := cmd.NewTaskBus(command.String("task-bus"), "automation-api", logger)
	defer func() {
		err := bus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close task bus", "error", err)
		}
	}()

	crmClient := crm.NewClient(command.String("crm-api-url"), command.String("crm-api-key"), logger)

	app := newApp(store, bus, crmClient, logger)

	return app.Listen(":" + strconv.Itoa(command.Int("port")))
}

func newApp(store persistence.Persistence, bus taskbus.TaskBus, crmClient *crm.Client, logger *slog.Logger) *fiber.App {
	tenants := tenant.NewContextProvider()
	dispatch := dispatcher.NewDispatcher(bus, store.ScheduledTaskRepository(), tenants, logger)
	graphs := graph.NewStore(store.AutomationRepository(), logger)
	logs := execlog.NewService(store.ExecutionLogRepository(), logger)
	orchestrator := flow.NewOrchestrator(graphs, logs, dispatch, logger)
	campaigns := campaign.NewService(
		store.CampaignRepository(),
		store.CampaignMessageRepository(),
		crmClient,
		crmClient,
		crmClient,
		dispatch,
		logger,
	)

	handlers := web.NewAPIHandlers(
		store.AutomationRepository(),
		store.ExecutionLogRepository(),
		graphs,
		orchestrator,
		campaigns,
		tenants,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Automation API")
	})

	a := app.Group("/automations")
	a.Get("/", handlers.GetAutomations)
	a.Post("/", handlers.CreateAutomation)
	a.Get("/:id", handlers.GetAutomation)
	a.Put("/:id", handlers.UpdateAutomation)
	a.Delete("/:id", handlers.DeleteAutomation)
	a.Post("/:id/execute", handlers.ExecuteAutomation)
	a.Get("/:id/logs", handlers.GetExecutionLogs)

	c := app.Group("/campaigns")
	c.Get("/", handlers.GetCampaigns)
	c.Post("/", handlers.CreateCampaign)
	c.Get("/:id", handlers.GetCampaign)
	c.Post("/:id/start", handlers.StartCampaign)
	c.Post("/:id/pause", handlers.PauseCampaign)
	c.Post("/:id/resume", handlers.ResumeCampaign)
	c.Post("/:id/cancel", handlers.CancelCampaign)
	c.Get("/:id/stats", handlers.GetCampaignStats)
	c.Get("/:id/messages", handlers.GetCampaignMessages)

	return app
}
