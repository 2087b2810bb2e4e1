// Package web provides the HTTP surface consumed by the CRM's controllers:
// automation CRUD, manual execution, log listing and campaign lifecycle.
package web

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/onsell/automation/pkg/campaign"
	"github.com/onsell/automation/pkg/flow"
	"github.com/onsell/automation/pkg/graph"
	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/tenant"
)

const defaultPageSize = 50

type APIHandlers struct {
	automations  persistence.AutomationRepository
	logs         persistence.ExecutionLogRepository
	graphs       *graph.Store
	orchestrator *flow.Orchestrator
	campaigns    *campaign.Service
	tenants      tenant.Provider
	validator    *validator.Validate
}

func NewAPIHandlers(
	automations persistence.AutomationRepository,
	logs persistence.ExecutionLogRepository,
	graphs *graph.Store,
	orchestrator *flow.Orchestrator,
	campaigns *campaign.Service,
	tenants tenant.Provider,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		automations:  automations,
		logs:         logs,
		graphs:       graphs,
		orchestrator: orchestrator,
		campaigns:    campaigns,
		tenants:      tenants,
		validator:    validator,
	}
}

// requestContext activates the tenant named by the X-Tenant-ID header so it
// is captured into any task enqueued by the request.
func (h *APIHandlers) requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()

	if tenantID := c.Get("X-Tenant-ID"); tenantID != "" {
		ctx = h.tenants.Activate(ctx, tenantID)
	}

	return ctx
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	automations, err := h.automations.All(h.requestContext(c))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(automations)
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	automation, err := h.automations.GetByID(h.requestContext(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var req SaveAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.TriggerType.IsValid() {
		return badRequest(c, "Unknown trigger type: "+string(req.TriggerType))
	}

	if err := h.graphs.ValidateGraph(req.Nodes, req.Edges); err != nil {
		return handleServiceError(c, err)
	}

	ctx := h.requestContext(c)

	automation := &models.Automation{
		TenantID:      h.tenants.Current(ctx),
		Name:          req.Name,
		Description:   req.Description,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Active:        req.Active,
		Nodes:         req.Nodes,
		Edges:         req.Edges,
	}

	if err := h.automations.Save(ctx, automation); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(automation)
}

func (h *APIHandlers) UpdateAutomation(c fiber.Ctx) error {
	var req SaveAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.TriggerType.IsValid() {
		return badRequest(c, "Unknown trigger type: "+string(req.TriggerType))
	}

	if err := h.graphs.ValidateGraph(req.Nodes, req.Edges); err != nil {
		return handleServiceError(c, err)
	}

	ctx := h.requestContext(c)

	existing, err := h.automations.GetByID(ctx, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.TriggerType = req.TriggerType
	existing.TriggerConfig = req.TriggerConfig
	existing.Active = req.Active
	existing.Nodes = req.Nodes
	existing.Edges = req.Edges

	if err := h.automations.Save(ctx, existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	ctx := h.requestContext(c)
	id := c.Params("id")

	if _, err := h.automations.GetByID(ctx, id); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.automations.Delete(ctx, id); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteAutomation starts a manual run. The response is 202: execution
// happens asynchronously on the workers.
func (h *APIHandlers) ExecuteAutomation(c fiber.Ctx) error {
	var req ExecuteAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := h.requestContext(c)

	err := h.orchestrator.StartManually(ctx, c.Params("id"), req.ContactID, req.OpportunityID, req.Context)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"automation_id": c.Params("id"),
		"contact_id":    req.ContactID,
		"status":        "started",
	})
}

func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	contactID := c.Query("contact_id")
	if contactID == "" {
		return badRequest(c, "contact_id query parameter is required")
	}

	offset, limit := pagination(c)

	entries, err := h.logs.ListByRun(h.requestContext(c), c.Params("id"), contactID, offset, limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"pagination": fiber.Map{
			"offset": offset,
			"limit":  limit,
		},
	})
}

func (h *APIHandlers) GetCampaigns(c fiber.Ctx) error {
	campaigns, err := h.campaigns.List(h.requestContext(c))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(campaigns)
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	found, err := h.campaigns.Get(h.requestContext(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	var req SaveCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := h.requestContext(c)

	created := &models.Campaign{
		TenantID:    h.tenants.Current(ctx),
		Name:        req.Name,
		Audience:    req.Audience,
		Steps:       req.Steps,
		ScheduledAt: req.ScheduledAt,
	}

	if err := h.campaigns.Save(ctx, created); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) StartCampaign(c fiber.Ctx) error {
	result, err := h.campaigns.Start(h.requestContext(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}

func (h *APIHandlers) PauseCampaign(c fiber.Ctx) error {
	if err := h.campaigns.Pause(h.requestContext(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ResumeCampaign(c fiber.Ctx) error {
	if err := h.campaigns.Resume(h.requestContext(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CancelCampaign(c fiber.Ctx) error {
	if err := h.campaigns.Cancel(h.requestContext(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetCampaignStats(c fiber.Ctx) error {
	stats, err := h.campaigns.Stats(h.requestContext(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) GetCampaignMessages(c fiber.Ctx) error {
	offset, limit := pagination(c)

	messages, err := h.campaigns.Messages(h.requestContext(c), c.Params("id"), offset, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"pagination": fiber.Map{
			"offset": offset,
			"limit":  limit,
		},
	})
}

func pagination(c fiber.Ctx) (int, int) {
	offset := 0
	limit := defaultPageSize

	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	return offset, limit
}
