package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	triggerService  *services.Trigger
	workflowService *services.Workflow
	webhookService  *services.Webhook
	approvalService *services.Approval
	auditService    *services.Audit
	validator       *validator.Validate
}

func NewAPIHandlers(
	triggerService *services.Trigger,
	workflowService *services.Workflow,
	webhookService *services.Webhook,
	approvalService *services.Approval,
	auditService *services.Audit,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		triggerService:  triggerService,
		workflowService: workflowService,
		webhookService:  webhookService,
		approvalService: approvalService,
		auditService:    auditService,
		validator:       validator,
	}
}

func (h *APIHandlers) ProcessTrigger(c fiber.Ctx) error {
	var req ProcessTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	response, err := h.triggerService.ProcessTrigger(c.Context(), services.ProcessTriggerRequest{
		TriggerType: req.TriggerType,
		CompanyID:   req.CompanyID,
		Payload:     req.TriggerData,
		PerformedBy: req.UserID,
		EventID:     req.EventID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"result":          response.Result,
		"webhooks_queued": response.WebhooksQueued,
		"effects_queued":  response.EffectsQueued,
		"deduplicated":    response.Deduplicated,
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	records, err := h.workflowService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   records,
		"total_count": len(records),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	companyID := c.Params("companyId")
	if companyID == "" {
		return badRequest(c, "Company ID is required")
	}

	record, err := h.workflowService.Get(c.Context(), companyID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetWorkflowSteps(c fiber.Ctx) error {
	companyID := c.Params("companyId")
	if companyID == "" {
		return badRequest(c, "Company ID is required")
	}

	steps, err := h.workflowService.Steps(c.Context(), companyID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"company_id": companyID,
		"steps":      steps,
	})
}

func (h *APIHandlers) CreateWebhook(c fiber.Ctx) error {
	var req CreateWebhookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	// New registrations are active unless explicitly disabled.
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	registration := &models.WebhookRegistration{
		Name:          req.Name,
		URL:           req.URL,
		Active:        active,
		TriggerEvents: req.TriggerEvents,
	}

	created, err := h.webhookService.Register(c.Context(), registration)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWebhooks(c fiber.Ctx) error {
	registrations, err := h.webhookService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"webhooks":    registrations,
		"total_count": len(registrations),
	})
}

func (h *APIHandlers) GetWebhook(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Webhook ID is required")
	}

	registration, err := h.webhookService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(registration)
}

func (h *APIHandlers) UpdateWebhook(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Webhook ID is required")
	}

	var req UpdateWebhookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.webhookService.Update(c.Context(), id, services.UpdateWebhookRequest{
		Name:          req.Name,
		URL:           req.URL,
		Active:        req.Active,
		TriggerEvents: req.TriggerEvents,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWebhook(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Webhook ID is required")
	}

	err := h.webhookService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetCompanyAudit(c fiber.Ctx) error {
	companyID := c.Params("companyId")
	if companyID == "" {
		return badRequest(c, "Company ID is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	entries, err := h.auditService.ListByCompany(c.Context(), companyID, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"company_id":  companyID,
		"entries":     entries,
		"total_count": len(entries),
	})
}

func (h *APIHandlers) GetApprovals(c fiber.Ctx) error {
	status := models.ApprovalStatus(c.Query("status", string(models.ApprovalStatusPending)))

	approvals, err := h.approvalService.ListByStatus(c.Context(), status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"approvals":   approvals,
		"total_count": len(approvals),
	})
}

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Approval ID is required")
	}

	approval, err := h.approvalService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(approval)
}

func (h *APIHandlers) DecideApproval(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Approval ID is required")
	}

	var req ApprovalDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	decided, err := h.approvalService.Decide(c.Context(), id, req.Decision == "approve", req.DecidedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(decided)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.triggerService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "PropGEN API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "PropGEN API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
