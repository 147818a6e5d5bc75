// Package main provides the PropGEN API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/easeworks/propgen/pkg/dedup"
	"github.com/easeworks/propgen/pkg/eventbus"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/services"
	"github.com/easeworks/propgen/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	dedupe      dedup.Store
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	dedupe dedup.Store,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		dedupe:      dedupe,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	triggerService := services.NewTrigger(a.persistence, a.dedupe, a.eventBus, a.tracer, a.logger)
	workflowService := services.NewWorkflow(a.persistence, a.logger)
	webhookService := services.NewWebhook(a.persistence, a.logger)
	approvalService := services.NewApproval(a.persistence, a.eventBus, a.logger)
	auditService := services.NewAudit(a.persistence, a.logger)

	handlers := web.NewAPIHandlers(triggerService, workflowService, webhookService, approvalService, auditService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("PropGEN API")
	})

	app.Post("/triggers", handlers.ProcessTrigger)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Get("/:companyId", handlers.GetWorkflow)
	w.Get("/:companyId/steps", handlers.GetWorkflowSteps)

	wh := app.Group("/webhooks")
	wh.Post("/", handlers.CreateWebhook)
	wh.Get("/", handlers.GetWebhooks)
	wh.Get("/:id", handlers.GetWebhook)
	wh.Patch("/:id", handlers.UpdateWebhook)
	wh.Delete("/:id", handlers.DeleteWebhook)

	ap := app.Group("/approvals")
	ap.Get("/", handlers.GetApprovals)
	ap.Get("/:id", handlers.GetApproval)
	ap.Post("/:id/decision", handlers.DecideApproval)

	app.Get("/companies/:companyId/audit", handlers.GetCompanyAudit)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
