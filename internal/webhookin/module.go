package webhookin

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/http/middleware"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// formRateLimit caps unauthenticated-adjacent form traffic per client IP.
const (
	formRateLimitPerSec = 5
	formRateLimitBurst  = 10
)

// Module is the webhook ingestion bounded context implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	cfg     config.WebhookConfig
	log     *logger.Logger
}

// NewModule creates and wires the webhookin module.
func NewModule(pool *pgxpool.Pool, intake LeadIntake, finder LeadFinder, engagement EngagementRecorder, cfg config.WebhookConfig, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, intake, finder, engagement, cfg, log)
	return &Module{
		handler: NewHandler(service, log),
		service: service,
		cfg:     cfg,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "webhookin" }

// RegisterRoutes mounts the webhook endpoints under /api/v1/webhooks.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/form",
		middleware.RateLimit(formRateLimitPerSec, formRateLimitBurst, m.log),
		APIKeyMiddleware(m.cfg, m.log),
		m.handler.HandleForm,
	)
	ctx.Webhooks.POST("/:source",
		SignatureMiddleware(m.cfg, m.log),
		m.handler.HandleSigned,
	)
}

// Service exposes the webhook service for worker wiring.
func (m *Module) Service() *Service { return m.service }
