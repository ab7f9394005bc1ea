package leads

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	repo    *Repository
}

// NewModule creates and wires the leads module. The sequence pauser and
// notifier are consumer-side interfaces; pass nil in binaries that do not
// carry those modules.
func NewModule(pool *pgxpool.Pool, factors FactorSource, enqueuer Enqueuer, pauser SequencePauser, notifier Notifier, val *validator.Validator, cfg config.IntakeConfig, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, factors, enqueuer, pauser, notifier, cfg, log)
	return &Module{
		handler: NewHandler(service, val),
		service: service,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "leads" }

// RegisterRoutes mounts the lead endpoints under /api/v1/leads.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
}

// Service exposes the lead service for other modules' wiring.
func (m *Module) Service() *Service { return m.service }

// Repository exposes the lead repository for worker-side modules.
func (m *Module) Repository() *Repository { return m.repo }
