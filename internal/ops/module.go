// Package ops exposes operational introspection: queue depths, SLA
// performance and daily rollups.
package ops

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"leadflow_backend/internal/analytics"
	"leadflow_backend/internal/dispatch"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/sla"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// SLASource reads the latest SLA measurement. Implemented by sla.Service.
type SLASource interface {
	Latest(ctx context.Context) (sla.Metrics, error)
}

// Module is the ops introspection module implementing http.Module.
type Module struct {
	inspector *dispatch.Inspector
	slaSource SLASource
	rollups   *analytics.Repository
}

// NewModule creates the ops module.
func NewModule(inspector *dispatch.Inspector, slaSource SLASource, rollups *analytics.Repository) *Module {
	return &Module{inspector: inspector, slaSource: slaSource, rollups: rollups}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "ops" }

// RegisterRoutes mounts the introspection endpoints under /api/v1/ops.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/ops")
	group.GET("/queues", m.HandleQueues)
	group.GET("/sla", m.HandleSLA)
	group.GET("/rollups", m.HandleRollups)
}

// HandleQueues returns per-domain job counts.
// GET /api/v1/ops/queues
func (m *Module) HandleQueues(c *gin.Context) {
	stats, err := m.inspector.Stats()
	if err != nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "queue backend unavailable", err.Error())
		return
	}
	httpkit.OK(c, gin.H{"domains": stats})
}

// HandleSLA returns the latest response-time measurement.
// GET /api/v1/ops/sla
func (m *Module) HandleSLA(c *gin.Context) {
	latest, err := m.slaSource.Latest(c.Request.Context())
	if errors.Is(err, sla.ErrNoMetrics) {
		httpkit.Error(c, http.StatusNotFound, "no sla metrics recorded yet", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, latest)
}

// HandleRollups returns recent daily aggregates.
// GET /api/v1/ops/rollups?limit=30
func (m *Module) HandleRollups(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	rollups, err := m.rollups.ListRollups(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"rollups": rollups})
}
