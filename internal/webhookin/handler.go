package webhookin

import (
	"net/http"

	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler handles inbound webhook HTTP requests.
type Handler struct {
	service *Service
	log     *logger.Logger
}

// NewHandler creates a new webhookin handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// HandleForm ingests a website form submission.
// POST /api/v1/webhooks/form (API-key authenticated, rate limited)
func (h *Handler) HandleForm(c *gin.Context) {
	body, err := rawBody(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unreadable body", nil)
		return
	}
	h.ingest(c, SourceForm, "form_submission", body)
}

// HandleSigned ingests a signed webhook from a named source.
// POST /api/v1/webhooks/:source (signature authenticated)
func (h *Handler) HandleSigned(c *gin.Context) {
	source := c.Param("source")
	if source != SourceEngagement && source != SourceCRM {
		httpkit.Error(c, http.StatusNotFound, "unknown webhook source", nil)
		return
	}

	body, err := rawBody(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unreadable body", nil)
		return
	}

	eventType := c.GetHeader("X-Webhook-Event")
	if eventType == "" {
		eventType = source + "_event"
	}
	h.ingest(c, source, eventType, body)
}

// ingest runs the shared accept path: 200 when processed inline, 202 when
// durably logged but deferred to replay, typed error otherwise.
func (h *Handler) ingest(c *gin.Context, source, eventType string, body []byte) {
	outcome, err := h.service.Ingest(c.Request.Context(), source, eventType, body)
	if httpkit.HandleError(c, err) {
		return
	}

	if outcome.Deferred {
		httpkit.Accepted(c, outcome)
		return
	}
	httpkit.OK(c, outcome)
}
