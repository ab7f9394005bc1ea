package leads

import (
	"net/http"
	"strconv"

	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errInvalidLeadID  = "invalid lead ID"
)

// Handler handles lead HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new leads handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// RegisterRoutes mounts the lead endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.HandleIntake)
	r.GET("", h.HandleList)
	r.GET("/:id", h.HandleGet)
	r.PATCH("/:id", h.HandleUpdate)
	r.PATCH("/:id/status", h.HandleUpdateStatus)
	r.POST("/:id/reopen", h.HandleReopen)
	r.POST("/:id/rescore", h.HandleRescore)
	r.GET("/:id/interactions", h.HandleTimeline)
	r.POST("/:id/interactions", h.HandleRecordInteraction)
}

// HandleIntake records a manually entered inquiry.
// POST /api/v1/leads
func (h *Handler) HandleIntake(c *gin.Context) {
	var req IntakeRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	result, err := h.service.Intake(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// HandleList returns leads, filterable by status and minimum priority.
// GET /api/v1/leads?status=new&minPriority=4&limit=50
func (h *Handler) HandleList(c *gin.Context) {
	filter := ListFilter{Status: Status(c.Query("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		httpkit.Error(c, http.StatusBadRequest, "unknown status filter", nil)
		return
	}
	if raw := c.Query("minPriority"); raw != "" {
		minPriority, err := strconv.Atoi(raw)
		if err != nil || minPriority < 1 || minPriority > 5 {
			httpkit.Error(c, http.StatusBadRequest, "minPriority must be 1-5", nil)
			return
		}
		filter.MinPriority = minPriority
	}
	if raw := c.Query("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}

	leads, err := h.service.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"leads": leads})
}

// HandleGet returns one lead.
// GET /api/v1/leads/:id
func (h *Handler) HandleGet(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	lead, err := h.service.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// HandleUpdate patches lead attributes, rescoring when relevant ones change.
// PATCH /api/v1/leads/:id
func (h *Handler) HandleUpdate(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	lead, err := h.service.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// UpdateStatusRequest moves a lead through its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified converted lost"`
}

// HandleUpdateStatus applies a forward-only lifecycle transition.
// PATCH /api/v1/leads/:id/status
func (h *Handler) HandleUpdateStatus(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	lead, err := h.service.UpdateStatus(c.Request.Context(), id, Status(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// HandleReopen moves a lost lead back to new.
// POST /api/v1/leads/:id/reopen
func (h *Handler) HandleReopen(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	lead, err := h.service.Reopen(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// HandleRescore forces a recompute against the current factor model.
// POST /api/v1/leads/:id/rescore
func (h *Handler) HandleRescore(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	lead, err := h.service.Rescore(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// HandleTimeline returns a lead's interaction history.
// GET /api/v1/leads/:id/interactions
func (h *Handler) HandleTimeline(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	interactions, err := h.service.Timeline(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"interactions": interactions})
}

// HandleRecordInteraction appends a touchpoint.
// POST /api/v1/leads/:id/interactions
func (h *Handler) HandleRecordInteraction(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	var req InteractionRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	interaction, err := h.service.RecordInteraction(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, interaction)
}

func (h *Handler) leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
