package handler

import (
	"net/http"
	"strings"

	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/service"
	"sales_pipeline_backend/internal/pipeline/transport"
	"sales_pipeline_backend/platform/httpkit"
	"sales_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
	msgInvalidTaskID    = "invalid task id"
)

// Handler serves the pipeline endpoints.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the read and agent-facing routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stages", h.ListStages)
	rg.GET("/stages/:stage/transitions", h.ListNextStages)

	rg.GET("/leads/:id/history", h.StageHistory)
	rg.POST("/leads/:id/transitions/validate", h.ValidateTransition)
	rg.POST("/leads/:id/transitions", h.MoveStage)
	rg.POST("/leads/:id/assign", h.AssignLead)

	rg.POST("/tasks/:id/assign", h.AssignTask)

	rg.GET("/workload", h.Workload)
}

// RegisterAdminRoutes mounts routes that override automatic behaviour.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/leads/:id/assignee", h.ReassignLead)
}

func (h *Handler) ListStages(c *gin.Context) {
	httpkit.OK(c, h.svc.Stages())
}

func (h *Handler) ListNextStages(c *gin.Context) {
	resp, err := h.svc.NextStages(c.Param("stage"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) StageHistory(c *gin.Context) {
	leadID, ok := parseID(c, msgInvalidLeadID)
	if !ok {
		return
	}
	resp, err := h.svc.StageHistory(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ValidateTransition(c *gin.Context) {
	leadID, req, actor, ok := h.bindTransition(c)
	if !ok {
		return
	}
	resp, err := h.svc.ValidateTransition(c.Request.Context(), leadID, req.ToStage, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// MoveStage answers 422 with the accumulated reasons when the move is refused.
func (h *Handler) MoveStage(c *gin.Context) {
	leadID, req, actor, ok := h.bindTransition(c)
	if !ok {
		return
	}
	resp, err := h.svc.MoveStage(c.Request.Context(), leadID, req.ToStage, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	if !resp.Committed {
		httpkit.JSON(c, http.StatusUnprocessableEntity, resp)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) AssignLead(c *gin.Context) {
	leadID, ok := parseID(c, msgInvalidLeadID)
	if !ok {
		return
	}
	req, ok := h.bindAssign(c)
	if !ok {
		return
	}

	if req.Async {
		resp, err := h.svc.RequestLeadAssignment(c.Request.Context(), leadID, toFilter(req))
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, resp)
		return
	}

	resp, err := h.svc.AssignLead(c.Request.Context(), leadID, toFilter(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) AssignTask(c *gin.Context) {
	taskID, ok := parseID(c, msgInvalidTaskID)
	if !ok {
		return
	}
	req, ok := h.bindAssign(c)
	if !ok {
		return
	}

	if req.Async {
		resp, err := h.svc.RequestTaskAssignment(c.Request.Context(), taskID, toFilter(req))
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, resp)
		return
	}

	resp, err := h.svc.AssignTask(c.Request.Context(), taskID, toFilter(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ReassignLead(c *gin.Context) {
	actor, ok := httpkit.MustActor(c)
	if !ok {
		return
	}
	leadID, ok := parseID(c, msgInvalidLeadID)
	if !ok {
		return
	}

	var req transport.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.ReassignLead(c.Request.Context(), leadID, req.AgentID, actor.ID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Workload(c *gin.Context) {
	var query transport.WorkloadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	filter := domain.EligibilityFilter{
		IncludeInactive: query.IncludeInactive,
		IncludeNonStaff: query.IncludeNonStaff,
	}
	if query.AgentIDs != "" {
		for _, raw := range strings.Split(query.AgentIDs, ",") {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				httpkit.Error(c, http.StatusBadRequest, "invalid agent id", raw)
				return
			}
			filter.AgentIDs = append(filter.AgentIDs, id)
		}
	}

	resp, err := h.svc.WorkloadRanking(c.Request.Context(), filter, query.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) bindTransition(c *gin.Context) (uuid.UUID, transport.TransitionRequest, uuid.UUID, bool) {
	var req transport.TransitionRequest
	actor, ok := httpkit.MustActor(c)
	if !ok {
		return uuid.Nil, req, uuid.Nil, false
	}
	leadID, ok := parseID(c, msgInvalidLeadID)
	if !ok {
		return uuid.Nil, req, uuid.Nil, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, req, uuid.Nil, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return uuid.Nil, req, uuid.Nil, false
	}
	return leadID, req, actor.ID, true
}

// bindAssign accepts an empty body as "default eligibility, synchronous".
func (h *Handler) bindAssign(c *gin.Context) (transport.AssignRequest, bool) {
	var req transport.AssignRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return req, false
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return req, false
	}
	return req, true
}

func parseID(c *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}

func toFilter(req transport.AssignRequest) domain.EligibilityFilter {
	return domain.EligibilityFilter{
		IncludeInactive: req.IncludeInactive,
		IncludeNonStaff: req.IncludeNonStaff,
		AgentIDs:        req.AgentIDs,
	}
}
