package handler

import (
	"github.com/gin-gonic/gin"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/service"
	"elevtinget/backend/pkg/response"
)

// HMSHandler HMS（健康、环境与安全）模块 HTTP 处理器
type HMSHandler struct {
	svc service.HMSService
}

// NewHMSHandler 创建 HMSHandler
func NewHMSHandler(svc service.HMSService) *HMSHandler {
	return &HMSHandler{svc: svc}
}

// ── 事件 ──

// ListIncidents 事件列表，可按参会者过滤
// GET /api/v1/hms/incidents?participant_object_id=xxx
func (h *HMSHandler) ListIncidents(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.svc.ListIncidents(c.Request.Context(), c.Query("participant_object_id"), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, list)
}

// GetIncident 事件详情（含跟进记录）
// GET /api/v1/hms/incidents/:id
func (h *HMSHandler) GetIncident(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.GetIncident(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// CreateIncident 登记事件
// POST /api/v1/hms/incidents
func (h *HMSHandler) CreateIncident(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.CreateIncident(c.Request.Context(), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateIncident 更新事件
// PUT /api/v1/hms/incidents/:id
func (h *HMSHandler) UpdateIncident(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.UpdateIncident(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteIncident 删除事件，关联请假保留
// DELETE /api/v1/hms/incidents/:id
func (h *HMSHandler) DeleteIncident(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteIncident(c.Request.Context(), c.Param("id"), caller); err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, nil)
}

// ── 跟进记录 ──

// ListActions GET /api/v1/hms/incidents/:id/actions
func (h *HMSHandler) ListActions(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.svc.ListActions(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, list)
}

// AddAction POST /api/v1/hms/incidents/:id/actions
func (h *HMSHandler) AddAction(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.AddAction(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// ── HMS 请假 ──

// CreateLeave 由事件创建已批准请假
// POST /api/v1/hms/incidents/:id/leave
func (h *HMSHandler) CreateLeave(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.HMSLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.CreateFromIncident(c.Request.Context(), c.Param("id"), req.From, req.To, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateLeave 调整 HMS 请假时间窗
// PUT /api/v1/hms/leave/:caseId
func (h *HMSHandler) UpdateLeave(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.HMSLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.UpdateFromIncident(c.Request.Context(), c.Param("caseId"), req.From, req.To, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// RevokeLeave 立即结束 HMS 请假
// POST /api/v1/hms/leave/:caseId/revoke
func (h *HMSHandler) RevokeLeave(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.RevokeEarly(c.Request.Context(), c.Param("caseId"), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}
