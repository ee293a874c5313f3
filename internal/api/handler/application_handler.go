package handler

import (
	"github.com/gin-gonic/gin"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/service"
	"elevtinget/backend/pkg/response"
)

// ApplicationHandler 公开自助申请（无需登录）
type ApplicationHandler struct {
	caseSvc  service.CaseService
	eventSvc service.EventConfigService
}

// NewApplicationHandler 创建 ApplicationHandler
func NewApplicationHandler(caseSvc service.CaseService, eventSvc service.EventConfigService) *ApplicationHandler {
	return &ApplicationHandler{caseSvc: caseSvc, eventSvc: eventSvc}
}

// Submit 参会者提交请假申请
// POST /api/v1/applications
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.caseSvc.Create(c.Request.Context(), &req, nil)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// Verify 核验参会者身份并返回可自动填充的字段
// GET /api/v1/applications/verify?email=xxx&participant_id=xxx
func (h *ApplicationHandler) Verify(c *gin.Context) {
	result, err := h.caseSvc.VerifyParticipant(c.Request.Context(), c.Query("email"), c.Query("participant_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// Event 会议日期
// GET /api/v1/applications/event
func (h *ApplicationHandler) Event(c *gin.Context) {
	result, err := h.eventSvc.PublicDates(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}
