package handler

import (
	"github.com/gin-gonic/gin"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/service"
	"elevtinget/backend/pkg/response"
)

// EventConfigHandler 会议配置 HTTP 处理器
type EventConfigHandler struct {
	svc service.EventConfigService
}

// NewEventConfigHandler 创建 EventConfigHandler
func NewEventConfigHandler(svc service.EventConfigService) *EventConfigHandler {
	return &EventConfigHandler{svc: svc}
}

// Get GET /api/v1/event-config
func (h *EventConfigHandler) Get(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 更新会议日期与邮件开关
// PUT /api/v1/event-config
func (h *EventConfigHandler) Update(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UpdateEventConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.Update(c.Request.Context(), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}
