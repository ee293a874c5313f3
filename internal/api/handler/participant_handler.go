package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/service"
	"elevtinget/backend/pkg/response"
)

// ParticipantHandler 参会者模块 HTTP 处理器
type ParticipantHandler struct {
	svc service.ParticipantService
}

// NewParticipantHandler 创建 ParticipantHandler
func NewParticipantHandler(svc service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{svc: svc}
}

// Search 搜索参会者（姓名、邮箱或胸牌号）
// GET /api/v1/participants?q=xxx&page=1&page_size=20
func (h *ParticipantHandler) Search(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ParticipantListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.svc.Search(c.Request.Context(), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 参会者详情
// GET /api/v1/participants/:id
func (h *ParticipantHandler) Get(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// Import 从 Excel 批量导入参会者
// POST /api/v1/participants/import
//
// multipart/form-data, field="file"
func (h *ParticipantHandler) Import(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.svc.ParseImportFile(file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportNoData),
			errors.Is(err, service.ErrImportTooManyRows),
			errors.Is(err, service.ErrImportBadHeader):
			response.BadRequest(c, 10001, err.Error())
		default:
			response.BadRequest(c, 10001, "无法解析 Excel 文件")
		}
		return
	}

	result, err := h.svc.Import(c.Request.Context(), rows, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}
