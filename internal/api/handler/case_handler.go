package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/service"
	"elevtinget/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CaseHandler 请假案件模块 HTTP 处理器
type CaseHandler struct {
	caseSvc service.CaseService
}

// NewCaseHandler 创建 CaseHandler
func NewCaseHandler(caseSvc service.CaseService) *CaseHandler {
	return &CaseHandler{caseSvc: caseSvc}
}

// ListCases 按派生状态筛选案件
// GET /api/v1/cases?filter=ALL
func (h *CaseHandler) ListCases(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.caseSvc.List(c.Request.Context(), c.DefaultQuery("filter", "ALL"), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, list)
}

// GetCase 获取案件详情
// GET /api/v1/cases/:id
func (h *CaseHandler) GetCase(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.caseSvc.Get(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// CreateCase 管理员代录申请
// POST /api/v1/cases
func (h *CaseHandler) CreateCase(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.caseSvc.Create(c.Request.Context(), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// ReviewCase 审核案件
// PUT /api/v1/cases/:id/review
func (h *CaseHandler) ReviewCase(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ReviewCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.caseSvc.Review(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateFormData 覆盖申请表单
// PUT /api/v1/cases/forms/:formId
func (h *CaseHandler) UpdateFormData(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UpdateFormDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.caseSvc.UpdateFormData(c.Request.Context(), c.Param("formId"), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// SetSwapped 记录观察员换牌
// PUT /api/v1/cases/:id/swap
func (h *CaseHandler) SetSwapped(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.SetSwappedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.caseSvc.SetSwapped(c.Request.Context(), c.Param("id"), req.Swapped, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateComment 更新内部备注
// PUT /api/v1/cases/:id/comment
func (h *CaseHandler) UpdateComment(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.caseSvc.UpdateComment(c.Request.Context(), c.Param("id"), req.Comment, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteCase 删除案件及其表单
// DELETE /api/v1/cases/:id
func (h *CaseHandler) DeleteCase(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.caseSvc.Delete(c.Request.Context(), c.Param("id"), caller); err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, nil)
}

// ExportCases 导出案件 Excel
// GET /api/v1/cases/export?filter=ALL
func (h *CaseHandler) ExportCases(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.caseSvc.Export(c.Request.Context(), c.DefaultQuery("filter", "ALL"), caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
