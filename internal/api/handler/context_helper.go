package handler

import (
	"github.com/gin-gonic/gin"

	"elevtinget/backend/internal/service"
	"elevtinget/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetCaller 从 JWT 注入的上下文构造当前操作者
func MustGetCaller(c *gin.Context) (*service.Caller, bool) {
	userID, ok := mustGetString(c, "user_id")
	if !ok {
		return nil, false
	}
	role, ok := mustGetString(c, "role")
	if !ok {
		return nil, false
	}
	email := c.GetString("email")
	return &service.Caller{UserID: userID, Email: email, Role: role}, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// handleServiceError 分类错误按类别响应，其余统一 500
func handleServiceError(c *gin.Context, err error) {
	if response.FromError(c, err) {
		return
	}
	response.InternalError(c)
}
