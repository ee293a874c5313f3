package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"elevtinget/backend/config"
	"elevtinget/backend/internal/api/handler"
	"elevtinget/backend/internal/api/middleware"
	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/service"
	"elevtinget/backend/pkg/jwt"
	"elevtinget/backend/pkg/redis"
)

const (
	jsonBodyLimit   = 1 << 20
	importBodyLimit = 10 << 20
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	authz service.Authorizer,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	can := func(cap model.Capability) gin.HandlerFunc {
		return middleware.RequireCapability(authz, cap)
	}
	jwtAuth := middleware.JWTAuth(jwtMgr, rdb, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login",
			middleware.BodyLimit(jsonBodyLimit),
			middleware.RateLimit(rdb, 10, time.Minute, logger),
			h.Auth.Login,
		)

		// 公开申请表单
		applications := v1.Group("/applications")
		applications.Use(middleware.BodyLimit(jsonBodyLimit))
		{
			limit := middleware.RateLimit(rdb, cfg.Server.ApplicationRateLimit, cfg.Server.ApplicationRateWindow, logger)
			applications.POST("", limit, h.Application.Submit)
			applications.GET("/verify", limit, h.Application.Verify)
			applications.GET("/event", h.Application.Event)
		}

		// Excel 导入单独放宽请求体上限
		uploads := v1.Group("")
		uploads.Use(middleware.BodyLimit(importBodyLimit), jwtAuth)
		{
			uploads.POST("/participants/import", can(model.CapUsersWrite), h.Participant.Import)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.BodyLimit(jsonBodyLimit), jwtAuth)
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 请假案件
			cases := authorized.Group("/cases")
			{
				cases.GET("", can(model.CapCaseRead), h.Case.ListCases)
				cases.GET("/export", can(model.CapCaseRead), h.Case.ExportCases)
				cases.GET("/:id", can(model.CapCaseRead), h.Case.GetCase)
				cases.POST("", can(model.CapCaseWrite), h.Case.CreateCase)
				cases.PUT("/:id/review", can(model.CapCaseWrite), h.Case.ReviewCase)
				cases.PUT("/forms/:formId", can(model.CapCaseWrite), h.Case.UpdateFormData)
				cases.PUT("/:id/swap", can(model.CapCaseWrite), h.Case.SetSwapped)
				cases.PUT("/:id/comment", can(model.CapCaseWrite), h.Case.UpdateComment)
				cases.DELETE("/:id", can(model.CapCaseDelete), h.Case.DeleteCase)
			}

			// HMS
			hms := authorized.Group("/hms")
			{
				hms.GET("/incidents", can(model.CapHSERead), h.HMS.ListIncidents)
				hms.POST("/incidents", can(model.CapHSEWrite), h.HMS.CreateIncident)
				hms.GET("/incidents/:id", can(model.CapHSERead), h.HMS.GetIncident)
				hms.PUT("/incidents/:id", can(model.CapHSEWrite), h.HMS.UpdateIncident)
				hms.DELETE("/incidents/:id", can(model.CapHSEDelete), h.HMS.DeleteIncident)
				hms.GET("/incidents/:id/actions", can(model.CapHSERead), h.HMS.ListActions)
				hms.POST("/incidents/:id/actions", can(model.CapHSEWrite), h.HMS.AddAction)
				hms.POST("/incidents/:id/leave", can(model.CapHSEWrite), h.HMS.CreateLeave)
				hms.PUT("/leave/:caseId", can(model.CapHSEWrite), h.HMS.UpdateLeave)
				hms.POST("/leave/:caseId/revoke", can(model.CapHSEWrite), h.HMS.RevokeLeave)
			}

			// 参会者
			participants := authorized.Group("/participants")
			{
				participants.GET("", can(model.CapParticipantRead), h.Participant.Search)
				participants.GET("/:id", can(model.CapParticipantRead), h.Participant.Get)
			}

			// 会议配置
			authorized.GET("/event-config", can(model.CapAdminView), h.EventConfig.Get)
			authorized.PUT("/event-config", can(model.CapAdminView), h.EventConfig.Update)
		}
	}

	return r
}
