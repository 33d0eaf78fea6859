package router

import (
	"github.com/ashwinyue/mnemosyne/internal/handler"
	"github.com/ashwinyue/mnemosyne/internal/middleware"
	"github.com/ashwinyue/mnemosyne/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 设置路由
// 参与者接口只凭会话 ID 访问，研究侧接口要求操作员令牌
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查与指标
	r.GET("/health", h.System.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Auth 认证
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/refresh", h.Auth.RefreshToken)

			protected := authGroup.Group("", middleware.RequireAuth(svc))
			{
				protected.POST("/logout", h.Auth.Logout)
				protected.GET("/me", h.Auth.GetCurrentFacilitator)
				protected.POST("/password", h.Auth.ChangePassword)
			}
		}

		// Mode 对话模式
		v1.GET("/modes", h.Mode.ListModes)

		// Session 会话（参与者侧）
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.Session.CreateSession)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.GET("/:id/turns", h.Session.ListTurns)
			sessions.POST("/:id/messages", h.Message.SubmitMessage)
			sessions.POST("/:id/end", h.Message.EndSession)
		}

		// 研究侧
		research := v1.Group("", middleware.RequireAuth(svc))
		{
			research.GET("/sessions", h.Session.ListSessions)
			research.DELETE("/sessions/:id", h.Session.DeleteSession)
			research.GET("/sessions/:id/anchors", h.Session.ListAnchors)
			research.GET("/sessions/:id/export", h.Session.ExportSession)
			research.POST("/sessions/import", h.Session.ImportSession)
			research.GET("/search", h.Search.SearchTurns)
		}
	}

	return r
}
