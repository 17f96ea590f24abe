package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studio-schedule/backend/config"
	"studio-schedule/backend/internal/api/handler"
	"studio-schedule/backend/internal/api/middleware"
	"studio-schedule/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "test_mode": cfg.Feature.TestMode})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		authorized.Use(middleware.RateLimit(limiter, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
		{
			// 时间策略
			authorized.GET("/policy/window", h.Policy.Window)

			// 摄影棚目录
			studios := authorized.Group("/studios")
			{
				studios.GET("", h.Studio.List)
				studios.GET("/:id", h.Studio.Get)
			}

			// 冲突检测
			authorized.POST("/conflicts/check", h.Conflict.Check)

			// 排程模块（权限细节由 Service 层按操作者与状态判断）
			schedules := authorized.Group("/schedules")
			{
				schedules.POST("", h.Schedule.Register)
				schedules.GET("", h.Schedule.List)
				schedules.GET("/:id", h.Schedule.Get)
				schedules.PUT("/:id", h.Schedule.Edit)
				schedules.POST("/:id/actions/:action", h.Schedule.Transition)
				schedules.GET("/:id/history", h.Schedule.History)
				schedules.GET("/:id/policy", h.Policy.ForSchedule)

				// 拆分（管理员）
				schedules.POST("/:id/split", middleware.RoleAuth("admin", "manager"), h.Split.Split)
				schedules.POST("/:id/unsplit", middleware.RoleAuth("admin", "manager"), h.Split.Unsplit)
			}
			authorized.GET("/schedule-groups", h.Split.ListGroups)

			// 导出模块
			export := authorized.Group("/export")
			export.Use(middleware.RoleAuth("admin", "manager"))
			{
				export.GET("/schedules", h.Export.ExportSchedules)
				export.GET("/calendar", h.Export.ExportCalendar)
			}
		}
	}

	return r
}
