package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/sapplex-sz/save-me-app/config"
	"github.com/sapplex-sz/save-me-app/internal/handler"
	"github.com/sapplex-sz/save-me-app/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	if config.Cfg.OTelEnabled {
		h.Use(middleware.OpenTelemetryMiddleware())
	}

	v1 := h.Group("/v1")

	// 活动相关路由
	activities := v1.Group("/activities")
	{
		activities.POST("", handler.StartActivity)
		activities.GET("/current", handler.GetCurrentActivity)
		activities.POST("/:activity_id/safe", handler.ReportSafe)
		activities.POST("/:activity_id/end", handler.EndActivity)
	}

	v1.POST("/test-connection", handler.TestConnection)

	// 管理后台路由，Basic Auth 保护
	admin := h.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware())
	{
		admin.GET("/settings", handler.GetSettings)
		admin.PUT("/settings", handler.UpdateSettings)

		admin.GET("/email-senders", handler.ListEmailSenders)
		admin.POST("/email-senders", handler.CreateEmailSender)
		admin.PATCH("/email-senders/:sender_id/toggle", handler.ToggleEmailSender)
		admin.DELETE("/email-senders/:sender_id", handler.DeleteEmailSender)
	}
}
