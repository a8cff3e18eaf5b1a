package routes

import (
	"wattschain/internal/handlers"
	"wattschain/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes sets up the operational endpoints behind the admin key
func SetupAdminRoutes(r *gin.RouterGroup, adminHandler *handlers.AdminHandler, adminAPIKey string) {
	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired(adminAPIKey))
	{
		admin.POST("/commissions/unlock", adminHandler.UnlockCommissions)
		admin.POST("/commissions/distribute/:id", adminHandler.DistributeCommissions)
		admin.POST("/fraud/scan/:id", adminHandler.ScanUser)
		admin.POST("/tree/audit", adminHandler.AuditTree)
		admin.GET("/analytics", adminHandler.GetAnalytics)
	}
}
