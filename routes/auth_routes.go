package routes

import (
	"wattschain/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up registration and session routes
func SetupAuthRoutes(r *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}
}
