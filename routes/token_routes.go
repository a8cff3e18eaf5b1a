package routes

import (
	"wattschain/internal/handlers"
	"wattschain/internal/middleware"
	"wattschain/internal/services"

	"github.com/gin-gonic/gin"
)

// SetupTokenRoutes sets up presale purchase and transaction routes
func SetupTokenRoutes(r *gin.RouterGroup, tokenHandler *handlers.TokenHandler, authService services.AuthService) {
	tokens := r.Group("/tokens")
	tokens.Use(middleware.AuthRequired(authService))
	{
		tokens.POST("/purchase", tokenHandler.PurchaseTokens)
		tokens.GET("/transactions", tokenHandler.ListTransactions)
		tokens.GET("/transactions/:id", tokenHandler.GetTransaction)
	}
}
