package routes

import (
	"wattschain/internal/handlers"
	"wattschain/internal/middleware"
	"wattschain/internal/services"

	"github.com/gin-gonic/gin"
)

// SetupMLMRoutes sets up the referral tree and commission routes
func SetupMLMRoutes(r *gin.RouterGroup, mlmHandler *handlers.MLMHandler, authService services.AuthService) {
	// Public referral code check, used by the registration form
	r.GET("/referrals/validate/:code", mlmHandler.ValidateReferralCode)

	mlm := r.Group("/mlm")
	mlm.Use(middleware.AuthRequired(authService))
	{
		mlm.GET("/tree", mlmHandler.GetTree)
		mlm.GET("/wallet", mlmHandler.GetWallet)
		mlm.GET("/commissions", mlmHandler.ListCommissions)
		mlm.POST("/commissions/:id/withdraw", mlmHandler.WithdrawCommission)

		mlm.GET("/notifications", mlmHandler.ListNotifications)
		mlm.PUT("/notifications/:id/read", mlmHandler.MarkNotificationRead)
	}
}
