package handlers

import (
	"wattschain/internal/middleware"
	"wattschain/internal/services"
	"wattschain/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MLMHandler struct {
	mlmService          services.MLMService
	notificationService services.NotificationService
}

func NewMLMHandler(mlmService services.MLMService, notificationService services.NotificationService) *MLMHandler {
	return &MLMHandler{
		mlmService:          mlmService,
		notificationService: notificationService,
	}
}

// ValidateReferralCode resolves an invite code before registration. Unknown
// codes are a normal outcome, not an error.
func (h *MLMHandler) ValidateReferralCode(c *gin.Context) {
	code := c.Param("code")

	validation, err := h.mlmService.ValidateReferralCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Referral code checked", validation)
}

// GetTree returns the caller's position with resolved referrer and direct
// downline.
func (h *MLMHandler) GetTree(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	data, err := h.mlmService.GetTreeData(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Tree data retrieved", data)
}

func (h *MLMHandler) GetWallet(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	wallet, err := h.mlmService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Wallet retrieved", wallet)
}

func (h *MLMHandler) ListCommissions(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	commissions, total, err := h.mlmService.ListCommissions(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Commissions retrieved", commissions, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// WithdrawCommission moves one unlocked commission into a withdrawal
// transaction.
func (h *MLMHandler) WithdrawCommission(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	commissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid commission ID")
		return
	}

	txn, err := h.mlmService.WithdrawCommission(c.Request.Context(), userID, commissionID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Withdrawal completed", txn)
}

func (h *MLMHandler) ListNotifications(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	notifications, total, err := h.notificationService.ListNotifications(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Notifications retrieved", notifications, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *MLMHandler) MarkNotificationRead(c *gin.Context) {
	if _, ok := middleware.UserIDFromContext(c); !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), notificationID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification marked read", nil)
}
