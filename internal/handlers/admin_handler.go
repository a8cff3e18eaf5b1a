package handlers

import (
	"wattschain/internal/services"
	"wattschain/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminHandler exposes the operational surface: manual sweeps, fraud scans,
// integrity audits and forest-wide analytics.
type AdminHandler struct {
	mlmService   services.MLMService
	fraudService services.FraudService
}

func NewAdminHandler(mlmService services.MLMService, fraudService services.FraudService) *AdminHandler {
	return &AdminHandler{
		mlmService:   mlmService,
		fraudService: fraudService,
	}
}

// UnlockCommissions runs one unlock sweep immediately.
func (h *AdminHandler) UnlockCommissions(c *gin.Context) {
	result, err := h.mlmService.UnlockExpiredCommissions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Unlock sweep finished", result)
}

// DistributeCommissions replays distribution for a settled transaction,
// typically after a post-settlement failure.
func (h *AdminHandler) DistributeCommissions(c *gin.Context) {
	transactionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction ID")
		return
	}

	result, err := h.mlmService.DistributeCommissions(c.Request.Context(), transactionID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Commissions distributed", result)
}

// ScanUser runs the fraud scoring pass for one member.
func (h *AdminHandler) ScanUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	report, err := h.fraudService.DetectFraud(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Fraud scan finished", report)
}

// AuditTree runs the tree integrity audit immediately.
func (h *AdminHandler) AuditTree(c *gin.Context) {
	report, err := h.fraudService.AuditTreeIntegrity(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Tree audit finished", report)
}

// GetAnalytics returns the forest-wide statistics snapshot.
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	stats, err := h.mlmService.GetAnalytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Analytics retrieved", stats)
}
