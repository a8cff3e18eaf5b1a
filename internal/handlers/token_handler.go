package handlers

import (
	"wattschain/internal/middleware"
	"wattschain/internal/services"
	"wattschain/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TokenHandler struct {
	tokenService services.TokenService
}

func NewTokenHandler(tokenService services.TokenService) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
	}
}

// PurchaseTokens settles a presale purchase for the caller and triggers
// commission distribution.
func (h *TokenHandler) PurchaseTokens(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request services.PurchaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	request.UserID = userID
	request.IPAddress = c.ClientIP()

	result, err := h.tokenService.PurchaseTokens(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Purchase settled", result)
}

func (h *TokenHandler) GetTransaction(c *gin.Context) {
	if _, ok := middleware.UserIDFromContext(c); !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	transactionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction ID")
		return
	}

	txn, err := h.tokenService.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Transaction retrieved", txn)
}

func (h *TokenHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	transactions, total, err := h.tokenService.ListTransactions(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Transactions retrieved", transactions, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}
