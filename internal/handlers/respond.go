package handlers

import (
	"net/http"

	"wattschain/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps the typed domain errors onto HTTP statuses. Anything
// untyped is an internal error and its detail stays out of the response.
func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsNotFound(err):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case utils.IsConflict(err):
		utils.ErrorResponse(c, http.StatusConflict, "CONFLICT", err.Error())
	case utils.IsValidation(err):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case utils.IsTransactionAbort(err):
		utils.ErrorResponse(c, http.StatusInternalServerError, "TRANSACTION_ABORTED", "operation could not be committed")
	case utils.IsConfiguration(err):
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONFIGURATION_ERROR", "service is misconfigured")
	default:
		utils.InternalServerErrorResponse(c)
	}
}
