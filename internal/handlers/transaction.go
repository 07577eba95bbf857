// internal/handlers/transaction.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nguyenquyen/evdata-backend/internal/i18n"
	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// POST /transactions
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), principal, &req)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyTransactionCreated),
		"transaction": transaction,
	})
}

// GET /transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	transaction, err := h.transactionService.GetTransaction(principal, id)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"transaction": transaction,
	})
}

// GET /transactions/reference/:reference
func (h *TransactionHandler) GetTransactionByReference(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	reference := c.Param("reference")
	transaction, err := h.transactionService.GetTransactionByReference(principal, reference)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"transaction": transaction,
	})
}

// GET /transactions
func (h *TransactionHandler) ListMyTransactions(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	transactions, total, err := h.transactionService.ListMyTransactions(principal, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(transactions, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /transactions/sales
func (h *TransactionHandler) ListProviderTransactions(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	transactions, total, err := h.transactionService.ListProviderTransactions(principal, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(transactions, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /transactions/:id/cancel
func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	transaction, err := h.transactionService.CancelTransaction(principal, id)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyTransactionCancelled),
		"transaction": transaction,
	})
}

func (h *TransactionHandler) respondTransactionError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	msg := err.Error()
	switch {
	case strings.Contains(msg, "failed to resolve dataset"):
		utils.BadRequestResponse(c, msg, nil)
	case strings.Contains(msg, "not found"):
		utils.NotFoundResponse(c, "transaction")
	case strings.Contains(msg, "not published"):
		utils.UnprocessableResponse(c, i18n.T(lang, i18n.KeyDatasetNotPublished))
	case strings.Contains(msg, "access denied"):
		utils.ForbiddenResponse(c, "")
	case strings.Contains(msg, "invalid state"):
		utils.UnprocessableResponse(c, msg)
	case strings.Contains(msg, "validation failed"):
		utils.BadRequestResponse(c, msg, nil)
	default:
		utils.InternalErrorResponse(c, msg)
	}
}
