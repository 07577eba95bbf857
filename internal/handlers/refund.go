// internal/handlers/refund.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nguyenquyen/evdata-backend/internal/i18n"
	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type RefundHandler struct {
	refundService *services.RefundService
}

func NewRefundHandler(refundService *services.RefundService) *RefundHandler {
	return &RefundHandler{refundService: refundService}
}

// POST /refunds
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	refund, err := h.refundService.CreateRefund(principal, &req)
	if err != nil {
		h.respondRefundError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRefundRequested),
		"refund":  refund,
	})
}

// GET /refunds/:id
func (h *RefundHandler) GetRefund(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	refund, err := h.refundService.GetRefund(principal, id)
	if err != nil {
		h.respondRefundError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"refund": refund,
	})
}

// GET /refunds
func (h *RefundHandler) ListMyRefunds(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	refunds, total, err := h.refundService.ListMyRefunds(principal, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(refunds, total, params)
	utils.PaginatedResponse(c, result)
}

func (h *RefundHandler) respondRefundError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	msg := err.Error()
	switch {
	case strings.Contains(msg, "transaction not found"):
		utils.NotFoundResponse(c, "transaction")
	case strings.Contains(msg, "not found"):
		utils.NotFoundResponse(c, "refund")
	case strings.Contains(msg, "not eligible"):
		utils.UnprocessableResponse(c, i18n.T(lang, i18n.KeyRefundNotEligible))
	case strings.Contains(msg, "exceeds"):
		utils.UnprocessableResponse(c, i18n.T(lang, i18n.KeyRefundAmountExceed))
	case strings.Contains(msg, "invalid state"):
		utils.UnprocessableResponse(c, msg)
	case strings.Contains(msg, "access denied"):
		utils.ForbiddenResponse(c, "")
	case strings.Contains(msg, "validation failed"):
		utils.BadRequestResponse(c, msg, nil)
	default:
		utils.InternalErrorResponse(c, msg)
	}
}
