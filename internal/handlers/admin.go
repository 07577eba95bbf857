// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nguyenquyen/evdata-backend/internal/i18n"
	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type AdminHandler struct {
	refundService  *services.RefundService
	revenueService *services.RevenueService
	datasetService *services.DatasetService
}

func NewAdminHandler(refundService *services.RefundService, revenueService *services.RevenueService, datasetService *services.DatasetService) *AdminHandler {
	return &AdminHandler{
		refundService:  refundService,
		revenueService: revenueService,
		datasetService: datasetService,
	}
}

// GET /admin/refunds
func (h *AdminHandler) ListPendingRefunds(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	refunds, total, err := h.refundService.ListPendingRefunds(principal, params)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	result := utils.CreatePaginationResult(refunds, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /admin/refunds/:id/approve
func (h *AdminHandler) ApproveRefund(c *gin.Context) {
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

	refund, err := h.refundService.ApproveRefund(principal, id)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRefundApproved),
		"refund":  refund,
	})
}

// POST /admin/refunds/:id/reject
func (h *AdminHandler) RejectRefund(c *gin.Context) {
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

	var req services.RejectRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	refund, err := h.refundService.RejectRefund(principal, id, &req)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRefundRejected),
		"refund":  refund,
	})
}

// GET /admin/revenue
func (h *AdminHandler) ListAllRevenue(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	params := utils.GetPaginationParams(c)
	revenues, total, err := h.revenueService.ListAllRevenue(principal, year, month, params)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	result := utils.CreatePaginationResult(revenues, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /admin/revenue/calculate
func (h *AdminHandler) CalculateMonthlyRevenue(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req struct {
		Year  int `json:"year" binding:"required"`
		Month int `json:"month" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	revenues, err := h.revenueService.CalculateMonthlyRevenue(req.Year, req.Month)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyRevenueRecomputed),
		"revenues": revenues,
	})
}

// POST /admin/revenue/:id/mark-paid
func (h *AdminHandler) MarkRevenuePaid(c *gin.Context) {
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

	var req struct {
		PaymentReference string `json:"payment_reference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	revenue, err := h.revenueService.MarkAsPaid(principal, id, req.PaymentReference)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRevenueMarkedPaid),
		"revenue": revenue,
	})
}

// GET /admin/stats
func (h *AdminHandler) GetPaymentStats(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	stats, err := h.revenueService.GetPaymentStats(principal)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// POST /admin/datasets/:id/suspend
func (h *AdminHandler) SuspendDataset(c *gin.Context) {
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

	dataset, err := h.datasetService.SuspendDataset(principal, id)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDatasetSuspended),
		"dataset": dataset,
	})
}

func (h *AdminHandler) respondAdminError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "refund not found"):
		utils.NotFoundResponse(c, "refund")
	case strings.Contains(msg, "revenue record not found"):
		utils.NotFoundResponse(c, "revenue")
	case strings.Contains(msg, "not found"):
		utils.NotFoundResponse(c, "dataset")
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
