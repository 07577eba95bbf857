// internal/handlers/revenue.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type RevenueHandler struct {
	revenueService *services.RevenueService
}

func NewRevenueHandler(revenueService *services.RevenueService) *RevenueHandler {
	return &RevenueHandler{revenueService: revenueService}
}

// GET /revenue
func (h *RevenueHandler) ListMyRevenue(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	revenues, total, err := h.revenueService.ListMyRevenue(principal, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(revenues, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /revenue/month?year=&month=
func (h *RevenueHandler) GetRevenueByMonth(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	revenue, err := h.revenueService.GetRevenueByMonth(principal, year, month)
	if err != nil {
		h.respondRevenueError(c, err)
		return
	}

	utils.SuccessResponse(c, revenue)
}

// GET /revenue/total-earnings
func (h *RevenueHandler) GetTotalEarnings(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	total, err := h.revenueService.GetTotalEarnings(principal)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"total_earnings": total,
	})
}

func (h *RevenueHandler) respondRevenueError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		utils.NotFoundResponse(c, "revenue")
	case strings.Contains(msg, "validation failed"):
		utils.BadRequestResponse(c, msg, nil)
	default:
		utils.InternalErrorResponse(c, msg)
	}
}
